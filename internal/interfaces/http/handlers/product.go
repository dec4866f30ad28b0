// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	catalog *product.Service
	pricer  *pricing.Resolver
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *product.Service, pricer *pricing.Resolver) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		pricer:  pricer,
	}
}

// VariantResponse is one purchasable variant with its live price
type VariantResponse struct {
	ID        uint   `json:"id"`
	ColorName string `json:"color_name"`
	SizeName  string `json:"size_name"`
	InStock   bool   `json:"in_stock"`
	Available int    `json:"available"`
	pricing.Quote
}

// ProductResponse is a product page
type ProductResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	OnSale      bool              `json:"on_sale"`
	Variants    []VariantResponse `json:"variants"`
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	snapshot, err := h.pricer.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		BasePrice:   p.BasePrice,
		Variants:    make([]VariantResponse, 0, len(p.Stocks)),
	}
	for i := range p.Stocks {
		stock := &p.Stocks[i]
		quote := pricing.Resolve(p, stock, snapshot.Sales, snapshot.Now)
		resp.OnSale = resp.OnSale || quote.Discounted()
		resp.Variants = append(resp.Variants, VariantResponse{
			ID:        stock.ID,
			ColorName: stock.Color.Name,
			SizeName:  stock.Size.Name,
			InStock:   stock.Quantity > 0,
			Available: stock.Quantity,
			Quote:     quote,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    resp,
	})
}
