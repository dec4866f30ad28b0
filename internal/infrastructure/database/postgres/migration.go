// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/returns"
	"github.com/your-org/storefront/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain
		&user.User{},

		// Catalog
		&product.Color{},
		&product.Size{},
		&product.Product{},
		&product.ProductStock{},
		&product.FlashSale{},

		&inventory.StockMovement{},

		&cart.Cart{},
		&cart.CartItem{},

		&coupon.Coupon{},

		// Order domain
		&order.Order{},
		&order.OrderItem{},
		&order.Payment{},
		&order.OrderStatusHistory{},

		&returns.ReturnRequest{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
		m.logger.Debugf("Migrated model: %T", model)
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite and partial indexes AutoMigrate cannot express
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_unpaid_card ON orders(created_at) WHERE payment_method = 'card' AND is_paid = false",
		"CREATE INDEX IF NOT EXISTS idx_payments_provider_session ON payments(provider, provider_session_id)",
		"CREATE INDEX IF NOT EXISTS idx_flash_sales_window ON flash_sales(start_time, end_time) WHERE is_active = true",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_stock_created ON stock_movements(product_stock_id, created_at DESC)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_code_upper ON coupons(UPPER(code))",
		"CREATE INDEX IF NOT EXISTS idx_return_requests_status ON return_requests(status, created_at)",
	}

	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			m.logger.WithError(err).Warnf("Failed to create index: %s", stmt)
		}
	}
	return nil
}

// SeedInitialData inserts the demo catalog and accounts. Safe to run repeatedly.
func (m *Migration) SeedInitialData() error {
	m.logger.Info("Seeding initial data")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"users", m.seedUsers},
		{"colors and sizes", m.seedAttributes},
		{"products", m.seedProducts},
		{"flash sale", m.seedFlashSale},
		{"coupons", m.seedCoupons},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
	}

	m.logger.Info("Initial data seeding completed")
	return nil
}

func (m *Migration) seedUsers() error {
	accounts := []struct {
		email    string
		password string
		first    string
		last     string
		admin    bool
	}{
		{"admin@storefront.local", "admin123", "Admin", "User", true},
		{"test1@example.com", "test123", "Test", "User", false},
	}

	for _, a := range accounts {
		var count int64
		m.db.Model(&user.User{}).Where("email = ?", a.email).Count(&count)
		if count > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		u := user.User{
			Email:     a.email,
			Password:  string(hash),
			FirstName: a.first,
			LastName:  a.last,
			IsActive:  true,
			IsAdmin:   a.admin,
		}
		if err := m.db.Create(&u).Error; err != nil {
			return err
		}
		m.logger.WithField("email", a.email).Info("Created seed user")
	}
	return nil
}

func (m *Migration) seedAttributes() error {
	colors := []product.Color{
		{Name: "Black", HexCode: "#000000"},
		{Name: "White", HexCode: "#FFFFFF"},
		{Name: "Navy", HexCode: "#1F2A44"},
	}
	for i := range colors {
		if err := m.db.Where(product.Color{Name: colors[i].Name}).FirstOrCreate(&colors[i]).Error; err != nil {
			return err
		}
	}

	sizes := []product.Size{
		{Name: "S", SortOrder: 1},
		{Name: "M", SortOrder: 2},
		{Name: "L", SortOrder: 3},
	}
	for i := range sizes {
		if err := m.db.Where(product.Size{Name: sizes[i].Name}).FirstOrCreate(&sizes[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	m.db.Model(&product.Product{}).Count(&count)
	if count > 0 {
		m.logger.Debug("Products already exist, skipping")
		return nil
	}

	var colors []product.Color
	var sizes []product.Size
	if err := m.db.Order("id").Find(&colors).Error; err != nil {
		return err
	}
	if err := m.db.Order("sort_order").Find(&sizes).Error; err != nil {
		return err
	}

	premium := decimal.RequireFromString("1100.00")
	catalog := []struct {
		product  product.Product
		override map[string]*decimal.Decimal
	}{
		{
			product: product.Product{
				Name:        "Classic Tee",
				Slug:        "classic-tee",
				Description: "Heavyweight cotton tee",
				BasePrice:   decimal.RequireFromString("1000.00"),
				IsActive:    true,
			},
			override: map[string]*decimal.Decimal{"L": &premium},
		},
		{
			product: product.Product{
				Name:        "Zip Hoodie",
				Slug:        "zip-hoodie",
				Description: "Brushed fleece hoodie",
				BasePrice:   decimal.RequireFromString("2500.00"),
				IsActive:    true,
			},
		},
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range catalog {
			p := entry.product
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			for _, c := range colors {
				for _, s := range sizes {
					stock := product.ProductStock{
						ProductID: p.ID,
						ColorID:   c.ID,
						SizeID:    s.ID,
						Quantity:  25,
						Price:     entry.override[s.Name],
					}
					if err := tx.Create(&stock).Error; err != nil {
						return err
					}
				}
			}
			m.logger.WithField("product", p.Name).Info("Created seed product")
		}
		return nil
	})
}

func (m *Migration) seedFlashSale() error {
	var count int64
	m.db.Model(&product.FlashSale{}).Count(&count)
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	sale := product.FlashSale{
		Name:               "Launch Week",
		StartTime:          now,
		EndTime:            now.Add(7 * 24 * time.Hour),
		DiscountPercentage: decimal.NewFromInt(10),
		IsActive:           true,
	}
	return m.db.Create(&sale).Error
}

func (m *Migration) seedCoupons() error {
	coupons := []coupon.Coupon{
		{Code: "WELCOME10", Type: coupon.TypePercent, Value: decimal.NewFromInt(10), IsActive: true},
		{Code: "FLAT200", Type: coupon.TypeFixed, Value: decimal.NewFromInt(200), IsActive: true},
	}
	for i := range coupons {
		var existing coupon.Coupon
		err := m.db.Where("code = ?", coupons[i].Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := m.db.Create(&coupons[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	m.logger.Warn("Dropping all database tables")

	// Reverse dependency order
	tables := []string{
		"return_requests",
		"order_status_history",
		"payments",
		"order_items",
		"orders",
		"coupons",
		"cart_items",
		"carts",
		"stock_movements",
		"flash_sale_products",
		"flash_sales",
		"product_stocks",
		"products",
		"sizes",
		"colors",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			m.logger.WithError(err).Warnf("Failed to drop table %s", table)
		}
	}
	return nil
}

// GetTableInfo logs the row count of every public table
func (m *Migration) GetTableInfo() error {
	var tables []string
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	var total int64
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		total += count
		m.logger.WithFields(logrus.Fields{"table": table, "records": count}).Info("Table info")
	}
	m.logger.WithFields(logrus.Fields{"tables": len(tables), "records": total}).Info("Database summary")
	return nil
}
