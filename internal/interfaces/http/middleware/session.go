package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/buyer"
)

const (
	keyBuyer        = "buyer"
	keySessionToken = "session_token"
)

// BuyerSession resolves who is shopping. An authenticated user wins; otherwise the
// guest cookie is used, and issued when missing. It must run after OptionalAuthMiddleware.
func BuyerSession(cfg *config.Config) gin.HandlerFunc {
	name := cfg.Storefront.SessionCookieName
	maxAge := int(cfg.Storefront.SessionTTL.Seconds())
	secure := strings.HasPrefix(cfg.Storefront.BaseURL, "https://")

	return func(c *gin.Context) {
		token, err := c.Cookie(name)
		if err != nil || !validSessionToken(token) {
			token = ""
		}

		if userID, ok := GetUserIDFromContext(c); ok {
			c.Set(keyBuyer, buyer.ForUser(userID))
			if token != "" {
				c.Set(keySessionToken, token)
			}
			c.Next()
			return
		}

		if token == "" {
			token = uuid.NewString()
		}
		// Refresh the cookie on every visit so active guests keep their cart.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(name, token, maxAge, "/", "", secure, true)
		c.Set(keySessionToken, token)
		c.Set(keyBuyer, buyer.ForSession(token))
		c.Next()
	}
}

func validSessionToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}

// BuyerFromContext returns the identity set by BuyerSession
func BuyerFromContext(c *gin.Context) (buyer.Identity, bool) {
	v, ok := c.Get(keyBuyer)
	if !ok {
		return buyer.Identity{}, false
	}
	id, ok := v.(buyer.Identity)
	return id, ok
}

// SessionTokenFromContext returns the guest session token, if the request carried one
func SessionTokenFromContext(c *gin.Context) (string, bool) {
	token := c.GetString(keySessionToken)
	return token, token != ""
}
