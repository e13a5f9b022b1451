package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"shop_back_end/internal/auth"
	"shop_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// RevocationChecker : blacklist JWT et comptes désactivés (Redis)
type RevocationChecker interface {
	IsTokenBlacklisted(ctx context.Context, tokenID string) bool
	IsUserDisabled(ctx context.Context, userID string) bool
}

// Authenticate lit un éventuel header Bearer ; sans header la requête continue en anonyme
func Authenticate(tokens TokenParser, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			log.Printf("❌ Token refusé: %v", err)
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		principal, err := auth.PrincipalFromClaims(claims)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		if revocations != nil {
			ctx := c.Request.Context()
			if revocations.IsTokenBlacklisted(ctx, claims.ID) {
				abort(c, http.StatusUnauthorized, "Token has been revoked")
				return
			}
			if revocations.IsUserDisabled(ctx, claims.UserID) {
				abort(c, http.StatusForbidden, "Account is inactive")
				return
			}
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

func SetPrincipal(c *gin.Context, p *auth.Principal) {
	c.Set(principalKey, p)
}

// CurrentPrincipal retourne nil pour une requête anonyme
func CurrentPrincipal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentPrincipal(c) == nil {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole est le seul contrôle d'accès des routes admin ; il s'applique au groupe
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !allowed[p.Role] {
			log.Printf("⛔ Accès refusé à %s %s pour %s (%s)", c.Request.Method, c.FullPath(), p.UserID, p.Role)
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
