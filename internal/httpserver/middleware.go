package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

const (
	sessionCookie   = "sessionCartId"
	sessionMaxAge   = 30 * 24 * 60 * 60
	identityCtxKey  = "identity"
	userCtxKey      = "user"
	tokenCtxKey     = "token"
	bearerPrefix    = "Bearer "
	unauthenticated = "sign in required"
)

// identityMiddleware resolves the caller's cart session and, when a bearer
// token is present, the signed-in user. A request without a session cookie
// is issued a new one.
func identityMiddleware(users userService, secure bool, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookie)
		if err != nil || strings.TrimSpace(sessionID) == "" {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sessionID, sessionMaxAge, "/", "", secure, true)
		}
		id := domain.Identity{SessionCartID: sessionID}

		if token := bearerToken(c.GetHeader("Authorization")); token != "" && users != nil {
			u, err := users.LookupByToken(c.Request.Context(), token)
			switch {
			case err == nil:
				id.UserID = u.ID
				c.Set(userCtxKey, u)
				c.Set(tokenCtxKey, token)
			case errors.Is(err, usersvc.ErrInvalidToken):
				// stale token; the caller continues anonymously
			default:
				logger.Printf("http: lookup token error=%v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("failed to resolve session"))
				return
			}
		}

		c.Set(identityCtxKey, id)
		c.Next()
	}
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(unauthenticated))
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(unauthenticated))
			return
		}
		if !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody("admin only"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

func identity(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityCtxKey); ok {
		if id, ok := v.(domain.Identity); ok {
			return id
		}
	}
	return domain.Identity{}
}

func currentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(userCtxKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// uuidParams answers 404 when a named path parameter is present but is not
// a uuid; no row can carry such a key.
func uuidParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			v := c.Param(name)
			if v == "" {
				continue
			}
			if _, err := uuid.Parse(v); err != nil {
				c.AbortWithStatusJSON(http.StatusNotFound, errorBody(domain.ErrNotFound.Error()))
				return
			}
		}
		c.Next()
	}
}
