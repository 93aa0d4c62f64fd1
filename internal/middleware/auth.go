package middleware

import (
	"net/http"
	"os"
	"strings"

	"erp-backend/internal/rbac"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// RoleSentinel is assumed when a token carries no role claim. It matches no
// entry in the permission table, so every check denies.
const RoleSentinel = "user"

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in release mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// SetTokenCookie sets access_token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, accessToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
}

// ClearTokenCookie removes the access_token cookie
func ClearTokenCookie(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
}

// Auth builds gin middleware around the permission evaluator. The evaluator
// is injected once at startup; authorization decisions are in-memory and run
// on every protected request without touching the database.
type Auth struct {
	evaluator *rbac.Evaluator
	secret    []byte
}

func NewAuth(evaluator *rbac.Evaluator, secret []byte) *Auth {
	return &Auth{evaluator: evaluator, secret: secret}
}

// resolveClaims validates the JWT from cookie or Authorization header and
// stores userID/userRole in the gin context. Returns false after writing the
// 401 response when the token is missing or invalid.
func (a *Auth) resolveClaims(c *gin.Context) bool {
	// Try cookie first, fallback to Authorization header
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return false
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return false
		}
		tokenString = parts[1]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})

	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return false
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleSentinel
	}

	c.Set("userID", claims["sub"])
	c.Set("userRole", role)

	return true
}

// Authenticated validates the JWT without any permission check. Used for
// endpoints like /me that any logged-in user may call.
func (a *Auth) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.resolveClaims(c) {
			return
		}
		c.Next()
	}
}

// RequirePermission validates the JWT and checks the caller's role against
// the permission table for the given resource/action pair.
func (a *Auth) RequirePermission(resource rbac.Resource, action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.resolveClaims(c) {
			return
		}

		role := c.GetString("userRole")
		if !a.evaluator.HasPermission(role, resource, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorWithData(
				http.StatusForbidden,
				"Insufficient permissions",
				gin.H{
					"required": gin.H{"resource": resource, "action": action},
					"current":  role,
				},
			))
			return
		}

		c.Next()
	}
}

// RequireRole validates the JWT and checks if the user's role exists in the allowedRoles list
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.resolveClaims(c) {
			return
		}

		role := c.GetString("userRole")
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorWithData(
			http.StatusForbidden,
			"Insufficient permissions",
			gin.H{
				"required": gin.H{"roles": allowedRoles},
				"current":  role,
			},
		))
	}
}
