package middleware

import (
	"bankeu-api/services"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ActorKey is the gin context key holding the authenticated services.Actor.
const ActorKey = "actor"

type Claims struct {
	UserID      uint   `json:"user_id"`
	Role        string `json:"role"`
	DesaID      uint   `json:"desa_id,omitempty"`
	DinasID     uint   `json:"dinas_id,omitempty"`
	KecamatanID uint   `json:"kecamatan_id,omitempty"`
	VerifierID  uint   `json:"verifier_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the token claims into the workflow caller.
func (c *Claims) Actor() services.Actor {
	return services.Actor{
		UserID:      c.UserID,
		Role:        services.Role(c.Role),
		DesaID:      c.DesaID,
		DinasID:     c.DinasID,
		KecamatanID: c.KecamatanID,
		VerifierID:  c.VerifierID,
	}
}

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// AuthMiddleware validates the JWT token and stores the caller as an Actor.
func AuthMiddleware() gin.HandlerFunc {
	return AuthMiddlewareWithSecret(jwtSecret())
}

func AuthMiddlewareWithSecret(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization header is required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || claims.UserID == 0 || claims.Role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)
		c.Set(ActorKey, claims.Actor())

		c.Next()
	}
}

// RequireRole checks if user has one of the given roles
func RequireRole(roles ...services.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Role not found"})
			c.Abort()
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		c.Abort()
	}
}

// CurrentActor returns the caller set by AuthMiddleware.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

// SignToken issues an HS256 token for claims. Used by the CLI and tests.
func SignToken(claims Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(secret)
}
