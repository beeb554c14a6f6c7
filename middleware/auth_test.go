package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bankeu-api/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newAuthRouter(roles ...services.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddlewareWithSecret(testSecret)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := CurrentActor(c)
		c.JSON(http.StatusOK, actor)
	})
	r.GET("/whoami", handlers...)
	return r
}

func bearer(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := SignToken(claims, testSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddlewareSetsActor(t *testing.T) {
	r := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearer(t, Claims{
		UserID:           12,
		Role:             string(services.RoleDinasVerifier),
		DinasID:          4,
		VerifierID:       3,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"VerifierID":3`)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	r := newAuthRouter()

	expired := bearer(t, Claims{
		UserID:           12,
		Role:             string(services.RoleDesa),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	otherKey, err := SignToken(Claims{UserID: 12, Role: string(services.RoleDesa)}, []byte("other"))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":     "",
		"no bearer":   "Token abc",
		"expired":     expired,
		"wrong key":   "Bearer " + otherKey,
		"empty claim": bearer(t, Claims{UserID: 12}),
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter(services.RoleDinas, services.RoleSuperAdmin)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearer(t, Claims{UserID: 1, Role: string(services.RoleDesa), DesaID: 101}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearer(t, Claims{UserID: 2, Role: string(services.RoleDinas), DinasID: 4}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDKeepsValidIncomingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	const incoming = "6f1c2a4e-8d0b-4c55-9a1e-3b7f2d9c0e11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}
