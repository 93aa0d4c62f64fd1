package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"erp-backend/internal/rbac"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test_secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := NewAuth(rbac.NewEvaluator(rbac.DefaultTable()), testSecret)

	router := gin.New()
	router.GET("/customers",
		auth.RequirePermission(rbac.ResourceCustomers, rbac.ActionRead),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.DELETE("/customers/:id",
		auth.RequirePermission(rbac.ResourceCustomers, rbac.ActionDelete),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.GET("/admin-only",
		auth.RequireRole("admin"),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return router
}

func doRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequirePermission_AllowsGrantedRole(t *testing.T) {
	router := newTestRouter()
	token := signToken(t, jwt.MapClaims{"sub": "u1", "role": "sales"})

	w := doRequest(router, http.MethodGet, "/customers", token)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_DeniesMissingAction(t *testing.T) {
	router := newTestRouter()
	token := signToken(t, jwt.MapClaims{"sub": "u1", "role": "sales"})

	w := doRequest(router, http.MethodDelete, "/customers/abc", token)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Insufficient permissions", body.Error)

	data := body.Data.(map[string]interface{})
	require.Equal(t, "sales", data["current"])
	required := data["required"].(map[string]interface{})
	require.Equal(t, "customers", required["resource"])
	require.Equal(t, "delete", required["action"])
}

func TestRequirePermission_MissingRoleClaimDeniesEverything(t *testing.T) {
	router := newTestRouter()
	token := signToken(t, jwt.MapClaims{"sub": "u1"})

	w := doRequest(router, http.MethodGet, "/customers", token)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body.Data.(map[string]interface{})
	require.Equal(t, RoleSentinel, data["current"])
}

func TestRequirePermission_MissingTokenIsUnauthorized(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, http.MethodGet, "/customers", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission_BadSignatureIsUnauthorized(t *testing.T) {
	router := newTestRouter()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"})
	signed, err := token.SignedString([]byte("wrong_secret"))
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/customers", signed)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_LiteralMembership(t *testing.T) {
	router := newTestRouter()

	admin := signToken(t, jwt.MapClaims{"sub": "u1", "role": "admin"})
	w := doRequest(router, http.MethodGet, "/admin-only", admin)
	require.Equal(t, http.StatusOK, w.Code)

	sales := signToken(t, jwt.MapClaims{"sub": "u2", "role": "sales"})
	w = doRequest(router, http.MethodGet, "/admin-only", sales)
	require.Equal(t, http.StatusForbidden, w.Code)
}
