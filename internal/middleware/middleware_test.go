package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progression-api/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims *models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sma-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newProtectedRouter(verifier *TokenVerifier, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{JWT(verifier)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims, _ := CurrentClaims(c)
		c.String(http.StatusOK, claims.UserID)
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAcceptsValidToken(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "sma-auth")
	w := doRequest(newProtectedRouter(verifier), signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(models.RoleStudent)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestJWTRejectsBadTokens(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "sma-auth")
	router := newProtectedRouter(verifier)

	expired := validClaims(models.RoleStudent)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims(models.RoleStudent)
	wrongIssuer.Issuer = "someone-else"

	cases := map[string]string{
		"missing":      "",
		"wrong secret": signToken(t, "other", jwt.SigningMethodHS256, validClaims(models.RoleStudent)),
		"expired":      signToken(t, testSecret, jwt.SigningMethodHS256, expired),
		"wrong issuer": signToken(t, testSecret, jwt.SigningMethodHS256, wrongIssuer),
		"wrong alg":    signToken(t, testSecret, jwt.SigningMethodHS384, validClaims(models.RoleStudent)),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, doRequest(router, token).Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "")
	router := newProtectedRouter(verifier, models.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, doRequest(router, signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(models.RoleStudent))).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(models.RoleAdmin))).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(models.RoleSuperAdmin))).Code)
}

type recorderStub struct {
	kinds []models.EngagementKind
	err   error
}

func (r *recorderStub) RecordEngagement(ctx context.Context, userID string, kind models.EngagementKind) error {
	r.kinds = append(r.kinds, kind)
	return r.err
}

func TestTrackEngagementOnlyOnSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &recorderStub{err: errors.New("ignored")}
	r := gin.New()
	setClaims := func(c *gin.Context) { c.Set(ContextUserKey, validClaims(models.RoleStudent)) }
	r.GET("/ok", setClaims, TrackEngagement(recorder, models.EngagementPageVisit, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", setClaims, TrackEngagement(recorder, models.EngagementPageVisit, nil), func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, path := range []string{"/ok", "/fail"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, []models.EngagementKind{models.EngagementPageVisit}, recorder.kinds)
}

func TestResponseMetaRecordsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, true, meta["cache_hit"])
}
