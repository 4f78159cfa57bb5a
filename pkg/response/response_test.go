package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-progression-api/pkg/errors"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestOKMergesMeta(t *testing.T) {
	c, w := testContext()
	OK(c, map[string]int{"rank": 1}, nil, map[string]interface{}{"cache_hit": true}, map[string]interface{}{"cache_hit": false, "source": "db"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":{"rank":1},"meta":{"cache_hit":false,"source":"db"}}`, w.Body.String())
}

func TestOKOmitsEmptyMeta(t *testing.T) {
	c, w := testContext()
	OK(c, []string{})
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestErrorUsesTypedStatus(t *testing.T) {
	c, w := testContext()
	Error(c, appErrors.Clone(appErrors.ErrConflict, "badge already approved"))

	require.Equal(t, http.StatusConflict, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "badge already approved", env.Error.Message)
}

func TestErrorHidesUntypedErrors(t *testing.T) {
	c, w := testContext()
	Error(c, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestNoContentFlushesStatus(t *testing.T) {
	c, w := testContext()
	NoContent(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
