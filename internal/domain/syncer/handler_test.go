package syncer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncHandler(t *testing.T) {
	l := newLedger(t)
	ok := logFeed(t, l, 60)
	bad := logFeed(t, l, 90)

	rem := newFakeRemote()
	rem.setFail(bad.ID, true)
	eng := NewEngine(l, rem, Options{Config: Config{BreakerThreshold: 2, MaxParallel: 1}})

	r := chi.NewRouter()
	RegisterRoutes(r, eng)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp syncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Synced)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], bad.ID)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "errors")
	assert.NotContains(t, raw, "failures")
	assert.True(t, rem.has(ok.ID))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/status", nil))
	var st statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, "closed", st.Breaker)

	// segundo fallo consecutivo abre el breaker
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
