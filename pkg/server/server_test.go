package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orneryd/graphdb/pkg/audit"
	"github.com/orneryd/graphdb/pkg/auth"
	"github.com/orneryd/graphdb/pkg/datastore"
	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	store, err := datastore.Open("memory://")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	creds := auth.NewMemoryStore()
	require.NoError(t, creds.SetSecret("00000000-0000-0000-0000-000000000000", "s3cret"))

	s := New(Config{
		BindAddr: "127.0.0.1:0",
		Store:    store,
		Creds:    creds,
		Audit:    audit.NewLogger(io.Discard),
		Workers:  2,
	})
	return s, "00000000-0000-0000-0000-000000000000"
}

func doRequest(t *testing.T, s *Server, accountID, secret string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/transaction", bytes.NewReader(body))
	req.Header.Set(HeaderAccountID, accountID)
	req.Header.Set(HeaderAccountSecret, secret)
	rec := httptest.NewRecorder()
	s.withMiddleware(s.handleTransaction)(rec, req)
	return rec
}

func TestHandleTransactionRejectsBadAuth(t *testing.T) {
	s, accountID := newTestServer(t)
	rec := doRequest(t, s, accountID, "wrong-secret", []byte(`[]`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleTransactionRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, "00000000-0000-0000-0000-000000000000", "s3cret", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTransactionBadVertexHaltsBatch(t *testing.T) {
	s, accountID := newTestServer(t)
	bogus := "11111111-1111-1111-1111-111111111111"
	body := []byte(`[{"action":"create_vertex","type":"a"},{"action":"set_edge","outbound_id":"` + bogus + `","type":"t","inbound_id":"` + bogus + `","weight":0.1}]`)

	rec := doRequest(t, s, accountID, "s3cret", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Regexp(t, "^Item #1: .+", payload["error"])
}

func TestHandleTransactionSuccess(t *testing.T) {
	s, accountID := newTestServer(t)
	rec := doRequest(t, s, accountID, "s3cret", []byte(`[{"action":"create_vertex","type":"person"}]`))
	assert.Equal(t, http.StatusOK, rec.Code)

	var results []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsEngineInvariantErrorClassifiesUuidTaken(t *testing.T) {
	assert.True(t, isEngineInvariantError(graph.ErrUuidTaken))
	assert.False(t, isEngineInvariantError(graph.ErrVertexNotFound))
	assert.False(t, isEngineInvariantError(graph.ErrInvalidValue))
}
