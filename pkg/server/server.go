// Package server is the network transport: it accepts HTTP requests
// carrying an account id and secret, checks them against a credential
// store, and hands authenticated bodies to the batch protocol.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/orneryd/graphdb/pkg/audit"
	"github.com/orneryd/graphdb/pkg/auth"
	"github.com/orneryd/graphdb/pkg/batch"
	"github.com/orneryd/graphdb/pkg/datastore"
	"github.com/orneryd/graphdb/pkg/graph"
	"github.com/orneryd/graphdb/pkg/pool"
)

// Headers carrying the account credential pair. Their names are an
// integration detail the core spec leaves open; these are the concrete
// names this server runs with.
const (
	HeaderAccountID     = "X-Account-ID"
	HeaderAccountSecret = "X-Account-Secret"
)

// Config configures a Server.
type Config struct {
	BindAddr string
	Store    *datastore.Datastore
	Creds    auth.Store
	Audit    *audit.Logger
	Workers  int
}

// Server accepts connections on a TCP endpoint, each served on its own
// goroutine courtesy of net/http, admission-gated by a worker-count-sized
// semaphore so the configured worker count has an observable effect.
type Server struct {
	addr    string
	store   *datastore.Datastore
	creds   auth.Store
	audit   *audit.Logger
	admit   *pool.Admission
	httpSrv *http.Server
}

// New builds a Server from cfg. Workers defaults to 1 if non-positive.
func New(cfg Config) *Server {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	s := &Server{
		addr:  cfg.BindAddr,
		store: cfg.Store,
		creds: cfg.Creds,
		audit: cfg.Audit,
		admit: pool.NewAdmission(workers),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/transaction", s.withMiddleware(s.handleTransaction))
	mux.HandleFunc("/health", s.handleHealth)
	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}
	return s
}

// Addr returns the configured bind address.
func (s *Server) Addr() string { return s.addr }

// ListenAndServe starts accepting connections; it blocks until the
// server is shut down or fails to start.
func (s *Server) ListenAndServe() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// finish or ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// withMiddleware wraps handler with panic recovery and admission gating,
// in that order: a panic inside the admission wait itself (which cannot
// happen, but defensively) is still recovered.
func (s *Server) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				fmt.Printf("panic handling %s: %v\n%s\n", r.URL.Path, rec, buf[:n])
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		if err := s.admit.Acquire(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		defer s.admit.Release()

		handler(w, r)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// isEngineInvariantError reports whether err is an engine-internal
// invariant violation rather than a caller-correctable validation
// failure: these map to 500 with a non-leaky message instead of 400.
func isEngineInvariantError(err error) bool {
	return errors.Is(err, graph.ErrUuidTaken)
}

// handleTransaction implements POST /transaction: it authenticates the
// caller, decodes the batch body, dispatches it against a fresh
// transaction, and maps the outcome to a response.
func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	accountID := r.Header.Get(HeaderAccountID)
	secret := r.Header.Get(HeaderAccountSecret)

	if r.Method != http.MethodPost {
		s.audit.LogRequest(accountID, r.URL.Path, http.StatusNotFound, 0, time.Since(start), nil)
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if !s.creds.Check(accountID, secret) {
		s.audit.LogRequest(accountID, r.URL.Path, http.StatusUnauthorized, 0, time.Since(start), nil)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := readAll(r)
	if err != nil {
		s.audit.LogRequest(accountID, r.URL.Path, http.StatusBadRequest, 0, time.Since(start), err)
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	actions, err := batch.Decode(body)
	if err != nil {
		s.audit.LogRequest(accountID, r.URL.Path, http.StatusBadRequest, 0, time.Since(start), err)
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	parsedAccountID, err := graph.ParseID(accountID)
	if err != nil {
		s.audit.LogRequest(accountID, r.URL.Path, http.StatusBadRequest, len(actions), time.Since(start), err)
		writeError(w, http.StatusBadRequest, "malformed account id")
		return
	}

	tx := s.store.NewTransaction(parsedAccountID)
	results, errIndex, dispatchErr := batch.Dispatch(r.Context(), tx, actions)
	if dispatchErr != nil {
		wrapped := fmt.Errorf("Item #%d: %s", errIndex, dispatchErr)
		if isEngineInvariantError(dispatchErr) {
			s.audit.LogRequest(accountID, r.URL.Path, http.StatusInternalServerError, len(actions), time.Since(start), wrapped)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.audit.LogRequest(accountID, r.URL.Path, http.StatusBadRequest, len(actions), time.Since(start), wrapped)
		writeError(w, http.StatusBadRequest, wrapped.Error())
		return
	}

	s.audit.LogRequest(accountID, r.URL.Path, http.StatusOK, len(actions), time.Since(start), nil)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(results)
}

func readAll(r *http.Request) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if _, err := buf.ReadFrom(r.Body); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
