package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"ciphera/internal/domain"
)

// newTestRouter wires the same routes as main, minus logging/signal
// handling, for use against httptest.NewServer.
func newTestRouter(t *testing.T) (*chi.Mux, *state) {
	t.Helper()
	s, err := newState()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Method(http.MethodPost, "/register", withMetrics("register", s.handleRegister))
	r.Method(http.MethodGet, "/prekey/{username}", withMetrics("prekey", s.handleGet))
	r.Method(http.MethodGet, "/account/{user}/canary", withMetrics("canary", s.requireAuth(s.handleAccountCanary)))
	r.Method(http.MethodPost, "/msg/{user}", withMetrics("msg_send", s.requireAuth(s.handleEnqueue)))
	r.Method(http.MethodGet, "/msg/{user}", withMetrics("msg_fetch", s.requireAuth(s.handleFetch)))
	r.Method(http.MethodPost, "/msg/{user}/ack", withMetrics("msg_ack", s.requireAuth(s.handleAck)))
	r.Handle("/metrics", promhttp.Handler())
	return r, s
}

func registerUser(t *testing.T, srv *httptest.Server, username string) registerResponse {
	t.Helper()
	bundle := domain.PreKeyBundle{
		Username:       username,
		IdentityKey:    strings.Repeat("ab", 32),
		SignKey:        strings.Repeat("cd", 32),
		SignedPreKeyID: 1,
		SignedPreKey:   strings.Repeat("ef", 32),
	}
	body, err := json.Marshal(bundle)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out registerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	require.NotEmpty(t, out.Canary)
	return out
}

func TestRelay_RegisterThenFetchPreKey(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	registerUser(t, srv, "alice")

	resp, err := http.Get(srv.URL + "/prekey/alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bundle domain.PreKeyBundle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bundle))
	require.Equal(t, "alice", bundle.Username)
}

func TestRelay_RequiresBearerToken(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	registerUser(t, srv, "alice")

	// No Authorization header at all.
	resp, err := http.Get(srv.URL + "/account/alice/canary")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelay_CanaryRequiresMatchingSubject(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	aliceTok := registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/account/bob/canary", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+aliceTok.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRelay_ReRegisterSupersedesOldToken(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	first := registerUser(t, srv, "alice")
	registerUser(t, srv, "alice")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/account/alice/canary", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+first.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelay_EnqueueFetchAck(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	registerUser(t, srv, "alice")
	bobTok := registerUser(t, srv, "bob")

	env := domain.Envelope{From: "alice", To: "bob", Wire: "deadbeef"}
	body, err := json.Marshal(env)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/msg/bob", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bobTok.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/msg/bob", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bobTok.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envs []domain.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envs))
	require.Len(t, envs, 1)
	require.Equal(t, domain.Username("alice"), envs[0].From)

	ackBody, err := json.Marshal(map[string]int{"count": 1})
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/msg/bob/ack", bytes.NewReader(ackBody))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bobTok.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/msg/bob", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bobTok.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envs))
	require.Empty(t, envs)
}

func TestRelay_MetricsCount(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	registerUser(t, srv, "metrics-user")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "ciphera_relay_requests_total")
}

func TestRelay_EnqueueRejectsRecipientMismatch(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	bobTok := registerUser(t, srv, "bob")

	env := domain.Envelope{From: "alice", To: "carol", Wire: "deadbeef"}
	body, err := json.Marshal(env)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/msg/bob", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bobTok.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
