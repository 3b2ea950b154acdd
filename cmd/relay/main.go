package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/pflag"

	"ciphera/internal/domain"
)

// --- Flags ---

var (
	port          int  // listen port
	enableLogging bool // logging toggle
)

// --- Constants ---

const (
	defaultPort    = 8080
	minPort        = 0
	maxPort        = 65535
	readHeaderTO   = 5 * time.Second
	readTO         = 10 * time.Second
	writeTO        = 10 * time.Second
	idleTO         = 60 * time.Second
	maxRequestBody = 1 << 20 // 1 MiB cap for incoming JSON bodies
)

// Relay policy limits.
const (
	maxPerUserQueue = 1000             // cap messages kept per user
	maxWireBytes    = 64 << 10         // 64 KiB max envelope wire payload
	maxFutureSkew   = 10 * time.Minute // reject timestamps too far in the future
	tokenTTL        = 24 * time.Hour
)

// --- Metrics ---

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ciphera_relay_requests_total",
		Help: "HTTP requests handled by the relay, by route and status class.",
	}, []string{"route", "status"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ciphera_relay_queue_depth",
		Help: "Number of envelopes currently queued per user.",
	}, []string{"user"})
)

// --- Types & Constructors ---

// account is the relay's server-side record for one registered user: their
// latest published bundle, the canary handed back on register, and the
// jti of the token currently considered valid for them.
type account struct {
	bundle domain.PreKeyBundle
	canary string
	jti    string
}

// state holds registered accounts and per-user envelope queues.
type state struct {
	mu       sync.RWMutex
	accounts map[domain.Username]*account
	queues   map[domain.Username][]domain.Envelope

	signingKey []byte
}

// newState initialises an empty relay state with a fresh JWT signing key.
func newState() (*state, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}
	return &state{
		accounts:   make(map[domain.Username]*account),
		queues:     make(map[domain.Username][]domain.Envelope),
		signingKey: key,
	}, nil
}

// issueToken mints a bearer token for username and records its jti as the
// only currently-valid one, invalidating any token issued by a prior
// registration.
func (s *state) issueToken(username domain.Username) (string, error) {
	jti := uuid.NewString()

	s.mu.Lock()
	acc, ok := s.accounts[username]
	if !ok {
		acc = &account{}
		s.accounts[username] = acc
	}
	acc.jti = jti
	s.mu.Unlock()

	claims := jwt.RegisteredClaims{
		Subject:   username.String(),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.signingKey)
}

// authenticate validates a bearer token and returns the username (token
// subject) it was issued for.
func (s *state) authenticate(r *http.Request) (domain.Username, error) {
	raw := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(raw) <= len(prefix) || raw[:len(prefix)] != prefix {
		return "", errors.New("missing bearer token")
	}
	raw = raw[len(prefix):]

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	username := domain.Username(claims.Subject)
	s.mu.RLock()
	acc, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok || acc.jti != claims.ID {
		return "", errors.New("token has been superseded")
	}
	return username, nil
}

// requireAuth wraps h, rejecting requests without a valid bearer token. next
// is called with the authenticated username stashed in the request context.
type ctxKey string

const ctxKeyUsername ctxKey = "username"

func (s *state) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := s.authenticate(r)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUsername, username)
		next(w, r.WithContext(ctx))
	}
}

func authenticatedUser(r *http.Request) domain.Username {
	if v, ok := r.Context().Value(ctxKeyUsername).(domain.Username); ok {
		return v
	}
	return ""
}

// --- Utilities ---

// writeJSON encodes v as JSON with no HTML escaping.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode error: %v", err), http.StatusInternalServerError)
	}
}

// writeErr writes a JSON error object with a given status code.
func writeErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// parseLimit parses the optional "limit" query parameter.
func parseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	return n, nil
}

func genCanary() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// --- Handlers ---

type registerResponse struct {
	Token  string `json:"token"`
	Canary string `json:"canary"`
}

// handleRegister stores an incoming PreKeyBundle and mints a fresh bearer
// token and canary for its username (POST /register).
func (s *state) handleRegister(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var bundle domain.PreKeyBundle
	if err := dec.Decode(&bundle); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if bundle.Username == "" {
		writeErr(w, http.StatusBadRequest, "username required")
		return
	}
	if bundle.IdentityKey == "" || bundle.SignedPreKey == "" {
		writeErr(w, http.StatusBadRequest, "identity and signed prekey required")
		return
	}

	username := domain.Username(bundle.Username)

	canary, err := genCanary()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[username]
	if !ok {
		acc = &account{}
		s.accounts[username] = acc
	}
	acc.bundle = bundle
	acc.canary = canary
	s.mu.Unlock()

	token, err := s.issueToken(username)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	if enableLogging {
		slog.Info("register",
			"user", bundle.Username,
			"spk_id", bundle.SignedPreKeyID,
			"has_one_time_key", bundle.OneTimePreKeyID != nil,
		)
	}
	writeJSON(w, registerResponse{Token: token, Canary: canary})
}

// handleGet returns a stored PreKeyBundle (GET /prekey/{username}).
func (s *state) handleGet(w http.ResponseWriter, r *http.Request) {
	username := domain.Username(chi.URLParam(r, "username"))
	if username == "" {
		writeErr(w, http.StatusBadRequest, "username required")
		return
	}

	s.mu.RLock()
	acc, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}

	if enableLogging {
		slog.Info("prekey_fetch", "user", username.String(), "spk_id", acc.bundle.SignedPreKeyID)
	}
	writeJSON(w, acc.bundle)
}

// handleAccountCanary returns the stored canary (GET /account/{user}/canary).
func (s *state) handleAccountCanary(w http.ResponseWriter, r *http.Request) {
	username := domain.Username(chi.URLParam(r, "user"))
	if authenticatedUser(r) != username {
		writeErr(w, http.StatusForbidden, "forbidden")
		return
	}

	s.mu.RLock()
	acc, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, map[string]string{"canary": acc.canary})
}

// handleEnqueue enqueues a new Envelope (POST /msg/{user}).
func (s *state) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	username := domain.Username(chi.URLParam(r, "user"))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var env domain.Envelope
	if err := dec.Decode(&env); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if env.To == "" || username == "" || username != env.To {
		writeErr(w, http.StatusBadRequest, "recipient mismatch")
		return
	}
	if len(env.Wire) > maxWireBytes {
		writeErr(w, http.StatusRequestEntityTooLarge, "envelope too large")
		return
	}
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().Unix()
	} else if time.Unix(env.Timestamp, 0).After(time.Now().Add(maxFutureSkew)) {
		writeErr(w, http.StatusBadRequest, "timestamp in future")
		return
	}

	s.mu.Lock()
	queue := append(s.queues[username], env)
	if len(queue) > maxPerUserQueue {
		queue = queue[len(queue)-maxPerUserQueue:]
	}
	s.queues[username] = queue
	queueLen := len(queue)
	s.mu.Unlock()

	queueDepth.WithLabelValues(username.String()).Set(float64(queueLen))

	if enableLogging {
		slog.Info("enqueue",
			"queue_user", username.String(),
			"from", env.From.String(),
			"wire_bytes", len(env.Wire),
			"queue_len", queueLen,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFetch fetches queued Envelopes (GET /msg/{user}?limit=N).
func (s *state) handleFetch(w http.ResponseWriter, r *http.Request) {
	username := domain.Username(chi.URLParam(r, "user"))
	if authenticatedUser(r) != username {
		writeErr(w, http.StatusForbidden, "forbidden")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad limit")
		return
	}

	s.mu.RLock()
	queue := s.queues[username]
	if limit == 0 || limit > len(queue) {
		limit = len(queue)
	}
	out := make([]domain.Envelope, limit)
	copy(out, queue[:limit])
	s.mu.RUnlock()

	writeJSON(w, out)
}

// handleAck acknowledges and drops N messages (POST /msg/{user}/ack).
func (s *state) handleAck(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	username := domain.Username(chi.URLParam(r, "user"))
	if authenticatedUser(r) != username {
		writeErr(w, http.StatusForbidden, "forbidden")
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var ack struct {
		Count int `json:"count"`
	}
	if err := dec.Decode(&ack); err != nil || ack.Count < 0 {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}

	s.mu.Lock()
	if ack.Count > len(s.queues[username]) {
		ack.Count = len(s.queues[username])
	}
	s.queues[username] = s.queues[username][ack.Count:]
	remaining := len(s.queues[username])
	s.mu.Unlock()

	queueDepth.WithLabelValues(username.String()).Set(float64(remaining))
	w.WriteHeader(http.StatusNoContent)
}

// withMetrics records a request count by route and status class, after next runs.
func withMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lrw := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		next(lrw, r)
		requestsTotal.WithLabelValues(route, strconv.Itoa(lrw.status/100*100)).Inc()
	}
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (c *statusCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

// --- Main ---

func main() {
	pflag.IntVarP(&port, "port", "p", defaultPort, "port to listen on")
	pflag.BoolVar(&enableLogging, "log", false, "enable access logging")
	pflag.Parse()

	if port <= minPort || port > maxPort {
		port = defaultPort
	}

	logger := slog.New(slog.NewTextHandler(log.Writer(), &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	s, err := newState()
	if err != nil {
		log.Fatalf("initialising relay state: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if enableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(cors.AllowAll().Handler)

	r.Method(http.MethodPost, "/register", withMetrics("register", s.handleRegister))
	r.Method(http.MethodGet, "/prekey/{username}", withMetrics("prekey", s.handleGet))
	r.Method(http.MethodGet, "/account/{user}/canary", withMetrics("canary", s.requireAuth(s.handleAccountCanary)))
	r.Method(http.MethodPost, "/msg/{user}", withMetrics("msg_send", s.requireAuth(s.handleEnqueue)))
	r.Method(http.MethodGet, "/msg/{user}", withMetrics("msg_fetch", s.requireAuth(s.handleFetch)))
	r.Method(http.MethodPost, "/msg/{user}/ack", withMetrics("msg_ack", s.requireAuth(s.handleAck)))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: readHeaderTO,
		ReadTimeout:       readTO,
		WriteTimeout:      writeTO,
		IdleTimeout:       idleTO,
	}

	go func() {
		slog.Info("Relay listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Relay failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
