package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/metrics"
	"nexuserp/backend/internal/service"
)

const (
	maxJSONBody = 1 << 20
	maxCSVBody  = 4 << 20
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

type Option func(*API)

func WithLogger(logger *zap.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics exposes the registry on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, opts ...Option) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	a := &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts the current or previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	if a.metrics != nil {
		mux.Handle("/metrics", a.metrics.Handler())
	}
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/v1/auth/logout", a.requireAuth(a.handleLogout, ""))

	mux.HandleFunc("/api/v1/state", a.requireAuth(a.handleState, domain.CapDashboard))
	mux.HandleFunc("/api/v1/reports/dashboard", a.requireAuth(a.handleDashboard, domain.CapDashboard))

	mux.HandleFunc("/api/v1/inventory", a.requireAuth(a.handleInventory, domain.CapInventory))
	mux.HandleFunc("/api/v1/inventory/items", a.requireAuth(a.handleInventoryItems, domain.CapInventory))
	mux.HandleFunc("/api/v1/inventory/import", a.requireAuth(a.handleInventoryImport, domain.CapInventory))
	mux.HandleFunc("/api/v1/inventory/scan", a.requireAuth(a.handleScan, domain.CapInventory))
	mux.HandleFunc("/api/v1/inventory/forecast", a.requireAuth(a.handleForecast, domain.CapInventory))
	mux.HandleFunc("/api/v1/alerts/low-stock", a.requireAuth(a.handleLowStock, domain.CapInventory))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, domain.CapSales))
	mux.HandleFunc("/api/v1/sales/checkout", a.requireAuth(a.handleCheckout, domain.CapSales))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleActions, domain.CapSales))

	mux.HandleFunc("/api/v1/expenses", a.requireAuth(a.handleExpenses, domain.CapFinancials))

	mux.HandleFunc("/api/v1/employees", a.requireAuth(a.handleEmployees, domain.CapHR))
	mux.HandleFunc("/api/v1/employees/", a.requireAuth(a.handleEmployeeActions, domain.CapHR))
	mux.HandleFunc("/api/v1/payroll", a.requireAuth(a.handlePayroll, domain.CapHR))

	mux.HandleFunc("/api/v1/settings", a.requireAuth(a.handleSettings, domain.CapSettings))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.CapAuditLog))
	mux.HandleFunc("/api/v1/insights/", a.requireAuth(a.handleInsight, domain.CapInsights))

	return a.withMiddleware(mux)
}

// requireAuth rejects requests without a valid bearer token, and with an
// empty capability lets any signed-in role through.
func (a *API) requireAuth(next http.HandlerFunc, capability domain.Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if capability != "" && !domain.Allowed(actor.Role, capability) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

// csrfExemptPaths are called before the client can hold a token.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces the X-CSRF-Token header on POST, PUT and PATCH.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		a.writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			limit := int64(maxJSONBody)
			if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "text/csv") {
				limit = maxCSVBody
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(startedAt)),
		)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the cause of 5xx responses from clients and logs it.
func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		a.logger.Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
