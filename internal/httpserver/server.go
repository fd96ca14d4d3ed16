// internal/httpserver/server.go
//
// HTTP server wiring for the MonadType rewards backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, metrics).
//   - Public endpoints: /api/health, /api/leaderboard, /api/update-stats, /metrics,
//     /debug/words.
//   - Reward endpoints (optional wallet auth, rate limited): /api/claim-reward,
//     /api/level-complete.
//   - Read endpoints for a wallet: /api/player-stats, /api/balance, /api/claims.
//   - Wallet sign-in: /api/auth/nonce, /api/auth/verify.
//
// Notes:
//   - Every error body is {"success":false,"error":"..."}.
//   - Optional auth decorates requests with the signed-in address when a valid
//     token is present; claim handlers then insist it matches the body.
//   - With RequireWalletAuth set, claim routes 401 without a token.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/monadtype/internal/auth"
	"github.com/robalobadob/monadtype/internal/chain"
	"github.com/robalobadob/monadtype/internal/claims"
	"github.com/robalobadob/monadtype/internal/metrics"
	"github.com/robalobadob/monadtype/internal/ratelimit"
	"github.com/robalobadob/monadtype/internal/store"
	"github.com/robalobadob/monadtype/internal/words"
)

// Deps are the collaborators a Server needs. Claims and Wallet may be nil,
// which disables the ledger and wallet sign-in respectively.
type Deps struct {
	Stats   store.Store
	Chain   chain.Rewards
	Claims  *claims.Store
	Wallet  *auth.Wallet
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics

	ClientOrigin      string
	RequireWalletAuth bool
	// ClaimTimeout bounds a claim including the wait for the receipt.
	ClaimTimeout time.Duration
}

// Server bundles router and dependencies.
type Server struct {
	r    *chi.Mux
	deps Deps
	now  func() time.Time
	http *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Limiter == nil {
		d.Limiter = ratelimit.New(10, time.Minute)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.ClaimTimeout <= 0 {
		d.ClaimTimeout = 2 * time.Minute
	}
	s := &Server{r: chi.NewRouter(), deps: d, now: time.Now}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(d.Metrics.Middleware)
	s.r.Use(jsonContentType)
	s.r.Use(cors(d.ClientOrigin))

	s.r.Get("/api/health", s.handleHealth)
	s.r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	// Debug: vocabulary size
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"words": words.Stats()})
	})

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Post("/api/update-stats", s.handleUpdateStats)
		r.Get("/api/leaderboard", s.handleLeaderboard)
		r.Get("/api/player-stats/{address}", s.handlePlayerStats)
		r.Get("/api/balance/{address}", s.handleBalance)
		r.Get("/api/claims/{address}", s.handleClaims)
		r.Post("/api/auth/nonce", s.handleNonce)
		r.Post("/api/auth/verify", s.handleVerify)
	})

	// Claims wait for the transaction to be mined, so they get a longer budget.
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		if d.RequireWalletAuth {
			r.Use(requireAuth)
		}
		r.Post("/api/claim-reward", s.handleClaimReward)
		r.Post("/api/level-complete", s.handleLevelComplete)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found: "+r.URL.Path)
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return s
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
		"service":   "MonadType Backend",
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows origin ("*" for any). Credentials are only advertised for a
// concrete origin, since browsers reject them alongside a wildcard.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Set("Vary", "Origin")
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ctxAddressKey is the context key for the signed-in wallet address.
type ctxAddressKey struct{}

// withOptionalAuth decorates requests with the wallet address of a valid
// bearer token. It never 401s on its own.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearer(r); tok != "" && s.deps.Wallet != nil {
				addr, err := s.deps.Wallet.ParseToken(tok)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), ctxAddressKey{}, addr))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth rejects requests withOptionalAuth did not authenticate.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if signedIn(r) == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// signedIn returns the lowercase address from the request token, if any.
func signedIn(r *http.Request) string {
	addr, _ := r.Context().Value(ctxAddressKey{}).(string)
	return addr
}

// bearer extracts a token from "Authorization: Bearer <token>".
func bearer(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
