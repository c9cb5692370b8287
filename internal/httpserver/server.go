// internal/httpserver/server.go
//
// HTTP wiring for the Connections backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request
//     IDs, per-IP rate limiting).
//   - Public endpoints: "/", "/health", auth signup/login/logout.
//   - GET /ws: upgrade to the persistent player connection (JWT cookie or
//     bearer token pre-authenticates; otherwise the client logs in in-band).
//   - REST mirrors of the read-only queries: /leaderboard, /stats/me.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled so cookies work.
//   - Gameplay itself happens over the WebSocket connection; the REST
//     surface only covers account management and queries.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/wordplay-labs/connections-server/internal/auth"
	"github.com/wordplay-labs/connections-server/internal/proto"
	"github.com/wordplay-labs/connections-server/internal/stats"
	"github.com/wordplay-labs/connections-server/internal/ws"
)

// Server bundles the router and the core service dependencies.
type Server struct {
	r     *chi.Mux
	auth  *auth.Service
	stats *stats.Aggregator
}

// New constructs a Server, installs middleware, and registers routes.
func New(authsvc *auth.Service, agg *stats.Aggregator, wsHandler *ws.Handler) *Server {
	s := &Server{r: chi.NewRouter(), auth: authsvc, stats: agg}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(rateLimitByIP())
	s.r.Use(corsFromEnv)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONString(w, http.StatusOK,
			`{"service":"connections-server","endpoints":["/health","/ws","POST /auth/signup","POST /auth/login","/leaderboard","/stats/me"]}`)
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONString(w, http.StatusOK, `{"ok":true}`)
	})

	// Persistent player connection. Upgrades cannot go through the timeout
	// middleware, so it is applied to the JSON routes only.
	wsHandler.PreAuth = s.userFromRequest
	s.r.Get("/ws", wsHandler.ServeHTTP)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.With(s.requireAuth()).Get("/leaderboard", s.handleLeaderboard)
		r.With(s.requireAuth()).Get("/stats/me", s.handleMyStats)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- auth --------------------------------------

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.auth.Register(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			http.Error(w, `{"error":"`+proto.ErrUsernameTaken+`"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	s.issueToken(w, u)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		http.Error(w, `{"error":"`+proto.ErrWrongCredentials+`"}`, http.StatusUnauthorized)
		return
	}
	s.issueToken(w, u)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// issueToken signs a JWT and sets it as the auth cookie.
func (s *Server) issueToken(w http.ResponseWriter, u *auth.User) {
	tok, exp, err := s.auth.SignToken(u)
	if err != nil {
		log.Error().Err(err).Str("user", u.ID).Msg("sign token")
		return
	}
	setAuthCookie(w, tok, exp)
}

// ------------------------------ queries ------------------------------------

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", 20)
	offset := queryInt(r, "offset", 0)
	records, err := s.stats.Leaderboard(r.Context(), count, offset)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(proto.OkLeaderboard(records))
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	me, err := currentUser(r)
	if err != nil {
		http.Error(w, `{"error":"`+proto.ErrNotAuthenticated+`"}`, http.StatusUnauthorized)
		return
	}
	ps, err := s.stats.PlayerStats(r.Context(), me.ID)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(proto.OkPlayerStats(ps))
}

// ------------------------------- small util --------------------------------

func writeJSONString(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// userFromRequest resolves the JWT (cookie or bearer) to a user; nil when
// absent or invalid. Used to pre-authenticate WebSocket upgrades.
func (s *Server) userFromRequest(r *http.Request) *auth.User {
	tok := bearerOrCookie(r)
	if tok == "" {
		return nil
	}
	u, err := s.auth.VerifyToken(r.Context(), tok)
	if err != nil {
		return nil
	}
	return u
}

// ctxUserKey is the context key type for storing the authenticated user.
type ctxUserKey struct{}

func currentUser(r *http.Request) (*auth.User, error) {
	u, _ := r.Context().Value(ctxUserKey{}).(*auth.User)
	if u == nil {
		return nil, errors.New("no user")
	}
	return u, nil
}

// requireAuth enforces a valid JWT and injects the user into the request
// context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := s.userFromRequest(r)
			if u == nil {
				http.Error(w, `{"error":"`+proto.ErrNotAuthenticated+`"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
