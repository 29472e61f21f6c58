package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/smartclassroom/authd/internal/auth/service"
	"github.com/smartclassroom/authd/internal/auth/store"
	"github.com/smartclassroom/authd/pkg/httpx"
	"github.com/smartclassroom/authd/pkg/slogx"
)

const adminRole = "admin"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	AuthService       *service.AuthService
	AccountService    *service.AccountService
	UserService       *service.UserService
	AuditQueryService *service.AuditQueryService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdminUsers()
	r.registerAdminAudit()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	verifier := &sessionVerifier{auth: r.AuthService}
	h := &AuthHandler{
		AuthService:    r.AuthService,
		AccountService: r.AccountService,
	}

	// POST /login - strict rate limit by IP + student id to slow brute force
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /logout - authenticated, lenient (idempotent and cheap)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.SessionAuthMiddleware(verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// GET /session - authenticated session introspection
	r.Mux.Handle("GET /v1/auth/session",
		httpx.Chain(http.HandlerFunc(h.HandleSession),
			httpx.SessionAuthMiddleware(verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// POST /password - change own password, strict limit (credential operation)
	r.Mux.Handle("POST /v1/auth/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.SessionAuthMiddleware(verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdminUsers() {
	verifier := &sessionVerifier{auth: r.AuthService}
	h := &AdminUsersHandler{
		UserService:    r.UserService,
		AccountService: r.AccountService,
	}

	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.SessionAuthMiddleware(verifier),
			httpx.RequireAnyRole(adminRole),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/admin/users", admin(h.HandleList))
	r.Mux.Handle("POST /v1/admin/users", admin(h.HandleCreate))
	r.Mux.Handle("GET /v1/admin/users/{id}", admin(h.HandleGet))
	r.Mux.Handle("PUT /v1/admin/users/{id}", admin(h.HandleUpdateProfile))
	r.Mux.Handle("DELETE /v1/admin/users/{id}", admin(h.HandleDelete))
	r.Mux.Handle("POST /v1/admin/users/{id}/disable", admin(h.HandleDisable))
	r.Mux.Handle("POST /v1/admin/users/{id}/enable", admin(h.HandleEnable))
	r.Mux.Handle("POST /v1/admin/users/{id}/unlock", admin(h.HandleUnlock))
	r.Mux.Handle("POST /v1/admin/users/{id}/role", admin(h.HandleChangeRole))
	r.Mux.Handle("POST /v1/admin/users/{id}/password", admin(h.HandleResetPassword))
	r.Mux.Handle("GET /v1/admin/users/{id}/failed-logins", admin(h.HandleFailedLogins))
}

func (r *Router) registerAdminAudit() {
	verifier := &sessionVerifier{auth: r.AuthService}
	h := &AuditLogsHandler{AuditQueryService: r.AuditQueryService}

	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.SessionAuthMiddleware(verifier),
			httpx.RequireAnyRole(adminRole),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/admin/audit-logs", admin(h.HandleList))
	r.Mux.Handle("GET /v1/admin/audit-logs/actions", admin(h.HandleActions))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
