package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/httpx"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/slogx"

	_ "github.com/stshume/ohh-marketplace-auth-service/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	Credentials *service.CredentialService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
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
	r.registerUsers()
	r.registerWellKnown()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			OOH Marketplace Identity Service API
//	@version		0.1.0
//	@description	Account registration, login, email verification and password reset for the OOH Marketplace.
//	@description
//	@description				Session tokens are JWTs whose subject is the account email and whose scope is the account role. They can be verified using the JWKS endpoint.
//
//	@contact.name				OOH Marketplace Team
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	r.Mux.Handle("POST /user/register", &RegisterHandler{Credentials: r.Credentials})
	r.Mux.Handle("POST /user/login", &LoginHandler{Credentials: r.Credentials})
	r.Mux.Handle("POST /user/forgot-password", &ForgotPasswordHandler{Credentials: r.Credentials})
	r.Mux.Handle("POST /user/reset-password", &ResetPasswordHandler{Credentials: r.Credentials})

	verify := &VerifyEmailHandler{Credentials: r.Credentials}
	r.Mux.Handle("GET /user/verify-email/{token}", verify)
	r.Mux.Handle("GET /user/verify-email", verify)

	// Any registered role may read its own session.
	roles := make([]string, 0, len(domain.Roles()))
	for _, role := range domain.Roles() {
		roles = append(roles, role.String())
	}
	secured := httpx.Chain(&MeHandler{},
		httpx.AuthnMiddleware(r.verifier), // verify JWT (iss/exp)
		httpx.RequireAnyScope(roles...),
	)
	r.Mux.Handle("GET /user/me", secured)
}

func (r *Router) registerWellKnown() {
	r.Mux.Handle("GET /.well-known/jwks.json", JWKSHandler(r.keys))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
}
