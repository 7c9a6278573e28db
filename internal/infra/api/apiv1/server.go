package apiv1

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"custom-billing/internal/domain"
	"custom-billing/internal/infra/logging"
	"custom-billing/internal/usecase"
)

// Authenticator resolves the console account behind a request.
type Authenticator interface {
	Authenticate(r *http.Request) (accountID string, err error)
}

// Deps are the use cases the routes call.
type Deps struct {
	Plans    usecase.PlanUseCase
	Accounts usecase.AccountUseCase
	Payments usecase.PaymentUseCase
	Features usecase.FeatureUseCase
}

type BuildInfo struct {
	Version string
	Env     string
}

// Server holds the handlers for the console and dashboard surfaces.
type Server struct {
	Deps
	auth  Authenticator
	guard func(http.Handler) http.Handler
	build BuildInfo
	log   *zerolog.Logger
}

// NewServer builds the handlers. guard protects the dashboard routes; nil leaves them open.
func NewServer(deps Deps, auth Authenticator, guard func(http.Handler) http.Handler, build BuildInfo, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if guard == nil {
		guard = func(h http.Handler) http.Handler { return h }
	}
	return &Server{Deps: deps, auth: auth, guard: guard, build: build, log: logger}
}

// RegisterAPIV1 mounts /console/api and /dashboard on r.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/console/api", func(r chi.Router) {
		r.Use(s.requireAccount)
		r.Get("/account/profile", s.getProfile)
		r.Get("/workspaces/current", s.getWorkspace)
		r.Get("/apps", s.listApps)
		r.Get("/version", s.getVersion)
		r.Get("/features", s.getFeatures)

		r.Route("/custom", func(r chi.Router) {
			r.Get("/plans", s.listPlans)
			r.Get("/payment_settings", s.getPublicSettings)
			r.Post("/pay_request", s.payRequest)
			r.Get("/pay_status/{account_id}", s.payStatus)
		})
	})

	r.Route("/dashboard", func(r chi.Router) {
		// the bank authenticates with its own Apikey header
		r.Post("/payment/webhook", s.paymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.guard)
			r.Get("/plans", s.dashboardListPlans)
			r.Put("/plans", s.dashboardReplacePlans)

			r.Get("/accounts", s.dashboardListAccounts)
			r.Put("/accounts", s.dashboardUpdateAccounts)
			r.Get("/accounts/{account_id}", s.dashboardGetAccount)
			r.Delete("/accounts/{account_id}", s.dashboardDeleteAccount)
			r.Get("/accounts/{account_id}/features", s.dashboardAccountFeatures)

			r.Get("/payment_history", s.dashboardHistory)
			r.Get("/payment_settings", s.dashboardGetSettings)
			r.Put("/payment_settings", s.dashboardSaveSettings)
		})
	})
}

type ctxKey struct{}

func (s *Server) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := s.auth.Authenticate(r)
		if err != nil || id == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		ctx = logging.WithAccountID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}
