package apiv1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/infra/logging"
)

// ---- payment session ----

type payRequestBody struct {
	PlanID    string `json:"id_plan"`
	AccountID string `json:"id_account"`
}

func (s *Server) payRequest(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var body payRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.AccountID == "" {
		body.AccountID = accountID
	}
	if body.AccountID != accountID {
		writeError(w, http.StatusForbidden, "account mismatch")
		return
	}

	req, err := s.Payments.RequestPayment(r.Context(), accountID, strings.TrimSpace(body.PlanID))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			logging.With(r.Context(), s.log).Error().Err(err).Str("plan_id", body.PlanID).Msg("pay_request failed")
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PayRequestResponse{Status: domainStatusSuccess, URL: req.URL, Alias: req.Alias})
}

func (s *Server) payStatus(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if chi.URLParam(r, "account_id") != accountID {
		writeError(w, http.StatusForbidden, "account mismatch")
		return
	}
	a, err := s.Payments.Status(r.Context(), accountID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PayStatusResponse{Status: domainStatusSuccess, Alias: a.Alias})
}

// ---- hydration ----

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	acc, err := s.Accounts.Get(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	p := model.UserProfile{ID: acc.ID, Name: acc.Name, Email: acc.Email, IsPasswordSet: true}
	if acc.CustomPlanID != nil {
		p.CustomPlanID = *acc.CustomPlanID
	}
	if acc.PlanExpiration != nil {
		exp := acc.PlanExpiration.UTC().Format(time.RFC3339)
		p.PlanExpiration = &exp
	}
	w.Header().Set("X-Version", s.build.Version)
	w.Header().Set("X-Env", s.build.Env)
	writeJSON(w, http.StatusOK, p)
}

// getWorkspace reports a personal workspace owned by the caller; billing has no
// workspace store of its own.
func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	acc, err := s.Accounts.Get(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	plan := "sandbox"
	if acc.HasActivePlan(time.Now()) {
		plan = *acc.CustomPlanID
	}
	writeJSON(w, http.StatusOK, model.Workspace{
		ID:        acc.ID,
		Name:      acc.Name,
		Plan:      plan,
		Status:    "normal",
		CreatedAt: acc.CreatedAt.Unix(),
		Role:      model.RoleOwner,
		Providers: []any{},
	})
}

func (s *Server) listApps(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 30
	}
	writeJSON(w, http.StatusOK, model.AppList{Data: []model.App{}, Page: page, Limit: limit})
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.VersionInfo{
		CurrentEnv:     s.build.Env,
		CurrentVersion: r.URL.Query().Get("current_version"),
		LatestVersion:  s.build.Version,
		Version:        s.build.Version,
	})
}

func (s *Server) getFeatures(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	f, err := s.Features.ForAccount(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Plans.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) getPublicSettings(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Payments.PublicSettings(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusOK, model.PublicPaymentSettings{})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
