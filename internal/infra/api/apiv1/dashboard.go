package apiv1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/infra/logging"
	"custom-billing/internal/infra/metrics"
	"custom-billing/internal/usecase"
)

func track(command string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IncDashboardCommand(command, status)
}

// ---- plans ----

func (s *Server) dashboardListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Plans.List(r.Context())
	track("plan_list", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) dashboardReplacePlans(w http.ResponseWriter, r *http.Request) {
	var plans []*model.Plan
	if err := decodeJSON(w, r, &plans); err != nil {
		track("plan_replace", err)
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err := s.Plans.Replace(r.Context(), plans)
	track("plan_replace", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, "Plan updated successfully.")
}

// ---- accounts ----

func (s *Server) dashboardListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.Accounts.List(r.Context())
	track("account_list", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) dashboardGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.Accounts.Get(r.Context(), strings.TrimSpace(chi.URLParam(r, "account_id")))
	track("account_get", err)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Account not found.")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) dashboardUpdateAccounts(w http.ResponseWriter, r *http.Request) {
	var updates []*model.AccountUpdate
	if err := decodeJSON(w, r, &updates); err != nil {
		track("account_update", err)
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err := s.Accounts.BulkUpdate(r.Context(), updates)
	track("account_update", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("%d accounts updated.", len(updates)))
}

func (s *Server) dashboardDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "account_id"))
	err := s.Accounts.Delete(r.Context(), id)
	track("account_delete", err)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Account %s not found.", id))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, fmt.Sprintf("Account %s deleted.", id))
}

func (s *Server) dashboardAccountFeatures(w http.ResponseWriter, r *http.Request) {
	f, err := s.Features.ForAccount(r.Context(), strings.TrimSpace(chi.URLParam(r, "account_id")))
	track("account_features", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ---- payments ----

func (s *Server) dashboardHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Payments.History(r.Context())
	track("payment_history", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) dashboardGetSettings(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Payments.Settings(r.Context())
	track("settings_get", err)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusOK, model.PaymentSettings{})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) dashboardSaveSettings(w http.ResponseWriter, r *http.Request) {
	var ps model.PaymentSettings
	if err := decodeJSON(w, r, &ps); err != nil {
		track("settings_save", err)
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err := s.Payments.SaveSettings(r.Context(), &ps)
	track("settings_save", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOK(w, "Payment settings updated successfully.")
}

// ---- bank webhook ----

type webhookBody struct {
	Data []*model.BankTransfer `json:"data"`
}

type webhookItem struct {
	TransactionID string                 `json:"transactionID"`
	Outcome       usecase.WebhookOutcome `json:"outcome"`
}

// webhookKey accepts "Apikey: <key>" or "Authorization: Apikey <key>".
func webhookKey(r *http.Request) string {
	if k := r.Header.Get("Apikey"); k != "" {
		return strings.TrimSpace(k)
	}
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "apikey ") {
		return strings.TrimSpace(hdr[7:])
	}
	return ""
}

func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, reason := "ok", "activated"
	defer func() {
		metrics.WebhookRequests.WithLabelValues(result, reason).Inc()
		metrics.WebhookDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()
	log := logging.With(r.Context(), s.log)

	var body webhookBody
	if err := decodeJSON(w, r, &body); err != nil {
		result, reason = "fail", "bad_json"
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	key := webhookKey(r)
	if err := s.Payments.AuthorizeWebhook(r.Context(), key); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			result, reason = "fail", "unauthorized"
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		result, reason = "fail", "error"
		log.Error().Err(err).Msg("webhook authorization failed")
		writeDomainError(w, err)
		return
	}

	items := make([]webhookItem, 0, len(body.Data))
	for _, t := range body.Data {
		res, err := s.Payments.HandleWebhook(r.Context(), key, t)
		if err != nil {
			result, reason = "fail", "error"
			log.Error().Err(err).Msg("webhook transfer failed")
			writeDomainError(w, err)
			return
		}
		if res.Outcome != usecase.WebhookActivated {
			result, reason = "ignored", string(res.Outcome)
		}
		items = append(items, webhookItem{TransactionID: t.TransactionID, Outcome: res.Outcome})
	}
	if len(items) == 0 {
		result, reason = "ignored", "empty"
	}
	writeJSON(w, http.StatusOK, struct {
		Status  string        `json:"status"`
		Results []webhookItem `json:"results"`
	}{Status: domainStatusSuccess, Results: items})
}
