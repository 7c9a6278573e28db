package model

import "time"

// Account is a console account together with its custom-plan bookkeeping.
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`

	CustomPlanID            *string    `json:"id_custom_plan"`
	PlanExpiration          *time.Time `json:"plan_expiration"`
	MonthBeforeBanned       int        `json:"month_before_banned"`
	MaxOfApps               int        `json:"max_of_apps"`
	MaxVectorSpace          int        `json:"max_vector_space"`
	MaxAnnotationQuotaLimit int        `json:"max_annotation_quota_limit"`
	MaxDocumentsUploadQuota int        `json:"max_documents_upload_quota"`

	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  *string    `json:"last_login_ip"`
	LastActiveAt time.Time  `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// HasActivePlan reports whether the account holds a custom plan that has not expired at now.
func (a *Account) HasActivePlan(now time.Time) bool {
	if a == nil || a.CustomPlanID == nil || *a.CustomPlanID == "" || a.PlanExpiration == nil {
		return false
	}
	return a.PlanExpiration.After(now)
}

// ActivatePlan assigns planID and extends the expiry by days, starting from the later of now
// and the current expiry so that early renewals are not lost.
func (a *Account) ActivatePlan(planID string, days int, now time.Time) {
	start := now
	if a.PlanExpiration != nil && a.PlanExpiration.After(now) {
		start = *a.PlanExpiration
	}
	exp := start.Add(time.Duration(days) * 24 * time.Hour)
	id := planID
	a.CustomPlanID = &id
	a.PlanExpiration = &exp
	a.UpdatedAt = now
}

// AccountUpdate carries the operator-editable columns of an account.
type AccountUpdate struct {
	ID                      string     `json:"id"`
	Status                  string     `json:"status"`
	CustomPlanID            *string    `json:"id_custom_plan"`
	PlanExpiration          *time.Time `json:"plan_expiration"`
	MonthBeforeBanned       int        `json:"month_before_banned"`
	MaxOfApps               int        `json:"max_of_apps"`
	MaxVectorSpace          int        `json:"max_vector_space"`
	MaxAnnotationQuotaLimit int        `json:"max_annotation_quota_limit"`
	MaxDocumentsUploadQuota int        `json:"max_documents_upload_quota"`
}
