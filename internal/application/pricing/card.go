// Package pricing turns custom plans into the labels a plan card shows.
package pricing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"custom-billing/internal/domain/model"
)

const currencySuffix = " VNĐ"

type Translator interface {
	T(key string, args ...interface{}) string
}

// Card is one plan as seen by one user.
type Card struct {
	Plan      *model.Plan
	profile   model.UserProfile
	canManage bool
	tr        Translator
}

func NewCard(plan *model.Plan, profile model.UserProfile, canManage bool, tr Translator) Card {
	return Card{Plan: plan, profile: profile, canManage: canManage, tr: tr}
}

// Cards builds one card per plan in the given order.
func Cards(plans []*model.Plan, profile model.UserProfile, canManage bool, tr Translator) []Card {
	out := make([]Card, 0, len(plans))
	for _, p := range plans {
		if p == nil {
			continue
		}
		out = append(out, NewCard(p, profile, canManage, tr))
	}
	return out
}

func (c Card) IsCurrent() bool {
	return c.profile.CustomPlanID != "" && c.Plan.ID == c.profile.CustomPlanID
}

// CanPay reports whether the buy button should trigger a purchase.
func (c Card) CanPay(processing bool) bool {
	return c.canManage && !c.IsCurrent() && !processing
}

func (c Card) PriceLabel() string {
	return FormatVND(c.Plan.Price) + currencySuffix
}

func (c Card) PeriodLabel() string {
	return "/ " + c.t("billing.labels.days", c.Plan.PlanExpiration)
}

// ExpiresLabel is empty unless the card is the current plan.
func (c Card) ExpiresLabel() string {
	if !c.IsCurrent() {
		return ""
	}
	if c.profile.PlanExpiration == nil || *c.profile.PlanExpiration == "" {
		return c.t("billing.labels.not_available")
	}
	d, ok := parseDate(*c.profile.PlanExpiration)
	if !ok {
		return c.t("billing.labels.invalid_date")
	}
	return c.t("billing.labels.expires", d.Format("January 2, 2006"))
}

func (c Card) ButtonLabel(processing bool) string {
	switch {
	case c.IsCurrent():
		return c.t("billing.labels.current_plan")
	case processing:
		return c.t("billing.labels.processing")
	default:
		return c.t("billing.labels.buy")
	}
}

// FeatureLines lists the plan limits in display order.
func (c Card) FeatureLines() []string {
	f := c.Plan.Features
	return []string{
		c.t("billing.features.members", f.Members),
		c.t("billing.features.apps", f.Apps),
		c.t("billing.features.vector_space", f.VectorSpace),
		c.t("billing.features.documents_upload_quota", f.DocumentsUploadQuota),
		c.t("billing.features.annotation_quota_limit", f.AnnotationQuotaLimit),
		c.t("billing.features.knowledge_rate_limit", f.KnowledgeRateLimit),
	}
}

func (c Card) t(key string, args ...interface{}) string {
	if c.tr == nil {
		return key
	}
	return c.tr.T(key, args...)
}

// FormatVND formats an amount the vi-VN way: '.' groups thousands, ',' marks
// decimals, at most three fraction digits.
func FormatVND(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0"
	}
	neg := amount < 0
	amount = math.Round(math.Abs(amount)*1000) / 1000
	s := strconv.FormatFloat(amount, 'f', -1, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg && s != "0" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
