package model

import (
	"strings"

	"custom-billing/internal/domain"
)

// PlanFeatures are the workspace limits granted by a custom plan.
type PlanFeatures struct {
	Members              int `json:"members"`
	Apps                 int `json:"apps"`
	VectorSpace          int `json:"vector_space"` // MB
	KnowledgeRateLimit   int `json:"knowledge_rate_limit"`
	AnnotationQuotaLimit int `json:"annotation_quota_limit"`
	DocumentsUploadQuota int `json:"documents_upload_quota"`
}

// Plan is a purchasable custom plan. Price is in VND.
type Plan struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Price          float64      `json:"price"`
	PlanExpiration int          `json:"plan_expiration"` // days
	Features       PlanFeatures `json:"features"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Validate checks the fields an operator can get wrong when editing the plan list.
func (p *Plan) Validate() error {
	if p == nil || strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
		return domain.ErrInvalidArgument
	}
	if p.Price < 0 || p.PlanExpiration < 0 {
		return domain.ErrInvalidArgument
	}
	f := p.Features
	if f.Members < 1 || f.Apps < 0 || f.VectorSpace < 0 || f.KnowledgeRateLimit < 0 ||
		f.AnnotationQuotaLimit < 0 || f.DocumentsUploadQuota < 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// FindPlan returns the plan with the given id from a list, or nil.
func FindPlan(plans []*Plan, id string) *Plan {
	for _, p := range plans {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}
