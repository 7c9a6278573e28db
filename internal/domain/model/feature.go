package model

// FeatureLimits is the resolved set of limits for a workspace owner.
type FeatureLimits struct {
	Members              int `json:"members"`
	Apps                 int `json:"apps"`
	VectorSpace          int `json:"vector_space"`
	KnowledgeRateLimit   int `json:"knowledge_rate_limit"`
	AnnotationQuotaLimit int `json:"annotation_quota_limit"`
	DocumentsUploadQuota int `json:"documents_upload_quota"`
	// PlanID is the custom plan the limits come from, empty for defaults.
	PlanID string `json:"plan_id,omitempty"`
}
