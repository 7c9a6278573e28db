package adapter

import (
	"context"

	"custom-billing/internal/domain/model"
)

// PaymentRequestService creates a payment session for a plan.
type PaymentRequestService interface {
	RequestPayment(ctx context.Context, planID, accountID string) (*model.PayRequestResponse, error)
}

// PaymentStatusService reports on the open payment session of an account.
// Implementations return an error wrapping domain.ErrNotFound when the session
// record no longer exists.
type PaymentStatusService interface {
	PaymentStatus(ctx context.Context, accountID string) (*model.PayStatusResponse, error)
}

// ConsoleAPI is everything the application context hydrates from.
type ConsoleAPI interface {
	PaymentRequestService
	PaymentStatusService

	UserProfile(ctx context.Context) (*model.ProfileResponse, error)
	CurrentWorkspace(ctx context.Context) (*model.Workspace, error)
	Apps(ctx context.Context, page, limit int, name string) (*model.AppList, error)
	CustomPlans(ctx context.Context) ([]*model.Plan, error)
	PaymentSettings(ctx context.Context) (*model.PublicPaymentSettings, error)
	Version(ctx context.Context, currentVersion string) (*model.VersionInfo, error)
	Features(ctx context.Context) (*model.FeatureLimits, error)
}

// QRCodeURLBuilder turns a payment intent into an image URL the payer can scan.
type QRCodeURLBuilder interface {
	Build(settings *model.PaymentSettings, amount float64, alias string) (string, error)
}
