package payment

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/adapter"
)

var _ adapter.QRCodeURLBuilder = (*VietQRBuilder)(nil)

// VietQRBuilder renders img.vietqr.io "quick link" URLs. The image encodes a
// NAPAS transfer to the configured bank account with amount and description prefilled.
type VietQRBuilder struct {
	base     string
	template string
}

// NewVietQRBuilder builds URLs under base (https://img.vietqr.io/image by default)
// using the given image template (compact2 by default).
func NewVietQRBuilder(base, template string) *VietQRBuilder {
	if base == "" {
		base = "https://img.vietqr.io/image"
	}
	if template == "" {
		template = "compact2"
	}
	return &VietQRBuilder{base: strings.TrimRight(base, "/"), template: template}
}

func (b *VietQRBuilder) Build(settings *model.PaymentSettings, amount float64, alias string) (string, error) {
	if settings == nil || settings.BankID == "" || settings.AccountID == "" {
		return "", fmt.Errorf("%w: payment settings are incomplete", domain.ErrInvalidArgument)
	}
	if alias == "" {
		return "", errors.New("vietqr: empty alias")
	}
	if amount < 0 {
		return "", fmt.Errorf("%w: negative amount", domain.ErrInvalidArgument)
	}

	q := url.Values{}
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	q.Set("addInfo", alias)
	if settings.AccountName != "" {
		q.Set("accountName", settings.AccountName)
	}
	path := fmt.Sprintf("%s-%s-%s.png", url.PathEscape(settings.BankID), url.PathEscape(settings.AccountID), b.template)
	return b.base + "/" + path + "?" + q.Encode(), nil
}
