//go:build !integration

package payment

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
)

func TestVietQRBuilder_Build(t *testing.T) {
	settings := &model.PaymentSettings{BankID: "970422", AccountID: "0123456789", AccountName: "NGUYEN VAN A"}

	t.Run("renders image path and query", func(t *testing.T) {
		b := NewVietQRBuilder("", "")

		got, err := b.Build(settings, 199000, "01HZYQ8K")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(got, "https://img.vietqr.io/image/970422-0123456789-compact2.png?") {
			t.Fatalf("unexpected url prefix: %s", got)
		}
		u, err := url.Parse(got)
		if err != nil {
			t.Fatalf("invalid url: %v", err)
		}
		q := u.Query()
		if q.Get("amount") != "199000" || q.Get("addInfo") != "01HZYQ8K" || q.Get("accountName") != "NGUYEN VAN A" {
			t.Errorf("unexpected query: %v", q)
		}
	})

	t.Run("custom base and template", func(t *testing.T) {
		b := NewVietQRBuilder("http://qr.local/img/", "qr_only")
		got, _ := b.Build(settings, 1.5, "A1")
		if !strings.HasPrefix(got, "http://qr.local/img/970422-0123456789-qr_only.png?") {
			t.Fatalf("unexpected url: %s", got)
		}
		u, _ := url.Parse(got)
		if u.Query().Get("amount") != "1.5" {
			t.Errorf("unexpected amount in %s", got)
		}
	})

	t.Run("incomplete settings", func(t *testing.T) {
		b := NewVietQRBuilder("", "")
		_, err := b.Build(&model.PaymentSettings{BankID: "970422"}, 1, "A1")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
