package model

import "time"

// PaymentAlias binds an open bank-transfer payment to an account. The alias is the
// session token echoed by status polls and the reference the payer puts in the
// transfer description. The row is deleted once the transfer is reconciled.
type PaymentAlias struct {
	ID        string        `json:"id"`
	AccountID string        `json:"id_account"`
	Alias     string        `json:"alies"`
	Value     PaymentIntent `json:"value"`
	CreatedAt time.Time     `json:"created_at"`
}

// PaymentIntent is what the alias was issued for.
type PaymentIntent struct {
	PlanID string  `json:"id_plan"`
	Amount float64 `json:"amount"`
}

// PaymentHistory is a bank transfer received through the webhook.
type PaymentHistory struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"id_account"`
	PlanID        string  `json:"id_plan"`
	Type          string  `json:"type"`
	TransactionID string  `json:"transactionID"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Date          string  `json:"date"`
	Bank          string  `json:"bank"`
	// Alias is the payment session the transfer was matched to, if any.
	Alias string `json:"alies,omitempty"`
}

// PaymentSettings describe the receiving bank account and the webhook secret.
type PaymentSettings struct {
	AccessToken string `json:"access_token"`
	AccountName string `json:"account_name"`
	AccountID   string `json:"account_id"`
	BankID      string `json:"bank_id"`
}

// PublicPaymentSettings is the subset of PaymentSettings safe to show to console users.
type PublicPaymentSettings struct {
	AccountName string `json:"account_name"`
	AccountID   string `json:"account_id"`
	BankID      string `json:"bank_id"`
}

func (s PaymentSettings) Public() PublicPaymentSettings {
	return PublicPaymentSettings{AccountName: s.AccountName, AccountID: s.AccountID, BankID: s.BankID}
}

// BankTransfer is a single transaction pushed by the bank-notification provider.
type BankTransfer struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	TransactionID string  `json:"transactionID"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Date          string  `json:"date"`
	Bank          string  `json:"bank"`
}
