// Package console is the HTTP client for the console API: payment requests,
// payment status and everything the application context hydrates from.
package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"custom-billing/internal/config"
	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/adapter"
)

var _ adapter.ConsoleAPI = (*Client)(nil)

// APIError is a non-2xx response that is not mapped to a domain error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("console api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("console api: http %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient builds a client for cfg.BaseURL authenticating with cfg.Token.
func NewClient(cfg config.ConsoleConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: console base url is empty", domain.ErrInvalidArgument)
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "console_client").Logger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{log: log}
	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			c.log.Debug().
				Str("method", r.Request.Method).
				Str("url", r.Request.URL).
				Int("status", r.StatusCode()).
				Dur("duration", r.Time()).
				Msg("console api call")
			return nil
		})
	return c, nil
}

func (c *Client) RequestPayment(ctx context.Context, planID, accountID string) (*model.PayRequestResponse, error) {
	var out, errOut model.PayRequestResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"id_plan": planID, "id_account": accountID}).
		SetResult(&out).
		SetError(&errOut).
		Post("/custom/pay_request")
	if err != nil {
		return nil, fmt.Errorf("pay request: %w", err)
	}
	if resp.IsError() {
		// The server explains rejected requests in the body.
		if errOut.Status != "" && !isAuthStatus(resp.StatusCode()) {
			return &errOut, nil
		}
		return nil, fmt.Errorf("pay request: %w", statusError(resp, errOut.Message))
	}
	return &out, nil
}

// PaymentStatus returns an error wrapping domain.ErrNotFound on 404, which
// means the payment was reconciled and the session record removed.
func (c *Client) PaymentStatus(ctx context.Context, accountID string) (*model.PayStatusResponse, error) {
	var out, errOut model.PayStatusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("account_id", accountID).
		SetResult(&out).
		SetError(&errOut).
		Get("/custom/pay_status/{account_id}")
	if err != nil {
		return nil, fmt.Errorf("pay status: %w", err)
	}
	if resp.IsError() {
		if resp.StatusCode() != http.StatusNotFound && errOut.Status != "" && !isAuthStatus(resp.StatusCode()) {
			return &errOut, nil
		}
		return nil, fmt.Errorf("pay status: %w", statusError(resp, errOut.Message))
	}
	return &out, nil
}

// UserProfile also returns the X-Version and X-Env response headers.
func (c *Client) UserProfile(ctx context.Context) (*model.ProfileResponse, error) {
	var p model.UserProfile
	resp, err := c.get(ctx, "/account/profile", nil, &p)
	if err != nil {
		return nil, err
	}
	return &model.ProfileResponse{
		Profile: p,
		Version: resp.Header().Get("X-Version"),
		Env:     resp.Header().Get("X-Env"),
	}, nil
}

func (c *Client) CurrentWorkspace(ctx context.Context) (*model.Workspace, error) {
	var ws model.Workspace
	if _, err := c.get(ctx, "/workspaces/current", nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) Apps(ctx context.Context, page, limit int, name string) (*model.AppList, error) {
	var list model.AppList
	q := map[string]string{
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(limit),
		"name":  name,
	}
	if _, err := c.get(ctx, "/apps", q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) CustomPlans(ctx context.Context) ([]*model.Plan, error) {
	var plans []*model.Plan
	if _, err := c.get(ctx, "/custom/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *Client) PaymentSettings(ctx context.Context) (*model.PublicPaymentSettings, error) {
	var s model.PublicPaymentSettings
	if _, err := c.get(ctx, "/custom/payment_settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Version(ctx context.Context, currentVersion string) (*model.VersionInfo, error) {
	var v model.VersionInfo
	if _, err := c.get(ctx, "/version", map[string]string{"current_version": currentVersion}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) Features(ctx context.Context) (*model.FeatureLimits, error) {
	var f model.FeatureLimits
	if _, err := c.get(ctx, "/features", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) (*resty.Response, error) {
	var errOut errorBody
	req := c.http.R().SetContext(ctx).SetResult(out).SetError(&errOut)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: %w", path, statusError(resp, errOut.Message))
	}
	return resp, nil
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func statusError(resp *resty.Response, msg string) error {
	var sentinel error
	switch resp.StatusCode() {
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusUnauthorized:
		sentinel = domain.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = domain.ErrForbidden
	case http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimited
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: msg}
	if sentinel == nil {
		return apiErr
	}
	return errors.Join(sentinel, apiErr)
}
