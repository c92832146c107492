package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/logging"
)

const (
	endpointPlans = "plans"
	endpointUsers = "users"

	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 8 << 20
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the panel API prefix, e.g. "https://host/panel/api.php?path=".
	BaseURL string
	// AdminToken is the bearer token of the privileged panel account.
	AdminToken string
	// Timeout bounds every request. Zero means 15s.
	Timeout time.Duration
	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client
	// Passwords generates user passwords. Nil means GeneratePassword.
	Passwords func() (string, error)
	Logger    logging.Logger
}

type Client struct {
	baseURL    string
	adminToken string
	timeout    time.Duration
	httpClient *http.Client
	passwords  func() (string, error)
	logger     logging.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("panel: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("panel: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	passwords := cfg.Passwords
	if passwords == nil {
		passwords = GeneratePassword
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		adminToken: cfg.AdminToken,
		timeout:    timeout,
		httpClient: httpClient,
		passwords:  passwords,
		logger:     logger.With("component", "panel"),
	}, nil
}

// ListPlans fetches every plan, active or not. Failures are logged and
// reported as an empty slice.
func (c *Client) ListPlans(ctx context.Context) []domain.Plan {
	plans, err := c.fetchPlans(ctx)
	if err != nil {
		c.logger.Error(ctx, "list plans failed", "error", err)
		return []domain.Plan{}
	}
	return plans
}

func (c *Client) fetchPlans(ctx context.Context) ([]domain.Plan, error) {
	env, err := c.doRequest(ctx, http.MethodGet, endpointPlans, nil, true)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, c.apiError(http.MethodGet, endpointPlans, fmt.Errorf("unsuccessful response: %s", env.Message))
	}

	dtos, err := decodeList[planDTO](env.Data)
	if err != nil {
		return nil, c.apiError(http.MethodGet, endpointPlans, fmt.Errorf("decode plans: %w", err))
	}
	plans := make([]domain.Plan, 0, len(dtos))
	for _, d := range dtos {
		plans = append(plans, d.toDomain())
	}
	return plans, nil
}

// CreateUser provisions the panel account tg_user_<requesterID> on the
// given plan with a freshly generated password.
func (c *Client) CreateUser(ctx context.Context, requesterID, planID int64) (domain.ProvisionedAccount, error) {
	username := domain.PanelUsername(requesterID)
	password, err := c.passwords()
	if err != nil {
		return domain.ProvisionedAccount{}, err
	}

	plans, err := c.fetchPlans(ctx)
	if err != nil {
		return domain.ProvisionedAccount{}, err
	}
	plan := domain.FindPlan(plans, planID)
	if plan == nil {
		return domain.ProvisionedAccount{}, fmt.Errorf("plan %d: %w", planID, domain.ErrPlanNotFound)
	}

	req := createUserRequest{
		Username: username,
		Password: password,
		PlanID:   planID,
		Status:   "active",
	}
	env, err := c.doRequest(ctx, http.MethodPost, endpointUsers, req, true)
	if err != nil {
		c.logger.Error(ctx, "create user failed", "username", username, "plan_id", planID, "error", err)
		return domain.ProvisionedAccount{}, err
	}
	if !env.ok() {
		msg := env.Message
		if msg == "" {
			msg = "user creation failed"
		}
		c.logger.Error(ctx, "create user rejected", "username", username, "plan_id", planID, "message", msg)
		return domain.ProvisionedAccount{}, &ProvisioningError{Message: msg}
	}

	c.logger.Info(ctx, "panel user created", "username", username, "plan_id", planID)
	return domain.ProvisionedAccount{
		Username:      username,
		Password:      password,
		PlanName:      plan.Name,
		ServerMessage: env.Message,
	}, nil
}

// GetUserStatus scans the full user list for the requester's username.
// The panel offers no filtered lookup. Returns nil if absent or on failure.
func (c *Client) GetUserStatus(ctx context.Context, requesterID int64) *domain.AccountStatus {
	username := domain.PanelUsername(requesterID)

	env, err := c.doRequest(ctx, http.MethodGet, endpointUsers, nil, true)
	if err != nil {
		c.logger.Error(ctx, "get user status failed", "username", username, "error", err)
		return nil
	}
	if !env.ok() {
		c.logger.Error(ctx, "get user status unsuccessful", "username", username, "message", env.Message)
		return nil
	}

	users, err := decodeList[userDTO](env.Data)
	if err != nil {
		c.logger.Error(ctx, "decode users failed", "error", err)
		return nil
	}
	for _, u := range users {
		if u.Username == username {
			status := u.toDomain()
			return &status
		}
	}
	return nil
}

// doRequest performs one panel call and decodes the response envelope.
// Transport errors, non-2xx statuses and undecodable bodies all come back
// as *APIError. A decoded envelope is returned whatever its status.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, adminAuth bool) (envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return envelope{}, c.apiError(method, endpoint, fmt.Errorf("encode request: %w", err))
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return envelope{}, c.apiError(method, endpoint, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if adminAuth {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, c.apiError(method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, c.apiError(method, endpoint, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn(ctx, "panel returned error status", "method", method, "endpoint", endpoint,
			"status", resp.StatusCode, "body", truncate(raw, 512))
		return envelope{}, &APIError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn(ctx, "panel returned malformed body", "method", method, "endpoint", endpoint,
			"body", truncate(raw, 512))
		return envelope{}, c.apiError(method, endpoint, fmt.Errorf("decode response: %w", err))
	}
	return env, nil
}

func (c *Client) apiError(method, endpoint string, err error) *APIError {
	return &APIError{Method: method, Endpoint: endpoint, Err: err}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
