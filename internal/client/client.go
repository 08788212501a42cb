// Package client implements the remote identity-service repository over
// HTTP.
//
// Every call is routed through the retry combinator with a transient-only
// predicate: HTTP 429 and 5xx responses are translated into a
// transient-marked error before the generic error path sees them, so only
// those (and network failures) are retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"idsync.io/idsync/internal/domain"
	apperrors "idsync.io/idsync/internal/pkg/errors"
	"idsync.io/idsync/internal/pkg/retry"
)

// DefaultNamespace is the well-known default scope for all operations.
const DefaultNamespace = "system"

// Config carries connection and credential settings for the client.
type Config struct {
	TenantID string

	// APIURL overrides the default per-tenant console endpoint.
	APIURL string

	// Exactly one credential set is required: token, cert+key, or
	// p12+password.
	APIToken    string
	CertFile    string
	CertKeyFile string
	P12File     string
	P12Password string

	Timeout time.Duration

	// Retry tuning for the HTTP layer.
	MaxRetries        int
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	BackoffMultiplier float64
}

// Client is an identity-service API client with automatic retry for
// transient errors.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	retry      retry.Policy
}

// New creates a configured client, validating that a usable credential set
// was provided.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.console.example.io", cfg.TenantID)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: baseURL,
		timeout: timeout,
		retry: retry.Policy{
			Attempts:    cfg.MaxRetries,
			MinInterval: cfg.BackoffMin,
			MaxInterval: cfg.BackoffMax,
			Multiplier:  cfg.BackoffMultiplier,
			RetryIf:     IsTransient,
		},
	}
	if c.retry.MaxInterval <= 0 {
		c.retry.MaxInterval = 8 * time.Second
	}

	switch {
	case cfg.APIToken != "":
		c.token = cfg.APIToken
		c.httpClient = &http.Client{Timeout: timeout}
	case cfg.P12File != "" && cfg.P12Password != "":
		cert, err := loadP12Certificate(cfg.P12File, cfg.P12Password)
		if err != nil {
			return nil, err
		}
		c.httpClient = newMTLSClient(cert, timeout)
	case cfg.CertFile != "" && cfg.CertKeyFile != "":
		cert, err := loadKeyPair(cfg.CertFile, cfg.CertKeyFile)
		if err != nil {
			return nil, err
		}
		c.httpClient = newMTLSClient(cert, timeout)
	default:
		return nil, apperrors.ErrAuthConfigInvalid(
			"no authentication provided (token, cert/key, or p12/password)")
	}

	return c, nil
}

// do issues one HTTP request through the retry policy, decoding a JSON
// response into out when non-nil. The request body is re-sent on every
// attempt.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "APIToken "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s %s: read response: %w", method, path, err)
		}

		if resp.StatusCode >= 400 {
			return &APIError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Body:       string(data),
			}
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("%s %s: decode response: %w", method, path, err)
			}
		}
		return nil
	}

	return retry.Do(ctx, c.retry, op)
}

func nsPath(namespace, suffix string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return "/api/web/custom/namespaces/" + url.PathEscape(namespace) + suffix
}

type groupList struct {
	Items []domain.GroupRecord `json:"items"`
}

type userList struct {
	Items []domain.UserRecord `json:"items"`
}

// ListGroups lists all user groups in the namespace.
func (c *Client) ListGroups(ctx context.Context, namespace string) ([]domain.GroupRecord, error) {
	var list groupList
	if err := c.do(ctx, http.MethodGet, nsPath(namespace, "/user_groups"), nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// CreateGroup creates a user group with the full desired payload.
func (c *Client) CreateGroup(ctx context.Context, namespace string, payload domain.GroupPayload) (*domain.GroupRecord, error) {
	if err := domain.Validate(payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGroupNameInvalid, "invalid group payload", apperrors.KindRuntime)
	}
	var rec domain.GroupRecord
	if err := c.do(ctx, http.MethodPost, nsPath(namespace, "/user_groups"), payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateGroup replaces a group wholesale with the desired payload.
func (c *Client) UpdateGroup(ctx context.Context, namespace, name string, payload domain.GroupPayload) (*domain.GroupRecord, error) {
	if err := domain.Validate(payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGroupNameInvalid, "invalid group payload", apperrors.KindRuntime)
	}
	var rec domain.GroupRecord
	if err := c.do(ctx, http.MethodPut, nsPath(namespace, "/user_groups/"+url.PathEscape(name)), payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteGroup deletes a user group by name.
func (c *Client) DeleteGroup(ctx context.Context, namespace, name string) error {
	return c.do(ctx, http.MethodDelete, nsPath(namespace, "/user_groups/"+url.PathEscape(name)), nil, nil)
}

// ListUserRoles lists users with their role assignments. Used both for
// existing-group-member validation and the user engine's state fetch.
func (c *Client) ListUserRoles(ctx context.Context, namespace string) ([]domain.UserRecord, error) {
	var list userList
	if err := c.do(ctx, http.MethodGet, nsPath(namespace, "/user_roles"), nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListUsers is an alias for ListUserRoles for the user engine.
func (c *Client) ListUsers(ctx context.Context, namespace string) ([]domain.UserRecord, error) {
	return c.ListUserRoles(ctx, namespace)
}

// GetUser fetches a single user by email.
func (c *Client) GetUser(ctx context.Context, namespace, email string) (*domain.UserRecord, error) {
	var rec domain.UserRecord
	if err := c.do(ctx, http.MethodGet, nsPath(namespace, "/user_roles/"+url.PathEscape(email)), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ProvisionUser creates a user from the minimal payload, for on-demand
// provisioning during group sync.
func (c *Client) ProvisionUser(ctx context.Context, namespace, email string) (*domain.UserRecord, error) {
	payload := domain.UserProvisionPayload{Email: email}
	var rec domain.UserRecord
	if err := c.do(ctx, http.MethodPost, nsPath(namespace, "/user_roles"), payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateUser creates a user with the user-engine creation payload.
func (c *Client) CreateUser(ctx context.Context, namespace string, payload domain.UserCreatePayload) (*domain.UserRecord, error) {
	var rec domain.UserRecord
	if err := c.do(ctx, http.MethodPost, nsPath(namespace, "/user_roles"), payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateUser replaces a user wholesale with the full desired model.
func (c *Client) UpdateUser(ctx context.Context, namespace, email string, user domain.User) (*domain.UserRecord, error) {
	var rec domain.UserRecord
	if err := c.do(ctx, http.MethodPut, nsPath(namespace, "/user_roles/"+url.PathEscape(email)), user, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteUser deletes a user by email.
func (c *Client) DeleteUser(ctx context.Context, namespace, email string) error {
	return c.do(ctx, http.MethodDelete, nsPath(namespace, "/user_roles/"+url.PathEscape(email)), nil, nil)
}
