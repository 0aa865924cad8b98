// Package workspace talks to the control plane that fronts managed Postgres
// instances: a thin REST client plus the credential source pkg/auth consumes.
package workspace

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/systmms/lakebench/internal/logging"
	"github.com/systmms/lakebench/internal/secure"
)

const (
	instancesPath   = "/api/2.0/database/instances"
	credentialsPath = "/api/2.0/database/credentials"
	currentUserPath = "/api/2.0/preview/scim/v2/Me"

	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB

	defaultTimeout = 30 * time.Second
)

// Client is an HTTP client for the workspace control plane. The access token
// lives in an encrypted enclave and is decrypted only for the instant each
// request is signed.
type Client struct {
	baseURL string
	token   *secure.Buffer
	http    *http.Client
	logger  *logging.Logger
}

// ClientConfig carries what NewClient needs. Host may omit the scheme; https
// is assumed.
type ClientConfig struct {
	Host    string
	Token   logging.Secret
	Timeout time.Duration
	Logger  *logging.Logger
}

// NewClient validates the host, seals the token, and prepares a client with a
// TLS 1.2 floor.
func NewClient(cfg ClientConfig) (*Client, error) {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("workspace host is empty")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	parsed, err := url.Parse(host)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("workspace host %q is not a valid URL", cfg.Host)
	}
	if string(cfg.Token) == "" {
		return nil, fmt.Errorf("workspace token is empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(false, true)
	}

	return &Client{
		baseURL: host,
		token:   secure.NewBufferFromString(string(cfg.Token)),
		http: &http.Client{
			Timeout:   timeout,
			Transport: hardenedTransport(),
		},
		logger: logger,
	}, nil
}

// hardenedTransport clones the default transport and raises the TLS floor to
// 1.2; the stock client config still admits 1.0.
func hardenedTransport() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}}
	}
	cloned := base.Clone()
	switch {
	case cloned.TLSClientConfig == nil:
		cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	case cloned.TLSClientConfig.MinVersion < tls.VersionTLS12:
		cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
		cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
	}
	return cloned
}

// Close shreds the held access token. The client is unusable afterwards.
func (c *Client) Close() {
	c.token.Destroy()
}

// GetDatabaseInstance fetches a single instance by name. A missing instance
// surfaces as an *APIError that IsNotFound recognizes.
func (c *Client) GetDatabaseInstance(ctx context.Context, name string) (*DatabaseInstance, error) {
	if name == "" {
		return nil, fmt.Errorf("instance name is empty")
	}
	var inst DatabaseInstance
	if err := c.do(ctx, http.MethodGet, instancesPath+"/"+url.PathEscape(name), nil, nil, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// ListDatabaseInstances walks every page of the instance listing.
func (c *Client) ListDatabaseInstances(ctx context.Context) ([]DatabaseInstance, error) {
	var all []DatabaseInstance
	pageToken := ""
	for {
		var query url.Values
		if pageToken != "" {
			query = url.Values{"page_token": {pageToken}}
		}
		var page struct {
			Instances     []DatabaseInstance `json:"database_instances"`
			NextPageToken string             `json:"next_page_token"`
		}
		if err := c.do(ctx, http.MethodGet, instancesPath, query, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Instances...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// GenerateCredential mints a short-lived database token for the named
// instances. The request ID deduplicates retries on the control-plane side;
// callers pass a fresh one per logical mint.
func (c *Client) GenerateCredential(ctx context.Context, requestID string, instanceNames []string) (*Credential, error) {
	body := map[string]interface{}{
		"request_id":     requestID,
		"instance_names": instanceNames,
	}
	var cred Credential
	if err := c.do(ctx, http.MethodPost, credentialsPath, nil, body, &cred); err != nil {
		return nil, err
	}
	if cred.Token == "" {
		return nil, fmt.Errorf("control plane returned an empty credential token")
	}
	return &cred, nil
}

// CurrentUser returns the identity the access token authenticates as.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, currentUserPath, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Ping is a cheap reachability-and-auth probe: it succeeds when the control
// plane answers and accepts the token.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.CurrentUser(ctx)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	c.logger.Debug("Workspace API request: %s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}

	data, truncated, err := readCapped(resp.Body, maxResponseBytes)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	if truncated {
		return fmt.Errorf("%s %s: response body exceeds %d bytes", method, path, maxResponseBytes)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// authorize sets the bearer header. The token plaintext exists only inside
// the callback.
func (c *Client) authorize(req *http.Request) error {
	return c.token.WithBytes(func(b []byte) error {
		if len(b) == 0 {
			return fmt.Errorf("workspace token has been destroyed")
		}
		req.Header.Set("Authorization", "Bearer "+string(b))
		return nil
	})
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, truncated, err := readCapped(resp.Body, maxErrorBodyBytes)
	if err != nil {
		apiErr.Message = fmt.Sprintf("(unreadable error body: %v)", err)
		return apiErr
	}

	var wire struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(data, &wire) == nil && (wire.ErrorCode != "" || wire.Message != "") {
		apiErr.Code = wire.ErrorCode
		apiErr.Message = wire.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if truncated {
		apiErr.Message += "...(truncated)"
	}
	return apiErr
}

// readCapped reads at most limit bytes and reports whether the reader held
// more.
func readCapped(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
