package growthctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	"github.com/okian/growthdesk/internal/domain/types"
)

// ErrStatus marks a non-2xx response from the server.
var ErrStatus = errors.New("unexpected response status")

const (
	requestAttempts = 3
	retryDelay      = 200 * time.Millisecond
)

// Client talks to a running growthdesk server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError carries the server's error response.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Filter de-duplicates candidates for client.
func (c *Client) Filter(ctx context.Context, req types.FilterRequest) (types.FilterResponse, error) {
	var resp types.FilterResponse
	err := c.doJSON(ctx, http.MethodPost, "/filter", req, &resp, true)
	return resp, err
}

// Export filters candidates and returns part of the result as CSV.
func (c *Client) Export(ctx context.Context, req types.FilterRequest, part string) ([]byte, error) {
	q := url.Values{"part": {part}}
	return c.do(ctx, http.MethodPost, "/filter/export?"+q.Encode(), req, true)
}

// LogInvites stores an invited batch. A batch ID is assigned when req has
// none so a resend after a lost response is not stored twice.
func (c *Client) LogInvites(ctx context.Context, req types.InviteRequest) (types.InviteReceipt, error) {
	if req.BatchID == "" {
		req.BatchID = uuid.NewString()
	}
	var receipt types.InviteReceipt
	err := c.doJSON(ctx, http.MethodPost, "/invites", req, &receipt, true)
	return receipt, err
}

// RecentInvites lists the newest invites. A zero limit uses the server default.
func (c *Client) RecentInvites(ctx context.Context, limit int) ([]types.Invite, error) {
	path := "/invites/recent"
	if limit != 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var invites []types.Invite
	err := c.doJSON(ctx, http.MethodGet, path, nil, &invites, true)
	return invites, err
}

// Overview returns invite totals.
func (c *Client) Overview(ctx context.Context) (types.Overview, error) {
	var ov types.Overview
	err := c.doJSON(ctx, http.MethodGet, "/invites/overview", nil, &ov, true)
	return ov, err
}

// Clients lists known client names.
func (c *Client) Clients(ctx context.Context) ([]string, error) {
	var clients []string
	err := c.doJSON(ctx, http.MethodGet, "/clients", nil, &clients, true)
	return clients, err
}

// SavedSearches lists saved engagement searches; an empty client lists all.
func (c *Client) SavedSearches(ctx context.Context, client string) ([]types.SavedSearch, error) {
	path := "/engagement/searches"
	if client != "" {
		path += "?" + url.Values{"client": {client}}.Encode()
	}
	var searches []types.SavedSearch
	err := c.doJSON(ctx, http.MethodGet, path, nil, &searches, true)
	return searches, err
}

// DeleteSearch removes a saved search. It is not resent after a transport
// failure since a replay of a completed delete reports not found.
func (c *Client) DeleteSearch(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/engagement/searches?id="+strconv.FormatInt(id, 10), nil, false)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, replayable bool) error {
	data, err := c.do(ctx, method, path, body, replayable)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// do sends the request, retrying 503s. Transport failures are retried only
// when replayable is set: the server may have applied a request whose
// response was lost. Other non-2xx statuses come back as *StatusError
// without retrying.
func (c *Client) do(ctx context.Context, method, path string, body any, replayable bool) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	data, err := retry.DoWithData(
		func() ([]byte, error) {
			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
			if err != nil {
				return nil, fmt.Errorf("failed to create request: %w", err)
			}
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // read-only body

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read response body: %w", err)
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return nil, statusError(resp.StatusCode, data)
			}
			return data, nil
		},
		retry.Context(ctx),
		retry.Attempts(requestAttempts),
		retry.Delay(retryDelay),
		retry.RetryIf(func(err error) bool { return isRetryable(err, replayable) }),
	)
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return data, nil
}

func isRetryable(err error, replayable bool) bool {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Status == http.StatusServiceUnavailable
	}
	if !replayable {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func statusError(status int, body []byte) *StatusError {
	serr := &StatusError{Status: status}
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		serr.Code = e.Code
		serr.Message = e.Message
	}
	return serr
}
