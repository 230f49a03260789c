package nrs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Client is a thin HTTP client for the node's /nxt API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// NewClient creates a client for the node at baseURL
// (e.g. http://localhost:7876).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetTime returns the node's current time. Concurrent callers share one
// in-flight request, which runs detached from any single caller so one
// caller going away does not fail the others. Each caller still stops
// waiting when its own ctx is done.
func (c *Client) GetTime(ctx context.Context) (TimeResponse, error) {
	flight := c.group.DoChan(RequestGetTime, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.httpClient.Timeout)
		defer cancel()

		var resp TimeResponse
		if err := c.do(fctx, RequestGetTime, nil, &resp); err != nil {
			return TimeResponse{}, err
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return TimeResponse{}, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return TimeResponse{}, res.Err
		}
		return res.Val.(TimeResponse), nil
	}
}

// GetAccountTransactions lists transactions of an account from a timestamp on.
func (c *Client) GetAccountTransactions(ctx context.Context, req AccountTransactionsRequest) (TransactionsResponse, error) {
	params := url.Values{}
	params.Set("account", req.Account)
	params.Set("timestamp", strconv.FormatInt(int64(req.Timestamp), 10))
	params.Set("firstIndex", strconv.Itoa(req.FirstIndex))
	params.Set("lastIndex", strconv.Itoa(req.LastIndex))

	var resp TransactionsResponse
	if err := c.do(ctx, RequestGetAccountTransactions, params, &resp); err != nil {
		return TransactionsResponse{}, err
	}
	return resp, nil
}

// Ping checks that the node answers getTime with a time.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.GetTime(ctx)
	if err != nil {
		return err
	}
	if resp.Time == nil {
		return fmt.Errorf("nrs %s: response has no time", RequestGetTime)
	}
	return nil
}

// do sends requestType with params and decodes the JSON body into result.
func (c *Client) do(ctx context.Context, requestType string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("requestType", requestType)
	endpoint := c.baseURL + "/nxt?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s: %w", requestType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d on %s: %s", resp.StatusCode, requestType, string(body))
	}

	var apiErr errorPayload
	if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorCode != nil {
		return &APIError{RequestType: requestType, Code: *apiErr.ErrorCode, Description: apiErr.ErrorDescription}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s: %w", requestType, err)
	}
	return nil
}
