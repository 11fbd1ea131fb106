package bvbrc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Client talks to the App Service and the Workspace.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	requestID  atomic.Int64
}

// NewClient creates a client. A nil logger discards output.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger.With("component", "bvbrc-client"),
	}
}

// Username returns the user the client is authenticated as, or "".
func (c *Client) Username() string {
	return UsernameFromToken(c.config.Token)
}

func (c *Client) nextID() string {
	return fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), c.requestID.Add(1))
}

// call executes method against serviceURL, retrying transient failures.
func (c *Client) call(ctx context.Context, serviceURL, method string, params []any) (*RPCResponse, error) {
	if params == nil {
		params = []any{}
	}
	logger := c.logger.With("method", method)

	body, err := json.Marshal(RPCRequest{
		ID:      c.nextID(),
		Method:  method,
		Version: "1.1",
		Params:  params,
	})
	if err != nil {
		return nil, wrapError(method, fmt.Errorf("marshaling request: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay << (attempt - 1)
			logger.Debug("retrying", "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, wrapError(method, ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := c.post(ctx, serviceURL, body)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				return nil, wrapError(method, err)
			}
			continue
		}
		// RPC-level failures are not retried: start_app is not idempotent.
		if resp.Error != nil {
			logger.Debug("rpc error", "code", resp.Error.Code, "message", resp.Error.Message)
			return resp, &Error{Op: method, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return resp, nil
	}
	return nil, wrapError(method, fmt.Errorf("all retries exhausted: %w", lastErr))
}

// post performs a single HTTP round trip.
func (c *Client) post(ctx context.Context, url string, body []byte) (*RPCResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp RPCResponse
	if resp.StatusCode != http.StatusOK {
		// Services report RPC failures with a 500 and an error body.
		if json.Unmarshal(data, &rpcResp) == nil && rpcResp.Error != nil {
			return &rpcResp, nil
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	return &rpcResp, nil
}

// CallAppService makes a JSON-RPC call to the App Service.
func (c *Client) CallAppService(ctx context.Context, method string, params ...any) (*RPCResponse, error) {
	return c.call(ctx, c.config.AppServiceURL, method, params)
}

// CallWorkspace makes a JSON-RPC call to the Workspace service.
func (c *Client) CallWorkspace(ctx context.Context, method string, params ...any) (*RPCResponse, error) {
	return c.call(ctx, c.config.WorkspaceURL, method, params)
}

// unmarshalFirst decodes a result of the form [x] into x.
// ok is false when the result array is empty.
func unmarshalFirst[T any](op string, resp *RPCResponse) (v T, ok bool, err error) {
	var result []T
	if len(resp.Result) == 0 {
		return v, false, nil
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return v, false, wrapError(op, fmt.Errorf("unmarshaling result: %w", err))
	}
	if len(result) == 0 {
		return v, false, nil
	}
	return result[0], true, nil
}
