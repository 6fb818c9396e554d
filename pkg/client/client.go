// Package client типизированный HTTP клиент сетевого API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"watergrid/pkg/apperror"
	"watergrid/pkg/config"
)

const defaultTimeout = 30 * time.Second

// Config конфигурация клиента
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   config.RetryConfig
}

// Client клиент REST API сетевого сервиса
type Client struct {
	baseURL string
	http    *http.Client
	retry   config.RetryConfig
}

// New создаёт клиента. BaseURL без завершающего слеша, например http://localhost:8080.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = 100 * time.Millisecond
	}
	if retry.BackoffMultiplier <= 1 {
		retry.BackoffMultiplier = 2
	}
	if retry.MaxBackoff <= 0 {
		retry.MaxBackoff = 5 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		retry:   retry,
	}
}

// ==================== TRANSPORT ====================

// do выполняет запрос с повторами. Повторяются только GET запросы:
// мутации не идемпотентны.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = c.retry.MaxAttempts
	}

	backoff := c.retry.InitialBackoff
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperror.Wrap(ctx.Err(), apperror.CodeTimeout, "request cancelled")
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
			if backoff > c.retry.MaxBackoff {
				backoff = c.retry.MaxBackoff
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "failed to build request")
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = apperror.Wrap(err, apperror.CodeUnavailable, "request failed")
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < attempts-1 {
			lastErr = decodeError(resp)
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// doJSON выполняет запрос и декодирует JSON ответ в out
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body []byte
	contentType := ""
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInvalidArgument, "failed to encode request")
		}
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to decode response")
	}
	return nil
}

// download выполняет GET и возвращает тело целиком
func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// decodeError восстанавливает ошибку из конверта API
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    apperror.ErrorCode `json:"code"`
			Message string             `json:"message"`
		} `json:"error"`
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code == "" {
		return apperror.FromStatus(resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return apperror.New(envelope.Error.Code, envelope.Error.Message)
}

func boolValue(q url.Values, name string, v *bool) {
	if v != nil {
		q.Set(name, strconv.FormatBool(*v))
	}
}
