package plane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// APIError is a non-2xx response from the Plane API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf(
		"plane API error (%d) on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Detail,
	)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is a thin HTTP client for the Plane REST API. It handles
// Api-Key authentication, JSON marshaling, automatic retry with
// exponential backoff on HTTP 429, and a circuit breaker that fails
// calls fast while the API is unhealthy instead of hammering it from
// the poll loop.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a new Plane HTTP client. The baseURL should be the
// root URL of the Plane instance (e.g. https://api.plane.example.com).
func NewClient(baseURL, apiKey string) *Client {
	settings := gobreaker.Settings{
		Name:    "plane-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(
	ctx context.Context, path string, result interface{},
) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(
	ctx context.Context, path string, body, result interface{},
) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Patch performs an HTTP PATCH request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Patch(
	ctx context.Context, path string, body, result interface{},
) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
// Every attempt runs through the circuit breaker.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("X-Api-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		respBody, statusCode, err := c.execute(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		if statusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(respBody.retryAfter, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if statusCode == http.StatusUnauthorized {
			return &APIError{
				StatusCode: statusCode,
				Method:     method,
				Path:       path,
				Detail:     "authentication failed: check the API key",
			}
		}

		if statusCode < 200 || statusCode >= 300 {
			detail := string(respBody.data)
			var planeErr ErrorResponse
			if json.Unmarshal(respBody.data, &planeErr) == nil {
				if planeErr.Error != "" {
					detail = planeErr.Error
				} else if planeErr.Detail != "" {
					detail = planeErr.Detail
				}
			}
			return &APIError{
				StatusCode: statusCode,
				Method:     method,
				Path:       path,
				Detail:     detail,
			}
		}

		if result == nil || statusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody.data, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from %s %s: %w", method, path, err,
			)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// response carries the pieces of an HTTP response needed after the
// body has been drained and closed.
type response struct {
	data       []byte
	retryAfter string
}

// execute runs a single HTTP attempt through the circuit breaker.
func (c *Client) execute(req *http.Request) (response, int, error) {
	type attemptResult struct {
		resp response
		code int
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}

		// Server errors count as breaker failures; client errors are
		// the caller's problem and must not trip the breaker.
		if resp.StatusCode >= 500 {
			return attemptResult{
				resp: response{data: data},
				code: resp.StatusCode,
			}, &APIError{
				StatusCode: resp.StatusCode,
				Method:     req.Method,
				Path:       req.URL.Path,
				Detail:     string(data),
			}
		}

		return attemptResult{
			resp: response{
				data:       data,
				retryAfter: resp.Header.Get("Retry-After"),
			},
			code: resp.StatusCode,
		}, nil
	})
	if err != nil {
		if res != nil {
			ar := res.(attemptResult)
			return ar.resp, ar.code, nil
		}
		return response{}, 0, err
	}

	ar := res.(attemptResult)
	return ar.resp, ar.code, nil
}

// UploadFile performs a multipart upload of a local file and
// unmarshals the JSON response. Used only for issue attachments.
func (c *Client) UploadFile(
	ctx context.Context,
	path string,
	filePath string,
	filename string,
	result interface{},
) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening attachment %s: %w", filePath, err)
	}
	defer file.Close()

	if filename == "" {
		filename = filepath.Base(filePath)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("asset", filename)
	if err != nil {
		return fmt.Errorf("creating multipart field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copying attachment content: %w", err)
	}

	info, err := file.Stat()
	if err == nil {
		attrs, _ := json.Marshal(AttachmentAttributes{
			Name: filename,
			Size: info.Size(),
		})
		_ = writer.WriteField("attributes", string(attrs))
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, &buf,
	)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, statusCode, err := c.execute(req)
	if err != nil {
		return fmt.Errorf("executing upload %s: %w", path, err)
	}

	if statusCode < 200 || statusCode >= 300 {
		return &APIError{
			StatusCode: statusCode,
			Method:     http.MethodPost,
			Path:       path,
			Detail:     string(respBody.data),
		}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody.data, result); err != nil {
		return fmt.Errorf("unmarshaling upload response: %w", err)
	}
	return nil
}

// retryAfterDuration reads the Retry-After header value and computes a
// wait duration. Falls back to exponential backoff if it is missing.
func retryAfterDuration(header string, attempt int) time.Duration {
	if header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
