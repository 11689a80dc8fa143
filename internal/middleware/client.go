// Package middleware talks to the classification service that decides what a
// mention asks for and produces the content of the reply.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrService wraps every transport or status failure of the service.
var ErrService = errors.New("middleware: service unavailable")

// Request is the body of POST /process-mention.
type Request struct {
	UserCommand   string `json:"userCommand"`
	OriginalTweet string `json:"originalTweet"`
	MediaData     string `json:"mediaData,omitempty"` // base64 image bytes
}

// Classifier turns a mention into a categorized result.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// Client calls the HTTP classification service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL. A zero timeout defaults to 120s;
// the service runs model inference and is slow.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Classify posts the request and parses the categorized response.
func (c *Client) Classify(ctx context.Context, in Request) (Result, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-mention", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrService, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read body: %w", ErrService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: status=%d body=%s", ErrService, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	res, err := ParseResponse(b)
	if err != nil {
		return Result{}, err
	}
	slog.Debug("middleware: classified", "category", res.Category, "label", res.Label, "duration", time.Since(start))
	return res, nil
}
