// Package edge talks to the hosted proxy, which resolves a query and streams
// the command and its explanation back as server-sent events.
package edge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

var (
	errNoCommand     = errors.New("proxy stream ended without a command")
	errNoExplanation = errors.New("proxy stream ended without an explanation")
)

// Client is a proxied source authenticated with a bearer token
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new proxy client
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

// Stream starts one proxy request. Each returned channel receives exactly one
// value and is buffered, so the stream goroutine never blocks on a reader that
// has gone away.
func (c *Client) Stream(ctx context.Context, query string, style ai.Style) (<-chan ai.Result[ai.CommandResult], <-chan ai.Result[string]) {
	cmdCh := make(chan ai.Result[ai.CommandResult], 1)
	expCh := make(chan ai.Result[string], 1)

	go func() {
		cmdSent, expSent := false, false
		sendCmd := func(r ai.Result[ai.CommandResult]) {
			if !cmdSent {
				cmdCh <- r
				cmdSent = true
			}
		}
		sendExp := func(r ai.Result[string]) {
			if !expSent {
				expCh <- r
				expSent = true
			}
		}

		err := c.stream(ctx, query, style, func(event, data string) bool {
			switch event {
			case "command":
				var result ai.CommandResult
				if err := json.Unmarshal([]byte(data), &result); err != nil {
					sendCmd(ai.Result[ai.CommandResult]{Err: fmt.Errorf("failed to parse command event: %w", err)})
					return false
				}
				if strings.TrimSpace(result.Command) == "" {
					sendCmd(ai.Result[ai.CommandResult]{Err: ai.ErrEmptyCommand})
					return false
				}
				sendCmd(ai.Result[ai.CommandResult]{Value: result})
			case "explanation":
				var payload struct {
					Text string `json:"text"`
				}
				if err := json.Unmarshal([]byte(data), &payload); err != nil {
					sendExp(ai.Result[string]{Err: fmt.Errorf("failed to parse explanation event: %w", err)})
					return true
				}
				sendExp(ai.Result[string]{Value: ai.NormalizeTags(payload.Text)})
			case "error":
				err := fmt.Errorf("proxy error: %s", data)
				sendCmd(ai.Result[ai.CommandResult]{Err: err})
				sendExp(ai.Result[string]{Err: err})
				return false
			case "done":
				return false
			}
			return true
		})

		if err == nil {
			err = errNoCommand
		}
		sendCmd(ai.Result[ai.CommandResult]{Err: err})
		if errors.Is(err, errNoCommand) {
			err = errNoExplanation
		}
		sendExp(ai.Result[string]{Err: err})
	}()

	return cmdCh, expCh
}

// Resolve waits for the command event only
func (c *Client) Resolve(ctx context.Context, query string, style ai.Style) (ai.CommandResult, error) {
	cmdCh, _ := c.Stream(ctx, query, style)
	select {
	case r := <-cmdCh:
		return r.Value, r.Err
	case <-ctx.Done():
		return ai.CommandResult{}, ctx.Err()
	}
}

// Warmup pings the proxy to keep the connection open
func (c *Client) Warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("warmup failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warmup failed (status %d)", resp.StatusCode)
	}
	return nil
}

// stream posts the query and feeds every SSE event to fn until fn returns
// false or the body ends.
func (c *Client) stream(ctx context.Context, query string, style ai.Style, fn func(event, data string) bool) error {
	jsonBody, err := json.Marshal(map[string]string{
		"query": query,
		"style": style.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/command", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("proxy error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var event string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if !fn(event, strings.TrimPrefix(line, "data: ")) {
				return nil
			}
		case line == "":
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}
