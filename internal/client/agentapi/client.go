// Package agentapi talks to the external agent-management service: it is
// the source of the active control policy and the receiver of result
// notifications.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"racebet/internal/models"
)

type Client struct {
	BaseURL string
	APIKey  string

	HTTP *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

// GetActivePolicy fetches the single active control record. No active record
// (or a 404) resolves to the normal policy rather than an error; only
// transport and decode failures propagate.
func (c *Client) GetActivePolicy(ctx context.Context) (*models.ControlPolicy, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return nil, errors.New("agent api base url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/control/active", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return &models.ControlPolicy{Mode: models.ControlModeNormal}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("agent api active policy http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var policy models.ControlPolicy
	if err := json.Unmarshal(b, &policy); err != nil {
		return nil, err
	}
	if strings.TrimSpace(policy.Mode) == "" {
		policy.Mode = models.ControlModeNormal
	}
	return &policy, nil
}

type resultNotification struct {
	Period      int64     `json:"period"`
	Permutation []int     `json:"permutation"`
	Timestamp   time.Time `json:"timestamp"`
}

// NotifyResult pushes one drawn result. The caller treats failures as
// best-effort: log and move on, never retry from the settlement path.
func (c *Client) NotifyResult(ctx context.Context, period int64, permutation [10]int, drawnAt time.Time) error {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return errors.New("agent api base url is empty")
	}
	body, err := json.Marshal(resultNotification{
		Period:      period,
		Permutation: permutation[:],
		Timestamp:   drawnAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/results", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("agent api notify result http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		req.Header.Set("X-Api-Key", key)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
