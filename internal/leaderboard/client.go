// Package leaderboard talks to the public results board.
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ctscan-quiz/internal/domain"
)

const (
	DefaultBaseURL = "https://leaderboard-online.vercel.app"
	path           = "/api/leaderboard"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// NewSubmissionID returns "<uuid>_<unix millis>"; the board shows the part
// before the underscore.
func NewSubmissionID(at time.Time) string {
	return uuid.NewString() + "_" + strconv.FormatInt(at.UnixMilli(), 10)
}

// Submit posts a finished game.
func (c *Client) Submit(ctx context.Context, result domain.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLeaderboardUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: submit returned status %d", domain.ErrLeaderboardUnavailable, resp.StatusCode)
	}
	return nil
}

type pagedResponse struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	Total       int                       `json:"total"`
}

// Top returns entries ordered by percentage then score, both descending, and
// the total number of records on the board. limit <= 0 asks for everything.
// The board answers either with a bare array or with {leaderboard, total}.
func (c *Client) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, int, error) {
	reqURL := c.baseURL + path
	if limit > 0 {
		reqURL += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrLeaderboardUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: leaderboard returned status %d", domain.ErrLeaderboardUnavailable, resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode leaderboard: %w", err)
	}

	var entries []domain.LeaderboardEntry
	total := 0
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, 0, fmt.Errorf("decode leaderboard: %w", err)
		}
	} else {
		var paged pagedResponse
		if err := json.Unmarshal(trimmed, &paged); err != nil {
			return nil, 0, fmt.Errorf("decode leaderboard: %w", err)
		}
		if paged.Leaderboard == nil {
			return nil, 0, fmt.Errorf("%w: unexpected response shape", domain.ErrLeaderboardUnavailable)
		}
		entries = paged.Leaderboard
		total = paged.Total
	}
	if total == 0 {
		total = len(entries)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Percentage != entries[j].Percentage {
			return entries[i].Percentage > entries[j].Percentage
		}
		return entries[i].Score > entries[j].Score
	})
	return entries, total, nil
}
