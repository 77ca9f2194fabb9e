package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/honestbee/github-report-bot/src/internal/model"
)

// windowAnchorHour is the UTC hour the one-day reporting window is
// anchored at: events in [yesterday 01:00Z, today 01:00Z) are reported.
const windowAnchorHour = 1

type Client struct {
	baseURL string
	owner   string
	token   string
	pages   int
	http    *http.Client
	log     *zap.Logger
	now     func() time.Time
}

func NewClient(baseURL, owner, token string, pages int, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		owner:   owner,
		token:   token,
		pages:   pages,
		http:    &http.Client{Timeout: 20 * time.Second},
		log:     logger,
		now:     time.Now,
	}
}

// FetchEvents retrieves the configured number of event pages for repo
// concurrently, normalizes each page and keeps only events inside the
// reporting window. Any page failing fails the whole call.
func (c *Client) FetchEvents(ctx context.Context, repo string) ([]model.NormalizedEvent, error) {
	from, to := reportWindow(c.now().UTC())

	pages := make([][]model.NormalizedEvent, c.pages)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.pages; i++ {
		i := i
		g.Go(func() error {
			evts, err := c.fetchPage(ctx, repo, i+1)
			if err != nil {
				return err
			}
			pages[i] = normalize(evts, from, to)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.NormalizedEvent
	for _, p := range pages {
		out = append(out, p...)
	}
	c.log.Debug("events fetched", zap.String("repo", repo), zap.Int("pages", c.pages), zap.Int("in_window", len(out)))
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, repo string, page int) ([]model.RawEvent, error) {
	u, err := url.Parse(fmt.Sprintf("%s/repos/%s/%s/events", c.baseURL, c.owner, repo))
	if err != nil {
		return nil, fmt.Errorf("events url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", c.token)
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("events request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch events page %d: %w", page, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch events page %d: status %d", page, res.StatusCode)
	}

	var evts []model.RawEvent
	if err := json.NewDecoder(res.Body).Decode(&evts); err != nil {
		return nil, fmt.Errorf("decode events page %d: %w", page, err)
	}
	return evts, nil
}

func normalize(evts []model.RawEvent, from, to time.Time) []model.NormalizedEvent {
	out := make([]model.NormalizedEvent, 0, len(evts))
	for _, e := range evts {
		t := e.CreatedAt.UTC()
		if t.Before(from) || !t.Before(to) {
			continue
		}
		out = append(out, model.NormalizedEvent{
			Type:      e.Type,
			Actor:     e.Actor.Login,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// reportWindow returns the half-open interval [yesterday anchor, today
// anchor) relative to now.
func reportWindow(now time.Time) (from, to time.Time) {
	to = time.Date(now.Year(), now.Month(), now.Day(), windowAnchorHour, 0, 0, 0, time.UTC)
	from = to.AddDate(0, 0, -1)
	return from, to
}
