package report

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/honestbee/github-report-bot/src/internal/classify"
	"github.com/honestbee/github-report-bot/src/internal/metrics"
	"github.com/honestbee/github-report-bot/src/internal/model"
)

// EventFetcher retrieves the normalized, window-filtered events for one
// repository.
type EventFetcher interface {
	FetchEvents(ctx context.Context, repo string) ([]model.NormalizedEvent, error)
}

type Aggregator struct {
	fetcher    EventFetcher
	classifier *classify.Classifier
	showAll    bool
	log        *zap.Logger
}

func NewAggregator(fetcher EventFetcher, classifier *classify.Classifier, showAll bool, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		fetcher:    fetcher,
		classifier: classifier,
		showAll:    showAll,
		log:        logger,
	}
}

// Aggregate builds the rendered digest for one team. A fetch failure is
// logged and yields an empty report so other teams on the same tick are
// unaffected.
func (a *Aggregator) Aggregate(ctx context.Context, team model.Team) string {
	evts, err := a.fetcher.FetchEvents(ctx, team.Repo)
	if err != nil {
		a.log.Warn("fetch events failed", zap.String("team", team.Name), zap.String("repo", team.Repo), zap.Error(err))
		metrics.FetchFailures.WithLabelValues(team.Name).Inc()
		return ""
	}

	entries := make([]model.ReportEntry, 0, len(evts))
	for _, evt := range evts {
		if !team.Members.Contains(evt.Actor) {
			continue
		}
		entry, ok := a.classifier.Classify(evt, team.Repo)
		if !ok {
			continue
		}
		metrics.EventsClassified.WithLabelValues(string(entry.Action)).Inc()
		entries = append(entries, entry)
	}

	// Pages arrive most-recent-first; reversing restores ascending
	// time order before grouping.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	byUser := make(map[string][]model.ReportEntry)
	for _, e := range entries {
		byUser[e.User] = append(byUser[e.User], e)
	}

	return render(team.Members, byUser, a.showAll)
}

func render(roster model.Roster, byUser map[string][]model.ReportEntry, showAll bool) string {
	var b strings.Builder
	for _, m := range roster {
		userEntries := byUser[m.Login]
		if len(userEntries) == 0 && !showAll {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d)\n", m.DisplayName, len(userEntries))
		for _, e := range userEntries {
			fmt.Fprintf(&b, "[%s] [%s] %s\n", e.CreatedAt.Format("15:04"), e.Action, e.Message)
		}
	}
	return b.String()
}
