package classify

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/honestbee/github-report-bot/src/internal/model"
)

// Classifier turns normalized events into report entries, one handler
// per recognized event type.
type Classifier struct {
	owner    string
	log      *zap.Logger
	handlers map[string]handlerFunc
}

type handlerFunc func(c *Classifier, evt model.NormalizedEvent, repo string) (model.ReportEntry, bool)

// Event types that carry no reportable activity. They are dropped
// without logging.
var ignoredTypes = map[string]struct{}{
	"CreateEvent":  {},
	"DeleteEvent":  {},
	"ForkEvent":    {},
	"WatchEvent":   {},
	"ReleaseEvent": {},
	"PushEvent":    {},
}

func NewClassifier(owner string, logger *zap.Logger) *Classifier {
	return &Classifier{
		owner: owner,
		log:   logger,
		handlers: map[string]handlerFunc{
			"PullRequestEvent":              (*Classifier).pullRequestEvent,
			"IssueCommentEvent":             (*Classifier).issueCommentEvent,
			"PullRequestReviewCommentEvent": (*Classifier).pullRequestReviewCommentEvent,
		},
	}
}

// Classify returns the report entry for evt, or false when the event
// produces none. Unrecognized types and malformed payloads are logged
// and skipped, never an error.
func (c *Classifier) Classify(evt model.NormalizedEvent, repo string) (model.ReportEntry, bool) {
	if _, ok := ignoredTypes[evt.Type]; ok {
		return model.ReportEntry{}, false
	}
	h, ok := c.handlers[evt.Type]
	if !ok {
		c.log.Info("unrecognized event type", zap.String("type", evt.Type), zap.String("actor", evt.Actor))
		return model.ReportEntry{}, false
	}
	return h(c, evt, repo)
}

func (c *Classifier) pullRequestEvent(evt model.NormalizedEvent, repo string) (model.ReportEntry, bool) {
	var p struct {
		Action      string `json:"action"`
		Number      int    `json:"number"`
		PullRequest struct {
			Merged bool `json:"merged"`
		} `json:"pull_request"`
	}
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		c.log.Warn("malformed PullRequestEvent payload", zap.String("actor", evt.Actor), zap.Error(err))
		return model.ReportEntry{}, false
	}
	switch p.Action {
	case "opened":
		return c.entry(evt, model.ActionPRCreated, c.pullURL(repo, p.Number)), true
	case "closed":
		action := model.ActionPRClosed
		if p.PullRequest.Merged {
			action = model.ActionPRMerged
		}
		return c.entry(evt, action, c.pullURL(repo, p.Number)), true
	default:
		c.log.Info("unexpected PullRequestEvent action", zap.String("action", p.Action), zap.String("actor", evt.Actor))
		return model.ReportEntry{}, false
	}
}

func (c *Classifier) issueCommentEvent(evt model.NormalizedEvent, repo string) (model.ReportEntry, bool) {
	var p struct {
		Action string `json:"action"`
		Issue  struct {
			Number      int              `json:"number"`
			PullRequest *json.RawMessage `json:"pull_request"`
		} `json:"issue"`
	}
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		c.log.Warn("malformed IssueCommentEvent payload", zap.String("actor", evt.Actor), zap.Error(err))
		return model.ReportEntry{}, false
	}
	if p.Action != "created" {
		return model.ReportEntry{}, false
	}
	if p.Issue.PullRequest != nil {
		return c.entry(evt, model.ActionPRCommented, c.pullURL(repo, p.Issue.Number)), true
	}
	return c.entry(evt, model.ActionIssueCommented, c.issueURL(repo, p.Issue.Number)), true
}

func (c *Classifier) pullRequestReviewCommentEvent(evt model.NormalizedEvent, repo string) (model.ReportEntry, bool) {
	var p struct {
		Action      string `json:"action"`
		PullRequest struct {
			Number int `json:"number"`
		} `json:"pull_request"`
	}
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		c.log.Warn("malformed PullRequestReviewCommentEvent payload", zap.String("actor", evt.Actor), zap.Error(err))
		return model.ReportEntry{}, false
	}
	if p.Action != "created" {
		return model.ReportEntry{}, false
	}
	return c.entry(evt, model.ActionPRReviewed, c.pullURL(repo, p.PullRequest.Number)), true
}

func (c *Classifier) entry(evt model.NormalizedEvent, action model.Action, url string) model.ReportEntry {
	return model.ReportEntry{
		User:      evt.Actor,
		Action:    action,
		Message:   url,
		CreatedAt: evt.CreatedAt,
	}
}

func (c *Classifier) pullURL(repo string, number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", c.owner, repo, number)
}

func (c *Classifier) issueURL(repo string, number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/issues/%d", c.owner, repo, number)
}
