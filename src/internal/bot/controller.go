package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/honestbee/github-report-bot/src/internal/metrics"
	"github.com/honestbee/github-report-bot/src/internal/model"
)

const (
	startPhrase = "start github report"
	stopPhrase  = "stop github report"
)

// Chat is the slice of the chat transport the controller needs.
type Chat interface {
	SendMessage(text, channelID string)
	ChannelIDByName(name string) (string, error)
	SelfID() string
}

// Scheduler runs fn on a cron-style spec until the job is removed.
type Scheduler interface {
	Schedule(spec string, fn func()) (int, error)
	Remove(id int)
}

// Reporter produces the rendered digest for one team.
type Reporter interface {
	Aggregate(ctx context.Context, team model.Team) string
}

// Controller owns the reporting job lifecycle. All state transitions
// happen under the mutex; the schedule callback and inbound messages
// may arrive concurrently.
type Controller struct {
	chat          Chat
	scheduler     Scheduler
	reporter      Reporter
	teams         []model.Team
	targetChannel string
	cronSpec      string
	log           *zap.Logger
	now           func() time.Time

	mu        sync.Mutex
	running   bool
	jobID     int
	channelID string
}

func NewController(chat Chat, scheduler Scheduler, reporter Reporter, teams []model.Team, targetChannel, cronSpec string, logger *zap.Logger) *Controller {
	return &Controller{
		chat:          chat,
		scheduler:     scheduler,
		reporter:      reporter,
		teams:         teams,
		targetChannel: targetChannel,
		cronSpec:      cronSpec,
		log:           logger,
		now:           time.Now,
	}
}

// HandleMessage reacts to start/stop commands addressed to the bot.
// Commands may arrive from any channel; acknowledgments go back to the
// channel the command came from.
func (c *Controller) HandleMessage(msg model.Message) {
	if !strings.Contains(msg.Text, "<@"+c.chat.SelfID()+">") {
		return
	}
	isStart := strings.Contains(msg.Text, startPhrase)
	isStop := strings.Contains(msg.Text, stopPhrase)
	if !isStart && !isStop {
		return
	}

	channelID, err := c.chat.ChannelIDByName(c.targetChannel)
	if err != nil {
		// Unroutable command: no destination to report to, stay silent.
		c.log.Warn("command ignored, target channel not found", zap.String("channel", c.targetChannel), zap.Error(err))
		return
	}

	if isStart {
		c.handleStart(msg.Channel, channelID)
	} else {
		c.handleStop(msg.Channel)
	}
}

func (c *Controller) handleStart(origin, channelID string) {
	err := c.tryStart(channelID)
	switch {
	case err == nil:
		c.chat.SendMessage(fmt.Sprintf("Github reporting *started*, will report to channel *%s*", c.targetChannel), origin)
	case errors.Is(err, model.ErrAlreadyRunning):
		c.chat.SendMessage("Github reporting job is already running", origin)
	default:
		c.log.Warn("start failed", zap.Error(err))
	}
}

func (c *Controller) handleStop(origin string) {
	err := c.tryStop()
	switch {
	case err == nil:
		c.chat.SendMessage("Github reporting job *stopped*", origin)
	case errors.Is(err, model.ErrNotRunning):
		c.chat.SendMessage("No github reporting job running", origin)
	}
}

// tryStart transitions Stopped -> Running, binding the resolved
// destination channel for the lifetime of the job.
func (c *Controller) tryStart(channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return model.ErrAlreadyRunning
	}
	id, err := c.scheduler.Schedule(c.cronSpec, c.runReportCycle)
	if err != nil {
		return fmt.Errorf("schedule report job: %w", err)
	}
	c.jobID = id
	c.channelID = channelID
	c.running = true
	c.log.Info("report job started", zap.String("channel", c.targetChannel), zap.String("cron", c.cronSpec))
	return nil
}

// tryStop transitions Running -> Stopped. An aggregation already in
// flight is not cancelled; its output may still be posted.
func (c *Controller) tryStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return model.ErrNotRunning
	}
	c.scheduler.Remove(c.jobID)
	c.running = false
	c.log.Info("report job stopped")
	return nil
}

// runReportCycle is the schedule callback: one digest per team, each
// posted independently as soon as its aggregation finishes.
func (c *Controller) runReportCycle() {
	c.mu.Lock()
	channelID := c.channelID
	c.mu.Unlock()

	metrics.ReportCycles.Inc()
	today := c.now().UTC().Format("2006-01-02")
	c.chat.SendMessage(fmt.Sprintf("*Github log for %s:*\n\n", today), channelID)

	for _, team := range c.teams {
		go func(team model.Team) {
			result := c.reporter.Aggregate(context.Background(), team)
			if result == "" {
				return
			}
			if len(c.teams) > 1 {
				result = fmt.Sprintf("\n*%s:*\n%s", team.Name, result)
			}
			c.chat.SendMessage(result, channelID)
			metrics.MessagesPosted.Inc()
		}(team)
	}
}
