package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/honestbee/github-report-bot/src/internal/model"
)

type sentMessage struct {
	Text    string
	Channel string
}

type fakeChat struct {
	mu       sync.Mutex
	sent     []sentMessage
	channels map[string]string
	selfID   string
}

func (f *fakeChat) SendMessage(text, channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Text: text, Channel: channelID})
}

func (f *fakeChat) ChannelIDByName(name string) (string, error) {
	if id, ok := f.channels[name]; ok {
		return id, nil
	}
	return "", model.ErrChannelNotFound
}

func (f *fakeChat) SelfID() string { return f.selfID }

func (f *fakeChat) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeScheduler struct {
	mu            sync.Mutex
	nextID        int
	jobs          map[int]func()
	scheduleCalls int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[int]func(){}}
}

func (f *fakeScheduler) Schedule(spec string, fn func()) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleCalls++
	f.nextID++
	f.jobs[f.nextID] = fn
	return f.nextID, nil
}

func (f *fakeScheduler) Remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
}

func (f *fakeScheduler) activeJobs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func (f *fakeScheduler) fire() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.jobs))
	for _, fn := range f.jobs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeReporter struct {
	results map[string]string
}

func (f *fakeReporter) Aggregate(_ context.Context, team model.Team) string {
	return f.results[team.Name]
}

func newTestController(chat *fakeChat, sched *fakeScheduler, reporter Reporter, teams []model.Team) *Controller {
	return NewController(chat, sched, reporter, teams, "dev-reports", "00 30 9 * * 2-6", zap.NewNop())
}

func singleTeam() []model.Team {
	return []model.Team{{Name: "web", Repo: "widgets", Members: model.Roster{{Login: "alice", DisplayName: "Alice"}}}}
}

func TestController_StartFromStopped(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	c.HandleMessage(model.Message{Channel: "C999", Text: "<@BOT> start github report"})

	assert.Equal(t, 1, sched.activeJobs())
	msgs := chat.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "started")
	assert.Equal(t, "C999", msgs[0].Channel)
}

func TestController_StartTwiceKeepsOneJob(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> start github report"})
	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> start github report"})

	assert.Equal(t, 1, sched.activeJobs())
	assert.Equal(t, 1, sched.scheduleCalls)
	msgs := chat.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Text, "already running")
}

func TestController_StopWhileStopped(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> stop github report"})
	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> stop github report"})

	assert.Equal(t, 0, sched.activeJobs())
	msgs := chat.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "No github reporting job running")
}

func TestController_StartThenStop(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> start github report"})
	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> stop github report"})

	assert.Equal(t, 0, sched.activeJobs())
	msgs := chat.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Text, "stopped")
}

func TestController_IgnoresMessagesWithoutMention(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	c.HandleMessage(model.Message{Channel: "C1", Text: "start github report"})
	c.HandleMessage(model.Message{Channel: "C1", Text: "<@OTHER> start github report"})

	assert.Equal(t, 0, sched.activeJobs())
	assert.Empty(t, chat.messages())
}

func TestController_UnresolvableChannelIsSilent(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> start github report"})
	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> stop github report"})

	assert.Equal(t, 0, sched.activeJobs())
	assert.Empty(t, chat.messages())
}

func TestController_ConcurrentStartsScheduleOnce(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> start github report"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sched.activeJobs())
	assert.Equal(t, 1, sched.scheduleCalls)
}

func TestController_TickPostsPerTeamIndependently(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	reporter := &fakeReporter{results: map[string]string{
		// Team "broken" simulates an aggregation failure: empty output.
		"web":    "\nAlice (1)\n[09:15] [PR created] https://github.com/acme/widgets/pull/1\n",
		"broken": "",
	}}
	teams := []model.Team{
		{Name: "broken", Repo: "legacy"},
		{Name: "web", Repo: "widgets"},
	}
	c := newTestController(chat, sched, reporter, teams)

	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> start github report"})
	sched.fire()

	assert.Eventually(t, func() bool {
		// ack + date header + one team message; broken team stays silent.
		return len(chat.messages()) == 3
	}, time.Second, 10*time.Millisecond)

	var teamMsgs []sentMessage
	for _, m := range chat.messages() {
		if strings.Contains(m.Text, "*web:*") || strings.Contains(m.Text, "*broken:*") {
			teamMsgs = append(teamMsgs, m)
		}
	}
	require.Len(t, teamMsgs, 1)
	assert.Contains(t, teamMsgs[0].Text, "*web:*")
	assert.Equal(t, "C123", teamMsgs[0].Channel)
}

func TestController_TickPostsDateHeader(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())
	c.now = func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) }

	c.HandleMessage(model.Message{Channel: "C1", Text: "<@BOT> start github report"})
	sched.fire()

	assert.Eventually(t, func() bool { return len(chat.messages()) >= 2 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, chat.messages()[1].Text, "*Github log for 2024-03-15:*")
	assert.Equal(t, "C123", chat.messages()[1].Channel)
}

func TestController_StopRemovesScheduledJob(t *testing.T) {
	chat := &fakeChat{channels: map[string]string{"dev-reports": "C123"}, selfID: "BOT"}
	sched := newFakeScheduler()
	c := newTestController(chat, sched, &fakeReporter{}, singleTeam())

	require.NoError(t, c.tryStart("C123"))
	require.NoError(t, c.tryStop())
	assert.Equal(t, 0, sched.activeJobs())

	err := c.tryStop()
	assert.True(t, errors.Is(err, model.ErrNotRunning))
}
