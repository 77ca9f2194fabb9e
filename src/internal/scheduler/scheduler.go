package scheduler

import (
	"github.com/robfig/cron/v3"
)

// Cron wraps robfig/cron with seconds-resolution specs, matching the
// report trigger format (e.g. "00 30 9 * * 2-6").
type Cron struct {
	c *cron.Cron
}

func New() *Cron {
	return &Cron{c: cron.New(cron.WithSeconds())}
}

func (s *Cron) Start() {
	s.c.Start()
}

// Stop halts the timer; running callbacks finish on their own.
func (s *Cron) Stop() {
	s.c.Stop()
}

func (s *Cron) Schedule(spec string, fn func()) (int, error) {
	id, err := s.c.AddFunc(spec, fn)
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (s *Cron) Remove(id int) {
	s.c.Remove(cron.EntryID(id))
}
