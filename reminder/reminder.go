// Package reminder mails every user a list of their overdue to-do items on
// a cron schedule.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stenstromen/todogate/model"
)

const DefaultSchedule = "0 8 * * *"

type Source interface {
	OverdueItems(ctx context.Context, day time.Time) ([]model.OverdueItem, error)
}

type Notifier interface {
	SendOverdueReminder(to, userName string, items []model.TodoItem) error
}

type Job struct {
	src    Source
	notify Notifier
	log    *logrus.Logger
	now    func() time.Time
}

func NewJob(src Source, notify Notifier, log *logrus.Logger) *Job {
	return &Job{src: src, notify: notify, log: log, now: time.Now}
}

// Run sends one mail per user with overdue items. A failed mail does not
// stop the others; all failures are returned together.
func (j *Job) Run(ctx context.Context) error {
	y, m, d := j.now().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	overdue, err := j.src.OverdueItems(ctx, day)
	if err != nil {
		return fmt.Errorf("load overdue items: %w", err)
	}

	type recipient struct {
		email, name string
		items       []model.TodoItem
	}
	var order []int64
	byUser := map[int64]*recipient{}
	for _, o := range overdue {
		r, ok := byUser[o.Item.UserID]
		if !ok {
			r = &recipient{email: o.Email, name: o.UserName}
			byUser[o.Item.UserID] = r
			order = append(order, o.Item.UserID)
		}
		r.items = append(r.items, o.Item)
	}

	var errs []error
	for _, id := range order {
		r := byUser[id]
		if err := j.notify.SendOverdueReminder(r.email, r.name, r.items); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
		}
	}

	j.log.WithFields(logrus.Fields{
		"users":  len(order),
		"items":  len(overdue),
		"failed": len(errs),
	}).Info("overdue reminders sent")
	return errors.Join(errs...)
}

// Scheduler runs the job on a cron expression.
type Scheduler struct {
	c   *cron.Cron
	job *Job
	log *logrus.Logger
}

func NewScheduler(spec string, job *Job, log *logrus.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	s := &Scheduler{c: cron.New(), job: job, log: log}
	if _, err := s.c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.job.Run(ctx); err != nil {
		s.log.WithError(err).Error("overdue reminder run failed")
	}
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
