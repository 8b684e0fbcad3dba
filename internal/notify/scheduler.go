package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// SchedulerOpts holds parameters for creating a Scheduler.
type SchedulerOpts struct {
	Schedule       string // 5-field cron expression
	Aggregator     Computer
	Mentees        MenteeSource
	Notifiers      []Notifier
	WindowWeeks    int
	IncludeWarning bool
	DedupeTTL      time.Duration // 0 disables duplicate suppression
}

// Scheduler sends progress digests on a cron schedule, suppressing entries
// already sent within the dedupe TTL.
type Scheduler struct {
	opts  SchedulerOpts
	cron  *cron.Cron
	sent  *cache.Cache
	dedup bool
}

// NewScheduler validates opts and returns a Scheduler.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("notify: aggregator is required")
	}
	if opts.Mentees == nil {
		return nil, fmt.Errorf("notify: mentee source is required")
	}
	if _, err := cronParser.Parse(opts.Schedule); err != nil {
		return nil, fmt.Errorf("notify: parse schedule %q: %w", opts.Schedule, err)
	}

	s := &Scheduler{
		opts:  opts,
		cron:  cron.New(cron.WithParser(cronParser)),
		dedup: opts.DedupeTTL > 0,
	}
	if s.dedup {
		s.sent = cache.New(opts.DedupeTTL, opts.DedupeTTL)
	}
	return s, nil
}

// RunOnce builds a digest and sends any entries not sent recently. It returns
// the number of entries delivered.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	if len(s.opts.Notifiers) == 0 {
		return 0, nil
	}

	mentees, err := s.opts.Mentees(ctx)
	if err != nil {
		return 0, fmt.Errorf("notify: list mentees: %w", err)
	}
	digest, err := BuildDigest(ctx, s.opts.Aggregator, mentees, s.opts.WindowWeeks, s.opts.IncludeWarning)
	if err != nil {
		return 0, err
	}

	fresh := s.unsent(digest.Entries)
	if len(fresh) == 0 {
		return 0, nil
	}

	msg := digest.Message(fresh)
	var errs []error
	delivered := false
	for _, n := range s.opts.Notifiers {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		delivered = true
	}
	if !delivered {
		return 0, fmt.Errorf("notify: send digest: %w", errors.Join(errs...))
	}

	s.markSent(fresh)
	if len(errs) > 0 {
		return len(fresh), fmt.Errorf("notify: partial delivery: %w", errors.Join(errs...))
	}
	return len(fresh), nil
}

// Start runs the digest on schedule until ctx is cancelled, then waits for
// any running job to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.opts.Schedule, func() {
		n, err := s.RunOnce(ctx)
		if err != nil {
			log.Printf("notify: digest run: %v", err)
			return
		}
		if n > 0 {
			log.Printf("notify: digest sent %d entries", n)
		}
	})
	if err != nil {
		return fmt.Errorf("notify: schedule digest: %w", err)
	}

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// Next returns the next time the digest fires after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, err := cronParser.Parse(s.opts.Schedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t)
}

func (s *Scheduler) unsent(entries []Entry) []Entry {
	if !s.dedup {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if _, found := s.sent.Get(e.Key()); !found {
			out = append(out, e)
		}
	}
	return out
}

func (s *Scheduler) markSent(entries []Entry) {
	if !s.dedup {
		return
	}
	for _, e := range entries {
		s.sent.SetDefault(e.Key(), struct{}{})
	}
}
