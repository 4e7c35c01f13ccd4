package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob("0 3 * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("not a cron", func() {}); err == nil {
		t.Error("Expected error for invalid expression")
	}
}

func TestSchedulerEveryTicksUntilCancelled(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Every(ctx, time.Second, func() {
			select {
			case ticks <- struct{}{}:
			default:
			}
		})
	}()

	select {
	case <-ticks:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a tick within 3s")
	}

	cancel()
	<-done
	if n := s.Entries(); n != 0 {
		t.Errorf("Expected timer entry to be removed, got %d entries", n)
	}
}

func TestSchedulerNow(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if d := time.Since(s.Now()); d < 0 || d > time.Second {
		t.Errorf("Expected Now to be close to wall time, off by %v", d)
	}
}
