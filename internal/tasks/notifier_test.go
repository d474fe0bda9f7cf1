package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNotifier(t *testing.T) {
	t.Run("jobs get a live context with a deadline", func(t *testing.T) {
		n := NewNotifier(time.Second, nil)

		ran := make(chan bool, 1)
		n.Go("job", func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			ran <- hasDeadline && ctx.Err() == nil
			return nil
		})

		if !n.Wait(context.Background()) {
			t.Fatal("expected job to finish")
		}
		if !<-ran {
			t.Error("job context should be live and bounded")
		}
	})

	t.Run("jobs get their own timeout", func(t *testing.T) {
		n := NewNotifier(20*time.Millisecond, nil)
		n.Go("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if !n.Wait(ctx) {
			t.Fatal("expected slow job to be cut off by its timeout")
		}

		f := <-n.Failures()
		if f.Name != "slow" || !errors.Is(f.Err, context.DeadlineExceeded) {
			t.Errorf("unexpected failure %+v", f)
		}
	})

	t.Run("Wait is bounded", func(t *testing.T) {
		n := NewNotifier(time.Second, nil)
		release := make(chan struct{})
		n.Go("stuck", func(ctx context.Context) error {
			<-release
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if n.Wait(ctx) {
			t.Error("expected Wait to give up")
		}
		close(release)
		n.Wait(context.Background())
	})

	t.Run("failures never block", func(t *testing.T) {
		n := NewNotifier(time.Second, nil)
		for i := 0; i < 40; i++ {
			n.Go("fail", func(context.Context) error { return errors.New("boom") })
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if !n.Wait(ctx) {
			t.Fatal("jobs blocked on a full failure channel")
		}
	})
}
