package workflow

import (
	"context"
	"testing"
	"time"
)

func TestRetryBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{7, 320 * time.Second},
		{8, 10 * time.Minute},
		{50, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := RetryBackoff(5*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("RetryBackoff(5s, %d) expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestDispatchOnce_NilDBIsNoop(t *testing.T) {
	d := &OutboxDispatcher{}
	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("expected 0 attempted, got %d", n)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	d := &OutboxDispatcher{PollInterval: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("dispatcher did not stop after cancel")
	}
}
