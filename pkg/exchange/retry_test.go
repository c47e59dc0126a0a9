package exchange

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestRetry(t *testing.T) {
	var calls int
	err := Retry(context.Background(), log.Println, time.Millisecond, 3, func() error {
		calls++
		switch calls {
		case 1:
			return timeoutError{}
		case 2:
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("want 3 calls, got %d", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	err := Retry(context.Background(), log.Println, time.Millisecond, 2, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if calls != 2 {
		t.Errorf("want 2 calls, got %d", calls)
	}
}

func TestRetryUnsupported(t *testing.T) {
	var calls int
	err := Retry(context.Background(), log.Println, time.Millisecond, 5, func() error {
		calls++
		return ErrUnsupported
	})
	if !errors.Is(err, ErrUnsupported) || calls != 1 {
		t.Errorf("unsupported must not be retried: %v (%d calls)", err, calls)
	}
}

func TestRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, log.Println, time.Hour, 5, func() error { return errors.New("boom") })
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestTickerStop(t *testing.T) {
	tick, update, stop := ticker(time.Millisecond)
	select {
	case <-tick:
	default:
		t.Fatal("first tick should be immediate")
	}
	stop()
	// A tick may already be buffered before stop
	select {
	case <-update:
	default:
	}
	select {
	case <-update:
		t.Error("ticker still running after stop")
	case <-time.After(20 * time.Millisecond):
	}
}
