package breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/allowance/breaker"
	"github.com/wyfcoding/allowance/config"
)

func newEnabledBreaker(ignored ...error) *breaker.Breaker {
	return breaker.NewBreaker(breaker.Settings{
		Name: "test",
		Config: config.CircuitBreakerConfig{
			Enabled:     true,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
		},
		IgnoredErrors: ignored,
	}, nil)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := newEnabledBreaker()
	boom := errors.New("boom")

	var sawOpen bool
	for i := 0; i < 10; i++ {
		_, err := b.Execute(func() (any, error) { return nil, boom })
		if errors.Is(err, breaker.ErrServiceUnavailable) {
			sawOpen = true

			break
		}
	}

	if !sawOpen {
		t.Error("breaker never opened after repeated failures")
	}
}

func TestBreakerIgnoredErrorsNotCounted(t *testing.T) {
	ignored := errors.New("expected business error")
	b := newEnabledBreaker(ignored)

	for i := 0; i < 20; i++ {
		_, err := b.Execute(func() (any, error) {
			return nil, errors.Join(errors.New("ctx"), ignored)
		})
		if errors.Is(err, breaker.ErrServiceUnavailable) {
			t.Fatalf("breaker opened on ignored error at attempt %d", i)
		}
		if !errors.Is(err, ignored) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
}

func TestDisabledBreakerPassesThrough(t *testing.T) {
	b := breaker.NewBreaker(breaker.Settings{Name: "off"}, nil)
	boom := errors.New("boom")

	for i := 0; i < 10; i++ {
		_, err := b.Execute(func() (any, error) { return nil, boom })
		if !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
}
