package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/retry"
	"github.com/wyfcoding/allowance/xerrors"
)

func headerValue(t *testing.T, msg kafkago.Message, key string) string {
	t.Helper()

	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}

	t.Fatalf("header %q missing", key)

	return ""
}

func TestBuildDeadLetterHeaders(t *testing.T) {
	origin := kafkago.Message{
		Topic: "allowance.bank",
		Key:   []byte("account-42"),
		Value: []byte(`{"WithdrawMoneyEvent":{}}`),
		Headers: []kafkago.Header{
			{Key: "traceparent", Value: []byte("00-abc-def-01")},
		},
	}
	cause := xerrors.FailedPrecondition("insufficient funds")

	msg, category := buildDeadLetter(origin, cause)

	if category != "FailedPrecondition" {
		t.Errorf("category = %q, want FailedPrecondition", category)
	}
	if got := headerValue(t, msg, HeaderOriginTopic); got != "allowance.bank" {
		t.Errorf("%s = %q", HeaderOriginTopic, got)
	}
	if got := headerValue(t, msg, HeaderErrorCategory); got != "FailedPrecondition" {
		t.Errorf("%s = %q", HeaderErrorCategory, got)
	}
	if got := headerValue(t, msg, HeaderErrorMessage); got != cause.Error() {
		t.Errorf("%s = %q, want %q", HeaderErrorMessage, got, cause.Error())
	}
	failedAt := headerValue(t, msg, HeaderFailedAt)
	if _, err := time.Parse(time.RFC3339, failedAt); err != nil {
		t.Errorf("%s = %q is not RFC3339: %v", HeaderFailedAt, failedAt, err)
	}

	// 原始键、消息体与链路头必须原样保留。
	if string(msg.Key) != "account-42" {
		t.Errorf("key = %q", msg.Key)
	}
	if string(msg.Value) != string(origin.Value) {
		t.Errorf("value = %q", msg.Value)
	}
	if got := headerValue(t, msg, "traceparent"); got != "00-abc-def-01" {
		t.Errorf("traceparent = %q", got)
	}
}

func TestBuildDeadLetterUnclassifiedError(t *testing.T) {
	_, category := buildDeadLetter(kafkago.Message{Topic: "allowance.task"}, errors.New("boom"))
	if category != "Unknown" {
		t.Errorf("category = %q, want Unknown", category)
	}
}

func newTestDeadLetterWriter(write func(ctx context.Context, msgs ...kafkago.Message) error) *DeadLetterWriter {
	return &DeadLetterWriter{
		write:   write,
		topic:   "allowance.dlq",
		logger:  logging.Default(),
		context: "bank",
		retry: retry.Config{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     1,
		},
	}
}

func TestDeadLetterWriteRetriesThenSucceeds(t *testing.T) {
	var attempts int
	d := newTestDeadLetterWriter(func(context.Context, ...kafkago.Message) error {
		attempts++
		if attempts == 1 {
			return errors.New("broker unreachable")
		}

		return nil
	})

	err := d.Write(context.Background(), kafkago.Message{Topic: "allowance.bank"}, xerrors.NotFound("account not found"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDeadLetterWriteSurrendersAfterRetries(t *testing.T) {
	var attempts int
	d := newTestDeadLetterWriter(func(context.Context, ...kafkago.Message) error {
		attempts++

		return errors.New("broker unreachable")
	})

	err := d.Write(context.Background(), kafkago.Message{Topic: "allowance.bank"}, xerrors.NotFound("account not found"))
	if err == nil {
		t.Fatal("Write succeeded, want error")
	}
	if xerrors.TypeOf(err) != xerrors.ErrUnavailable {
		t.Errorf("err type = %v, want ErrUnavailable", xerrors.TypeOf(err))
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}
