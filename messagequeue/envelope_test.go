package messagequeue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/wyfcoding/allowance/xerrors"
)

func TestDecodeEnvelope(t *testing.T) {
	body := []byte(`{"NewTaskEvent":{"task_id":"t1"},"MarkTaskCompleteEvent":{"task_id":"t1"}}`)

	env, err := DecodeEnvelope(body)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if len(env) != 2 {
		t.Fatalf("len(env) = %d, want 2", len(env))
	}

	names := env.Names()
	if names[0] != "MarkTaskCompleteEvent" || names[1] != "NewTaskEvent" {
		t.Errorf("Names() = %v, want sorted order", names)
	}
}

func TestDecodeEnvelopeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `not-json`},
		{"array", `["NewTaskEvent"]`},
		{"empty object", `{}`},
		{"scalar", `42`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tc.body))
			if xerrors.TypeOf(err) != xerrors.ErrInvalidArg {
				t.Errorf("DecodeEnvelope(%q) error = %v, want ErrInvalidArg", tc.body, err)
			}
		})
	}
}

type capturingPublisher struct {
	topic string
	key   []byte
	body  []byte
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, key, body []byte) error {
	p.topic = topic
	p.key = key
	p.body = body

	return nil
}

func TestCommandClientSend(t *testing.T) {
	pub := &capturingPublisher{}
	client := NewCommandClient(pub, "allowance.task")

	payload := map[string]string{"task_id": "t1"}
	if err := client.Send(context.Background(), "t1", "NewTaskEvent", payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if pub.topic != "allowance.task" {
		t.Errorf("topic = %s", pub.topic)
	}
	if string(pub.key) != "t1" {
		t.Errorf("key = %s", pub.key)
	}

	env, err := DecodeEnvelope(pub.body)
	if err != nil {
		t.Fatalf("round trip decode: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(env["NewTaskEvent"], &decoded); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if decoded["task_id"] != "t1" {
		t.Errorf("payload = %v", decoded)
	}
}
