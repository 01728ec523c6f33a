package worker

import (
	"context"
	"testing"

	"github.com/wyfcoding/allowance/cqrs"
	"github.com/wyfcoding/allowance/logging"
	"github.com/wyfcoding/allowance/xerrors"
)

type alphaCommand struct {
	Value string `json:"value"`
}

func (alphaCommand) CommandName() string { return "AlphaEvent" }

type betaCommand struct {
	Value string `json:"value"`
}

func (betaCommand) CommandName() string { return "BetaEvent" }

func newTestWorker(t *testing.T, handled *[]string, failOn string) *Worker {
	t.Helper()

	reg := cqrs.NewRegistry("test", nil)
	record := func(name string) func(context.Context, cqrs.Command) error {
		return func(context.Context, cqrs.Command) error {
			*handled = append(*handled, name)
			if name == failOn {
				return xerrors.FailedPrecondition(name + " rejected")
			}

			return nil
		}
	}

	reg.Register(func() cqrs.Command { return &alphaCommand{} }, record("AlphaEvent"))
	reg.Register(func() cqrs.Command { return &betaCommand{} }, record("BetaEvent"))

	return New(reg, logging.Default())
}

func TestProcessSingleCommand(t *testing.T) {
	var handled []string
	w := newTestWorker(t, &handled, "")

	err := w.Process(context.Background(), []byte(`{"AlphaEvent":{"value":"v"}}`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(handled) != 1 || handled[0] != "AlphaEvent" {
		t.Errorf("handled = %v", handled)
	}
}

func TestProcessMultiCommandDeterministicOrder(t *testing.T) {
	var handled []string
	w := newTestWorker(t, &handled, "")

	// 名称字典序决定处理顺序，与 JSON 键的出现顺序无关。
	err := w.Process(context.Background(), []byte(`{"BetaEvent":{},"AlphaEvent":{}}`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(handled) != 2 || handled[0] != "AlphaEvent" || handled[1] != "BetaEvent" {
		t.Errorf("handled = %v, want [AlphaEvent BetaEvent]", handled)
	}
}

func TestProcessAbortsOnFirstFailure(t *testing.T) {
	var handled []string
	w := newTestWorker(t, &handled, "AlphaEvent")

	err := w.Process(context.Background(), []byte(`{"AlphaEvent":{},"BetaEvent":{}}`))
	if xerrors.TypeOf(err) != xerrors.ErrFailedPrecondition {
		t.Fatalf("Process error = %v, want ErrFailedPrecondition", err)
	}
	// BetaEvent 不应被处理：首个失败即中止。
	if len(handled) != 1 {
		t.Errorf("handled = %v, want only AlphaEvent", handled)
	}
}

func TestProcessMalformedBody(t *testing.T) {
	var handled []string
	w := newTestWorker(t, &handled, "")

	for _, body := range []string{`not-json`, `[]`, `{}`} {
		err := w.Process(context.Background(), []byte(body))
		if xerrors.TypeOf(err) != xerrors.ErrInvalidArg {
			t.Errorf("Process(%q) error = %v, want ErrInvalidArg", body, err)
		}
	}
	if len(handled) != 0 {
		t.Errorf("no command should be handled, got %v", handled)
	}
}

func TestProcessUnknownCommand(t *testing.T) {
	var handled []string
	w := newTestWorker(t, &handled, "")

	err := w.Process(context.Background(), []byte(`{"GammaEvent":{}}`))
	if xerrors.TypeOf(err) != xerrors.ErrInvalidArg {
		t.Errorf("Process error = %v, want ErrInvalidArg", err)
	}
}
