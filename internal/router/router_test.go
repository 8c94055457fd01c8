package router

import (
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/olegbarsky/techstock-bot/internal/conversation"
	"github.com/olegbarsky/techstock-bot/pkg/enums"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/metrics"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

func newTestRouter() *Router {
	return New(nil, nil, nil)
}

func newTestTurn() *Turn {
	return &Turn{State: &conversation.State{}}
}

func capture(r *Router, path string, arity int, got *[]string) {
	r.Register(path, arity, func(ctx context.Context, turn *Turn, args []string) ([]telegram.Action, error) {
		*got = append([]string{path}, args...)
		return nil, nil
	})
}

func TestDispatchLongestPrefixWins(t *testing.T) {
	r := newTestRouter()
	var got []string
	capture(r, "ticket", Variadic, &got)
	capture(r, "ticket:delete", 1, &got)
	capture(r, "ticket:delete:confirm", 1, &got)

	r.Dispatch(context.Background(), newTestTurn(), "ticket:delete:confirm:42")

	want := []string{"ticket:delete:confirm", "42"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDispatchShorterPrefixWhenLongerDoesNotMatch(t *testing.T) {
	r := newTestRouter()
	var got []string
	capture(r, "ticket", Variadic, &got)
	capture(r, "ticket:delete:confirm", 1, &got)

	r.Dispatch(context.Background(), newTestTurn(), "ticket:view:42")

	want := []string{"ticket", "view", "42"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDispatchRejoinsTrailingTokens(t *testing.T) {
	r := newTestRouter()
	var got []string
	capture(r, "device:set:serial_number", 2, &got)

	// A typed serial containing literal separators must survive as the
	// final argument.
	r.Dispatch(context.Background(), newTestTurn(), "device:set:serial_number:7:AB:12-34")

	want := []string{"device:set:serial_number", "7", "AB:12-34"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDispatchExactArityNoRejoin(t *testing.T) {
	r := newTestRouter()
	var got []string
	capture(r, "device:set:serial_number", 2, &got)

	r.Dispatch(context.Background(), newTestTurn(), "device:set:serial_number:7:AB1234")

	want := []string{"device:set:serial_number", "7", "AB1234"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDispatchFewerTokensThanArity(t *testing.T) {
	r := newTestRouter()
	var got []string
	capture(r, "device:set:serial_number", 2, &got)

	r.Dispatch(context.Background(), newTestTurn(), "device:set:serial_number:7")

	want := []string{"device:set:serial_number", "7"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDispatchUnmatchedCommandIsInert(t *testing.T) {
	r := newTestRouter()
	var got []string
	capture(r, "ticket:view", 1, &got)

	turn := newTestTurn()
	turn.State.Expect(enums.ScenarioTicketNumber, "ticket:set:number")

	actions, err := r.Dispatch(context.Background(), turn, "garbage:command")

	if err != nil {
		t.Fatalf("unmatched command must not be an error, got %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("unmatched command must produce no actions, got %v", actions)
	}
	if got != nil {
		t.Fatalf("no handler should have run, got %v", got)
	}
	if !turn.State.Pending() {
		t.Fatal("unmatched command must not touch conversation state")
	}
}

func TestRegisterDuplicatePathPanics(t *testing.T) {
	r := newTestRouter()
	noop := func(ctx context.Context, turn *Turn, args []string) ([]telegram.Action, error) {
		return nil, nil
	}
	r.Register("ticket:view", 1, noop)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r.Register("ticket:view", 1, noop)
}

func TestDispatchHandlerErrorFallsBack(t *testing.T) {
	fallbackActions := []telegram.Action{telegram.SendMessage{ChatID: 1, Text: "menu"}}
	r := New(nil, nil, func(turn *Turn) []telegram.Action {
		return fallbackActions
	})
	r.Register("ticket:view", 1, func(ctx context.Context, turn *Turn, args []string) ([]telegram.Action, error) {
		return nil, stderrors.New("boom")
	})

	turn := newTestTurn()
	turn.State.Expect(enums.ScenarioTicketNumber, "ticket:set:number")

	actions, err := r.Dispatch(context.Background(), turn, "ticket:view:42")

	if !stderrors.Is(err, ErrHandlerFailed) {
		t.Fatalf("expected ErrHandlerFailed, got %v", err)
	}
	if !reflect.DeepEqual(actions, fallbackActions) {
		t.Fatalf("expected fallback actions, got %v", actions)
	}
	if turn.State.Pending() {
		t.Fatal("handler failure must reset conversation state")
	}
}

func TestDispatchHandlerPanicFallsBack(t *testing.T) {
	fallbackActions := []telegram.Action{telegram.SendMessage{ChatID: 1, Text: "menu"}}
	r := New(nil, nil, func(turn *Turn) []telegram.Action {
		return fallbackActions
	})
	r.Register("ticket:view", 1, func(ctx context.Context, turn *Turn, args []string) ([]telegram.Action, error) {
		panic("boom")
	})

	actions, err := r.Dispatch(context.Background(), newTestTurn(), "ticket:view:42")

	if !stderrors.Is(err, ErrHandlerFailed) {
		t.Fatalf("expected ErrHandlerFailed after panic, got %v", err)
	}
	if !reflect.DeepEqual(actions, fallbackActions) {
		t.Fatalf("expected fallback actions after panic, got %v", actions)
	}
}

func TestDispatchGuardViolationSkipsFailureMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewDispatchMetrics(reg)
	fallbackActions := []telegram.Action{telegram.SendMessage{ChatID: 1, Text: "menu"}}
	r := New(nil, m, func(turn *Turn) []telegram.Action {
		return fallbackActions
	})
	r.Register("device:add", 0, func(ctx context.Context, turn *Turn, args []string) ([]telegram.Action, error) {
		return nil, errors.New(errors.CodeStateConflict, "no active ticket")
	})
	r.Register("ticket:view", 1, func(ctx context.Context, turn *Turn, args []string) ([]telegram.Action, error) {
		return nil, stderrors.New("boom")
	})

	// A stale-keyboard guard rejection still resets and falls back, but
	// it is not a handler defect and must stay out of the failure count.
	turn := newTestTurn()
	turn.State.Expect(enums.ScenarioTicketNumber, "ticket:set:number")

	actions, err := r.Dispatch(context.Background(), turn, "device:add")
	if !stderrors.Is(err, ErrHandlerFailed) {
		t.Fatalf("expected ErrHandlerFailed on guard rejection, got %v", err)
	}
	if !reflect.DeepEqual(actions, fallbackActions) {
		t.Fatalf("expected fallback actions, got %v", actions)
	}
	if turn.State.Pending() {
		t.Fatal("guard rejection must reset conversation state")
	}
	if got := handlerFailureCount(t, reg); got != 0 {
		t.Fatalf("guard rejection must not count as handler failure, got %v", got)
	}

	if _, err := r.Dispatch(context.Background(), newTestTurn(), "ticket:view:42"); !stderrors.Is(err, ErrHandlerFailed) {
		t.Fatalf("expected ErrHandlerFailed, got %v", err)
	}
	if got := handlerFailureCount(t, reg); got != 1 {
		t.Fatalf("expected one handler failure, got %v", got)
	}
}

func handlerFailureCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "dispatch_handler_failures" {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestDispatchZeroArityDropsTrailingTokens(t *testing.T) {
	r := newTestRouter()
	var got []string
	capture(r, "menu", 0, &got)

	r.Dispatch(context.Background(), newTestTurn(), "menu:stray:tokens")

	want := []string{"menu"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
