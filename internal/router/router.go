package router

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/logger"
	"github.com/olegbarsky/techstock-bot/pkg/metrics"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Separator splits command paths and arguments on the wire.
const Separator = ":"

// Variadic marks a handler that takes however many arguments remain;
// no trailing rejoin is applied.
const Variadic = -1

// ErrHandlerFailed marks a turn whose handler returned an error or
// panicked. The returned actions carry the reset response; the caller
// must discard the turn's pending writes and persist the cleared
// state on its own.
var ErrHandlerFailed = stderrors.New("handler failed")

// HandlerFunc processes one routed command within a turn and returns
// the ordered outbound actions. Returning an error never crashes the
// turn: the router converts it into the fallback response.
type HandlerFunc func(ctx context.Context, turn *Turn, args []string) ([]telegram.Action, error)

// FallbackFunc builds the "inconsistent state, back to the main menu"
// response delivered when a handler fails.
type FallbackFunc func(turn *Turn) []telegram.Action

type route struct {
	path    string
	tokens  []string
	arity   int
	handler HandlerFunc
}

// Router is a registry of colon-delimited command paths resolved by
// longest-prefix match.
type Router struct {
	routes   map[string]route
	logg     *logger.Logger
	metrics  *metrics.DispatchMetrics
	fallback FallbackFunc
}

// New constructs an empty router. The fallback is invoked whenever a
// handler returns an error or panics.
func New(logg *logger.Logger, m *metrics.DispatchMetrics, fallback FallbackFunc) *Router {
	return &Router{
		routes:   make(map[string]route),
		logg:     logg,
		metrics:  m,
		fallback: fallback,
	}
}

// Register binds a literal path to a handler. arity declares how many
// parameters the handler takes so trailing tokens can be rejoined into
// the final one; pass Variadic to take the remainder as-is.
// Registering a duplicate path is a configuration error and panics at
// startup rather than surfacing at request time.
func (r *Router) Register(path string, arity int, handler HandlerFunc) {
	if path == "" {
		panic("router: empty command path")
	}
	if handler == nil {
		panic(fmt.Sprintf("router: nil handler for %q", path))
	}
	if _, exists := r.routes[path]; exists {
		panic(fmt.Sprintf("router: duplicate command path %q", path))
	}
	r.routes[path] = route{
		path:    path,
		tokens:  strings.Split(path, Separator),
		arity:   arity,
		handler: handler,
	}
}

// Dispatch resolves the command string to the registered path with the
// most matching leading tokens and invokes its handler with the
// remaining tokens as positional arguments. An unmatched command is
// inert: it logs and returns no actions. A handler error or panic
// clears the state, and the fallback actions come back together with
// ErrHandlerFailed so the caller can abort the turn's writes.
func (r *Router) Dispatch(ctx context.Context, turn *Turn, command string) ([]telegram.Action, error) {
	matched, ok := r.resolve(command)
	if !ok {
		if r.logg != nil {
			r.logg.Warn(r.logg.WithCommand(ctx, command), "no handler for command")
		}
		r.metrics.IncCommand("unmatched")
		return nil, nil
	}
	r.metrics.IncCommand("matched")

	args := r.arguments(matched, command)

	actions, err := r.invoke(ctx, matched, turn, args)
	if err != nil {
		// Guard violations are expected traffic from stale keyboards,
		// not handler defects: they log at warn and stay out of the
		// failure counter. The reset still applies either way.
		if isGuardViolation(err) {
			if r.logg != nil {
				r.logg.Warn(r.logg.WithCommand(ctx, command), "command rejected by guard, resetting conversation")
			}
		} else {
			if r.logg != nil {
				lctx := r.logg.WithCommand(ctx, command)
				r.logg.Error(lctx, "handler failed, resetting conversation", err)
			}
			r.metrics.IncHandlerFailure()
		}
		turn.State.Clear()
		var fallback []telegram.Action
		if r.fallback != nil {
			fallback = r.fallback(turn)
		}
		return fallback, fmt.Errorf("command %s: %w: %v", matched.path, ErrHandlerFailed, err)
	}
	return actions, nil
}

// Resolves the longest registered prefix of the command's tokens.
func (r *Router) resolve(command string) (route, bool) {
	tokens := strings.Split(command, Separator)

	var best route
	found := false
	for _, candidate := range r.routes {
		if len(candidate.tokens) > len(tokens) {
			continue
		}
		if !tokensPrefix(candidate.tokens, tokens) {
			continue
		}
		if !found || len(candidate.tokens) > len(best.tokens) {
			best = candidate
			found = true
		}
	}
	return best, found
}

// arguments returns the trailing tokens, rejoining the overflow into
// the final declared parameter so free-form values containing literal
// separators (typed serial numbers echoed through callback data)
// survive the round trip intact.
func (r *Router) arguments(matched route, command string) []string {
	rest := strings.Split(command, Separator)[len(matched.tokens):]
	if matched.arity == Variadic || len(rest) <= matched.arity {
		return rest
	}
	if matched.arity == 0 {
		return nil
	}
	rejoined := append([]string{}, rest[:matched.arity-1]...)
	return append(rejoined, strings.Join(rest[matched.arity-1:], Separator))
}

func (r *Router) invoke(ctx context.Context, matched route, turn *Turn, args []string) (actions []telegram.Action, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler %s panicked: %v", matched.path, rec)
		}
	}()
	return matched.handler(ctx, turn, args)
}

func isGuardViolation(err error) bool {
	typed := errors.As(err)
	return typed != nil && typed.Code() == errors.CodeStateConflict
}

func tokensPrefix(prefix, tokens []string) bool {
	for i, token := range prefix {
		if tokens[i] != token {
			return false
		}
	}
	return true
}
