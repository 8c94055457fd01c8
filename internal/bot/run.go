package bot

import (
	"context"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Run consumes updates from the source until it closes or the context
// ends, delivering each turn's actions through the sink. Each update
// runs in its own goroutine; the per-user session locks keep one
// user's turns serialized while different users proceed in parallel.
// Handler and delivery failures are logged and the loop continues;
// fatal consistency errors stop the service. The source is closed on
// exit.
func (e *Engine) Run(ctx context.Context, source telegram.UpdateSource, sink telegram.ActionSink) error {
	updates, err := source.Updates(ctx)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case update, ok := <-updates:
				if !ok {
					return nil
				}
				group.Go(func() error {
					return e.processUpdate(ctx, update, sink)
				})
			}
		}
	})
	return multierr.Append(group.Wait(), source.Close())
}

func (e *Engine) processUpdate(ctx context.Context, update telegram.Update, sink telegram.ActionSink) error {
	actions, err := e.HandleUpdate(ctx, update)
	if err != nil {
		if errors.IsFatal(err) {
			if e.logg != nil {
				e.logg.Error(ctx, "fatal consistency failure, stopping", err)
			}
			return err
		}
		if e.logg != nil {
			e.logg.Error(ctx, "turn failed", err)
		}
		return nil
	}
	if len(actions) == 0 {
		return nil
	}
	if err := sink.Deliver(ctx, actions); err != nil {
		if e.logg != nil {
			e.logg.Error(ctx, "delivering actions failed", err)
		}
	}
	return nil
}
