// Package guards wraps command handlers with conversation context
// preconditions. A guard that fails returns a typed error, which the
// router converts into the fallback response and a state reset, so
// handlers behind a guard never see an impossible context.
package guards

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/internal/router"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Association names accepted by RequireTicket loads.
const (
	LoadDevices     = "Devices"
	LoadDeviceTypes = "Devices.Type"
	LoadContract    = "Contract"
)

// TicketLoader fetches one ticket with the requested associations
// preloaded, scoped to the turn's transaction.
type TicketLoader interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, loads ...string) (*models.Ticket, error)
}

// WriteoffLoader fetches one write-off entry within the turn's
// transaction.
type WriteoffLoader interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.WriteoffDevice, error)
}

// IndexMode selects how RequireDeviceIndex bounds-checks the parsed
// position against the active ticket's device collection.
type IndexMode int

const (
	// IndexExisting requires the position to reference a device that
	// already exists on the ticket.
	IndexExisting IndexMode = iota
	// IndexAppendable additionally admits the position one past the
	// end, for flows still creating that device slot.
	IndexAppendable
)

// RequireTicket loads the ticket referenced by the conversation state,
// verifies it belongs to the turn's user, and hands it to the wrapped
// handler on the turn.
func RequireTicket(tickets TicketLoader, loads []string, next router.HandlerFunc) router.HandlerFunc {
	return func(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
		if turn.State.TicketID == nil {
			return nil, errors.New(errors.CodeStateConflict, "no active ticket in conversation")
		}
		ticket, err := tickets.FindByID(ctx, turn.Tx, *turn.State.TicketID, loads...)
		if err != nil {
			return nil, err
		}
		if ticket.UserID != turn.User.ID {
			return nil, errors.New(errors.CodeStateConflict, "active ticket belongs to another user")
		}
		turn.Ticket = ticket
		return next(ctx, turn, args)
	}
}

// RequireNoTicket rejects commands that start a new flow while a
// ticket is still active in the conversation.
func RequireNoTicket(next router.HandlerFunc) router.HandlerFunc {
	return func(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
		if turn.State.TicketID != nil {
			return nil, errors.New(errors.CodeStateConflict, "a ticket is already active in conversation")
		}
		return next(ctx, turn, args)
	}
}

// RequireWriteoff loads the write-off entry referenced by the
// conversation state and verifies ownership.
func RequireWriteoff(writeoffs WriteoffLoader, next router.HandlerFunc) router.HandlerFunc {
	return func(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
		if turn.State.WriteoffID == nil {
			return nil, errors.New(errors.CodeStateConflict, "no active write-off in conversation")
		}
		entry, err := writeoffs.FindByID(ctx, turn.Tx, *turn.State.WriteoffID)
		if err != nil {
			return nil, err
		}
		if entry.UserID != turn.User.ID {
			return nil, errors.New(errors.CodeStateConflict, "active write-off belongs to another user")
		}
		turn.Writeoff = entry
		return next(ctx, turn, args)
	}
}

// RequireDeviceIndex parses the first argument as a device position on
// the already loaded ticket, bounds-checks it per mode, and passes the
// remaining arguments on. maxDevices caps IndexAppendable growth.
// Chain it after RequireTicket with the device association loaded.
func RequireDeviceIndex(mode IndexMode, maxDevices int, next router.HandlerFunc) router.HandlerFunc {
	return func(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
		if turn.Ticket == nil {
			return nil, errors.New(errors.CodeStateConflict, "device index guard requires a loaded ticket")
		}
		if len(args) == 0 {
			return nil, errors.New(errors.CodeStateConflict, "missing device index argument")
		}
		index, err := strconv.Atoi(args[0])
		if err != nil || index < 0 {
			return nil, errors.New(errors.CodeStateConflict, fmt.Sprintf("malformed device index %q", args[0]))
		}

		count := len(turn.Ticket.Devices)
		switch mode {
		case IndexExisting:
			if index >= count {
				return nil, errors.New(errors.CodeStateConflict, fmt.Sprintf("device index %d out of range %d", index, count))
			}
		case IndexAppendable:
			if index > count {
				return nil, errors.New(errors.CodeStateConflict, fmt.Sprintf("device index %d skips past end %d", index, count))
			}
			if index >= maxDevices {
				return nil, errors.New(errors.CodeValidation, fmt.Sprintf("device limit %d reached", maxDevices))
			}
		}

		turn.DeviceIndex = index
		return next(ctx, turn, args[1:])
	}
}
