package writeoffs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/olegbarsky/techstock-bot/internal/router"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/enums"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Handlers exposes the write-off flows as routed command handlers.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// StartAdd shows the device type catalog for a new write-off entry.
func (h *Handlers) StartAdd(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	types, err := h.svc.DeviceTypes(ctx, turn.Tx)
	if err != nil {
		return nil, err
	}
	var keyboard telegram.InlineKeyboard
	for _, deviceType := range types {
		keyboard = append(keyboard, []telegram.InlineButton{{
			Text:         deviceType.Name,
			CallbackData: "writeoff:type:" + deviceType.Slug,
		}})
	}
	keyboard = append(keyboard, []telegram.InlineButton{{
		Text:         "Cancel",
		CallbackData: "menu",
	}})
	return []telegram.Action{
		telegram.SendMessage{
			ChatID:   turn.Chat.ID,
			Text:     "Choose the type of the written-off device.",
			Keyboard: keyboard,
		},
	}, nil
}

// PickType creates the entry and, for serialized types, asks for the
// serial number.
func (h *Handlers) PickType(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing device type argument")
	}
	entry, err := h.svc.Add(ctx, turn.Tx, turn.User, args[0])
	if err != nil {
		return nil, err
	}

	if entry.Type.HasSerial {
		turn.State.Expect(enums.ScenarioWriteoffSerial, "writeoff:set:serial_number")
		turn.State.WriteoffID = &entry.ID
		return []telegram.Action{
			telegram.SendMessage{
				ChatID: turn.Chat.ID,
				Text:   fmt.Sprintf("Enter the serial number of the %s.", entry.Type.Name),
			},
		}, nil
	}
	return h.list(ctx, turn)
}

// SetSerial records the entered serial on the pending entry.
func (h *Handlers) SetSerial(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing serial number argument")
	}
	err := h.svc.SetSerial(ctx, turn.Tx, turn.Writeoff, args[0])
	if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeValidation {
		return []telegram.Action{
			telegram.SendMessage{
				ChatID: turn.Chat.ID,
				Text:   errors.MetadataFor(errors.CodeValidation).UserMessage,
			},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	turn.State.Clear()
	return h.list(ctx, turn)
}

// List renders the user's write-off list.
func (h *Handlers) List(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	return h.list(ctx, turn)
}

// ToggleDefect flips the defect mark on the pressed entry.
func (h *Handlers) ToggleDefect(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	entry, err := h.entryFromArgs(ctx, turn, args)
	if err != nil {
		return nil, err
	}
	if err := h.svc.ToggleDefect(ctx, turn.Tx, entry); err != nil {
		return nil, err
	}
	return h.list(ctx, turn)
}

// Remove drops the pressed entry.
func (h *Handlers) Remove(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing write-off id argument")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return nil, errors.New(errors.CodeStateConflict, "malformed write-off id")
	}
	if err := h.svc.Remove(ctx, turn.Tx, turn.User, id); err != nil {
		return nil, err
	}
	return h.list(ctx, turn)
}

func (h *Handlers) entryFromArgs(ctx context.Context, turn *router.Turn, args []string) (*models.WriteoffDevice, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing write-off id argument")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return nil, errors.New(errors.CodeStateConflict, "malformed write-off id")
	}
	entry, err := h.svc.writeoffs.FindByID(ctx, turn.Tx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != turn.User.ID {
		return nil, errors.New(errors.CodeStateConflict, "write-off entry belongs to another user")
	}
	return entry, nil
}

func (h *Handlers) list(ctx context.Context, turn *router.Turn) ([]telegram.Action, error) {
	entries, err := h.svc.List(ctx, turn.Tx, turn.User.ID)
	if err != nil {
		return nil, err
	}
	text, keyboard := renderList(entries)
	if turn.MessageID != 0 {
		return []telegram.Action{
			telegram.EditMessageText{
				ChatID:    turn.Chat.ID,
				MessageID: turn.MessageID,
				Text:      text,
				Keyboard:  keyboard,
			},
		}, nil
	}
	return []telegram.Action{
		telegram.SendMessage{ChatID: turn.Chat.ID, Text: text, Keyboard: keyboard},
	}, nil
}

func renderList(entries []models.WriteoffDevice) (string, telegram.InlineKeyboard) {
	var keyboard telegram.InlineKeyboard
	if len(entries) == 0 {
		keyboard = append(keyboard, []telegram.InlineButton{
			{Text: "Add device", CallbackData: "writeoff:add"},
			{Text: "Menu", CallbackData: "menu"},
		})
		return "Your write-off list is empty.", keyboard
	}

	var b strings.Builder
	b.WriteString("Written-off devices:\n")
	for i, entry := range entries {
		name := "device"
		if entry.Type != nil {
			name = entry.Type.Name
		}
		fmt.Fprintf(&b, "%d. %s", i+1, name)
		if entry.SerialNumber != nil {
			b.WriteString(" " + *entry.SerialNumber)
		}
		if entry.Defect {
			b.WriteString(" (defect)")
		}
		b.WriteByte('\n')

		keyboard = append(keyboard, []telegram.InlineButton{
			{
				Text:         fmt.Sprintf("%d defect", i+1),
				CallbackData: "writeoff:toggle:defect:" + entry.ID.String(),
			},
			{
				Text:         fmt.Sprintf("%d remove", i+1),
				CallbackData: "writeoff:remove:" + entry.ID.String(),
			},
		})
	}
	keyboard = append(keyboard, []telegram.InlineButton{
		{Text: "Add device", CallbackData: "writeoff:add"},
		{Text: "Menu", CallbackData: "menu"},
	})
	return strings.TrimRight(b.String(), "\n"), keyboard
}
