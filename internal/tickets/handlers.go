package tickets

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/olegbarsky/techstock-bot/internal/router"
	"github.com/olegbarsky/techstock-bot/pkg/enums"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Handlers exposes the ticket flows as routed command handlers. Every
// handler that needs an active ticket is wrapped by the ticket guard
// at registration and reads it off the turn.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// StartCreate opens the ticket creation flow by asking for the
// external number.
func (h *Handlers) StartCreate(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	turn.State.Expect(enums.ScenarioTicketNumber, "ticket:set:number")
	return []telegram.Action{
		telegram.SendMessage{ChatID: turn.Chat.ID, Text: "Enter the ticket number."},
	}, nil
}

// SetNumber completes creation with the entered number.
func (h *Handlers) SetNumber(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing ticket number argument")
	}
	ticket, err := h.svc.Create(ctx, turn.Tx, turn.User, args[0])
	if retry, actions := retryOnValidation(turn, err); retry {
		return actions, nil
	}
	if err != nil {
		return nil, err
	}

	turn.State.FinishStep()
	turn.State.TicketID = &ticket.ID
	return []telegram.Action{
		telegram.SendMessage{
			ChatID:   turn.Chat.ID,
			Text:     Card(ticket),
			Keyboard: CardKeyboard(ticket),
		},
	}, nil
}

// Show redraws the active ticket card in place of the pressed message.
func (h *Handlers) Show(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	turn.State.FinishStep()
	return h.editCard(turn), nil
}

// AskDelete swaps the card keyboard for a delete confirmation.
func (h *Handlers) AskDelete(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if err := h.checkTicketArg(turn, args); err != nil {
		return nil, err
	}
	return []telegram.Action{
		telegram.EditMessageText{
			ChatID:    turn.Chat.ID,
			MessageID: turn.MessageID,
			Text:      fmt.Sprintf("Delete ticket %s and all its devices?", turn.Ticket.Number),
			Keyboard:  ConfirmDeleteKeyboard(turn.Ticket),
		},
	}, nil
}

// ConfirmDelete drops the ticket after the second press.
func (h *Handlers) ConfirmDelete(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if err := h.checkTicketArg(turn, args); err != nil {
		return nil, err
	}
	number := turn.Ticket.Number
	if err := h.svc.Delete(ctx, turn.Tx, turn.Ticket.ID); err != nil {
		return nil, err
	}
	turn.State.Clear()
	return []telegram.Action{
		telegram.EditMessageText{
			ChatID:    turn.Chat.ID,
			MessageID: turn.MessageID,
			Text:      fmt.Sprintf("Ticket %s deleted.", number),
		},
	}, nil
}

// StartAddDevice shows the device type catalog.
func (h *Handlers) StartAddDevice(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(turn.Ticket.Devices) >= h.svc.maxDevices {
		return []telegram.Action{
			telegram.SendMessage{
				ChatID: turn.Chat.ID,
				Text:   fmt.Sprintf("A ticket holds at most %d devices.", h.svc.maxDevices),
			},
		}, nil
	}
	types, err := h.svc.DeviceTypes(ctx, turn.Tx)
	if err != nil {
		return nil, err
	}
	return []telegram.Action{
		telegram.EditMessageText{
			ChatID:    turn.Chat.ID,
			MessageID: turn.MessageID,
			Text:      "Choose the device type.",
			Keyboard:  TypeKeyboard(types),
		},
	}, nil
}

// PickType creates the device slot of the chosen type and, for
// serialized types, asks for the serial number.
func (h *Handlers) PickType(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing device type argument")
	}
	device, err := h.svc.AddDevice(ctx, turn.Tx, turn.Ticket, args[0])
	if retry, actions := retryOnValidation(turn, err); retry {
		return actions, nil
	}
	if err != nil {
		return nil, err
	}

	if device.Type.HasSerial {
		h.expectSerial(turn, device.Position, args[0])
		return []telegram.Action{
			telegram.EditMessageText{
				ChatID:    turn.Chat.ID,
				MessageID: turn.MessageID,
				Text:      Card(turn.Ticket),
				Keyboard:  CardKeyboard(turn.Ticket),
			},
			telegram.SendMessage{
				ChatID: turn.Chat.ID,
				Text:   fmt.Sprintf("Enter the serial number of the %s.", device.Type.Name),
			},
		}, nil
	}
	return h.editCard(turn), nil
}

// AskSerial re-opens the serial prompt for an existing device.
func (h *Handlers) AskSerial(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	device := turn.Ticket.Devices[turn.DeviceIndex]
	if device.Type == nil || !device.Type.HasSerial {
		return nil, errors.New(errors.CodeStateConflict, "device type carries no serial number")
	}
	slug := device.Type.Slug
	h.expectSerial(turn, turn.DeviceIndex, slug)
	return []telegram.Action{
		telegram.SendMessage{
			ChatID: turn.Chat.ID,
			Text:   fmt.Sprintf("Enter the serial number of the %s.", device.Type.Name),
		},
	}, nil
}

// SetSerial records the entered serial on the indexed device.
func (h *Handlers) SetSerial(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing serial number argument")
	}
	_, err := h.svc.SetSerial(ctx, turn.Tx, turn.Ticket, turn.DeviceIndex, args[0])
	if retry, actions := retryOnValidation(turn, err); retry {
		return actions, nil
	}
	if err != nil {
		return nil, err
	}

	turn.State.FinishStep()
	return []telegram.Action{
		telegram.SendMessage{
			ChatID:   turn.Chat.ID,
			Text:     Card(turn.Ticket),
			Keyboard: CardKeyboard(turn.Ticket),
		},
	}, nil
}

// ToggleDefect flips the defect mark on the indexed device.
func (h *Handlers) ToggleDefect(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if _, err := h.svc.ToggleDefect(ctx, turn.Tx, turn.Ticket, turn.DeviceIndex); err != nil {
		return nil, err
	}
	return h.editCard(turn), nil
}

// RemoveDevice drops the indexed device from the ticket.
func (h *Handlers) RemoveDevice(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if err := h.svc.RemoveDevice(ctx, turn.Tx, turn.Ticket, turn.DeviceIndex); err != nil {
		return nil, err
	}
	turn.State.FinishStep()
	return h.editCard(turn), nil
}

// StartLinkContract asks for the contract number.
func (h *Handlers) StartLinkContract(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	turn.State.Expect(enums.ScenarioContractNumber, "contract:set:number")
	return []telegram.Action{
		telegram.SendMessage{ChatID: turn.Chat.ID, Text: "Enter the contract number."},
	}, nil
}

// SetContractNumber links the entered contract to the active ticket.
func (h *Handlers) SetContractNumber(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing contract number argument")
	}
	_, err := h.svc.LinkContract(ctx, turn.Tx, turn.Ticket, args[0])
	if retry, actions := retryOnValidation(turn, err); retry {
		return actions, nil
	}
	if err != nil {
		return nil, err
	}

	turn.State.FinishStep()
	return []telegram.Action{
		telegram.SendMessage{
			ChatID:   turn.Chat.ID,
			Text:     Card(turn.Ticket),
			Keyboard: CardKeyboard(turn.Ticket),
		},
	}, nil
}

// HistoryPage renders one page of the user's past tickets.
func (h *Handlers) HistoryPage(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	pageNumber := 0
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil {
			pageNumber = parsed
		}
	}
	list, page, err := h.svc.History(ctx, turn.Tx, turn.User.ID, pageNumber)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Your tickets, page %d of %d.", page.Number+1, page.Count())
	if page.Total == 0 {
		text = "You have no tickets yet."
	}
	keyboard := HistoryKeyboard(list, page)
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

// OpenFromHistory activates a past ticket from the history list.
func (h *Handlers) OpenFromHistory(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "missing ticket id argument")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return nil, errors.New(errors.CodeStateConflict, "malformed ticket id")
	}
	ticket, err := h.svc.Get(ctx, turn.Tx, id)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != turn.User.ID {
		return nil, errors.New(errors.CodeStateConflict, "ticket belongs to another user")
	}

	turn.State.Clear()
	turn.State.TicketID = &ticket.ID
	turn.State.Modifier = enums.ModifierFromHistory
	turn.Ticket = ticket
	return []telegram.Action{
		telegram.EditMessageText{
			ChatID:    turn.Chat.ID,
			MessageID: turn.MessageID,
			Text:      Card(ticket),
			Keyboard:  CardKeyboard(ticket),
		},
	}, nil
}

func (h *Handlers) editCard(turn *router.Turn) []telegram.Action {
	return []telegram.Action{
		telegram.EditMessageText{
			ChatID:    turn.Chat.ID,
			MessageID: turn.MessageID,
			Text:      Card(turn.Ticket),
			Keyboard:  CardKeyboard(turn.Ticket),
		},
	}
}

func (h *Handlers) expectSerial(turn *router.Turn, position int, slug string) {
	turn.State.Expect(enums.ScenarioSerialNumber, fmt.Sprintf("device:set:serial_number:%d", position))
	index := position
	turn.State.DeviceIndex = &index
	turn.State.DeviceTypeSlug = slug
}

// checkTicketArg verifies a callback-carried ticket id still names the
// active ticket; a mismatch means the button belongs to a stale card.
func (h *Handlers) checkTicketArg(turn *router.Turn, args []string) error {
	if len(args) == 0 {
		return errors.New(errors.CodeStateConflict, "missing ticket id argument")
	}
	if args[0] != turn.Ticket.ID.String() {
		return errors.New(errors.CodeStateConflict, "callback references a different ticket")
	}
	return nil
}

// retryOnValidation turns a validation error into a retry prompt that
// keeps the pending step armed instead of falling back to the menu.
func retryOnValidation(turn *router.Turn, err error) (bool, []telegram.Action) {
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeValidation {
		return false, nil
	}
	return true, []telegram.Action{
		telegram.SendMessage{
			ChatID: turn.Chat.ID,
			Text:   errors.MetadataFor(errors.CodeValidation).UserMessage,
		},
	}
}
