package bot

import (
	"context"

	"github.com/olegbarsky/techstock-bot/internal/router"
	"github.com/olegbarsky/techstock-bot/internal/users"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// MenuHandlers covers the entry points that are not tied to any flow:
// the main menu and the manager registration switch.
type MenuHandlers struct {
	users *users.Repository
}

func NewMenuHandlers(userRepo *users.Repository) *MenuHandlers {
	return &MenuHandlers{users: userRepo}
}

// Menu drops any pending flow and shows the main menu.
func (h *MenuHandlers) Menu(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	turn.State.Clear()
	return []telegram.Action{
		telegram.SendMessage{
			ChatID:   turn.Chat.ID,
			Text:     menuText(turn.User),
			Keyboard: menuKeyboard(turn.User),
		},
	}, nil
}

// ToggleRegistration flips whether this manager accepts guest
// self-registrations.
func (h *MenuHandlers) ToggleRegistration(ctx context.Context, turn *router.Turn, args []string) ([]telegram.Action, error) {
	if !turn.User.IsManager {
		return []telegram.Action{
			telegram.SendMessage{ChatID: turn.Chat.ID, Text: "Only managers control registration."},
		}, nil
	}
	turn.User.AcceptsRegistrations = !turn.User.AcceptsRegistrations
	if err := h.users.Save(ctx, turn.Tx, turn.User); err != nil {
		return nil, err
	}
	text := "Registration closed."
	if turn.User.AcceptsRegistrations {
		text = "Registration open, new users may join."
	}
	return []telegram.Action{
		telegram.SendMessage{ChatID: turn.Chat.ID, Text: text},
	}, nil
}

func menuText(user *models.User) string {
	if user.IsGuest() {
		return "You are registered. A manager will assign your role shortly."
	}
	name := user.FullName()
	if name == "" {
		return "What would you like to do?"
	}
	return "Hello, " + name + ". What would you like to do?"
}

func menuKeyboard(user *models.User) telegram.InlineKeyboard {
	if user.IsGuest() {
		return nil
	}
	keyboard := telegram.InlineKeyboard{
		{{Text: "New ticket", CallbackData: "ticket:create"}},
		{{Text: "My tickets", CallbackData: "history:page:0"}},
		{{Text: "Write-offs", CallbackData: "writeoff:list"}},
	}
	if user.IsManager {
		keyboard = append(keyboard, []telegram.InlineButton{{
			Text:         "Toggle registration",
			CallbackData: "user:toggle:registration",
		}})
	}
	return keyboard
}
