// Package bot orchestrates one conversation turn: acceptance of the
// inbound update, session resolution, routing inside a transaction,
// and persistence of the resulting conversation state.
package bot

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/internal/conversation"
	"github.com/olegbarsky/techstock-bot/internal/router"
	"github.com/olegbarsky/techstock-bot/internal/session"
	"github.com/olegbarsky/techstock-bot/internal/users"
	"github.com/olegbarsky/techstock-bot/pkg/config"
	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/logger"
	"github.com/olegbarsky/techstock-bot/pkg/metrics"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Engine turns inbound updates into ordered outbound actions. One
// update is one turn: all writes it performs, including the state
// update, commit atomically, and turns of the same user never overlap.
type Engine struct {
	cfg      config.BotConfig
	client   *db.Client
	users    *users.Repository
	sessions *session.Dispatcher
	commands *router.Router

	logg    *logger.Logger
	metrics *metrics.DispatchMetrics
}

func NewEngine(cfg config.BotConfig, client *db.Client, userRepo *users.Repository, sessions *session.Dispatcher, logg *logger.Logger, m *metrics.DispatchMetrics) *Engine {
	engine := &Engine{
		cfg:      cfg,
		client:   client,
		users:    userRepo,
		sessions: sessions,
		logg:     logg,
		metrics:  m,
	}
	engine.commands = router.New(logg, m, engine.fallback)
	return engine
}

// Router exposes the command registry for route registration.
func (e *Engine) Router() *router.Router {
	return e.commands
}

// HandleUpdate runs one conversation turn. A nil action slice with a
// nil error means the update was dropped by the acceptance filter.
// Only infrastructure failures and cache divergence return an error.
func (e *Engine) HandleUpdate(ctx context.Context, update telegram.Update) ([]telegram.Action, error) {
	started := time.Now()
	if e.logg != nil {
		ctx = e.logg.WithUpdateID(ctx, update.ID)
	}

	sender, chat, ok := e.accept(ctx, update)
	if !ok {
		e.metrics.ObserveTurn("dropped", time.Since(started))
		return nil, nil
	}
	if e.logg != nil {
		ctx = e.logg.WithUserID(ctx, sender.ID)
		ctx = e.logg.WithChatID(ctx, chat.ID)
	}

	// The per-user lock spans resolution and the turn itself, so two
	// updates from one user can never interleave their reads and
	// writes.
	release := e.sessions.Acquire(sender.ID)
	defer release()

	if update.IsCallback() && !e.sessions.FirstDelivery(ctx, update.Callback.ID) {
		e.metrics.IncDrop(metrics.DropDuplicate)
		e.metrics.ObserveTurn("dropped", time.Since(started))
		return nil, nil
	}

	user, err := e.sessions.Resolve(ctx, sender)
	if err != nil {
		if reason, dropped := dropReason(err); dropped {
			e.metrics.IncDrop(reason)
			e.metrics.ObserveTurn("dropped", time.Since(started))
			if e.logg != nil {
				e.logg.Info(ctx, "update dropped: "+reason)
			}
			return nil, nil
		}
		e.metrics.ObserveTurn("resolve_error", time.Since(started))
		return nil, err
	}

	state := conversation.Decode(user.State)
	command, messageID, routable := e.command(&update, &state)
	if !routable {
		e.metrics.IncDrop(metrics.DropUnsupported)
		e.metrics.ObserveTurn("dropped", time.Since(started))
		return nil, nil
	}
	if e.logg != nil && state.Scenario != "" {
		ctx = e.logg.WithScenario(ctx, state.Scenario.String())
	}

	// A guest resolved this turn has no row yet; it is created inside
	// the turn transaction so a rollback leaves no trace of it.
	guest := user.ID == uuid.Nil

	var actions []telegram.Action
	err = e.client.WithTx(ctx, func(tx *gorm.DB) error {
		if guest {
			if err := e.users.Create(ctx, tx, user); err != nil {
				return err
			}
		}
		turn := &router.Turn{
			User:      user,
			Chat:      chat,
			MessageID: messageID,
			State:     &state,
			Tx:        tx,
		}
		var dispatchErr error
		actions, dispatchErr = e.commands.Dispatch(ctx, turn, command)
		if dispatchErr != nil {
			return dispatchErr
		}

		blob, err := state.Encode()
		if err != nil {
			return err
		}
		user.State = blob
		return e.users.SaveState(ctx, tx, user)
	})
	if err != nil {
		if stderrors.Is(err, router.ErrHandlerFailed) {
			return e.resetAfterFailure(ctx, user, &state, actions, started, guest)
		}
		e.metrics.ObserveTurn("turn_error", time.Since(started))
		return nil, err
	}

	e.sessions.Put(user)
	e.metrics.ObserveTurn("ok", time.Since(started))
	return actions, nil
}

// resetAfterFailure persists the cleared state after a handler failure
// rolled the turn back. The save runs outside the failed transaction
// and is attempted once; if it also fails the turn is abandoned and
// the reset response is withheld so the user's next update starts from
// whatever state the store still holds. A guest whose creating turn
// rolled back has no row to save; it is dropped with the transaction.
func (e *Engine) resetAfterFailure(ctx context.Context, user *models.User, state *conversation.State, fallback []telegram.Action, started time.Time, guest bool) ([]telegram.Action, error) {
	if guest {
		e.metrics.ObserveTurn("reset", time.Since(started))
		return fallback, nil
	}

	blob, err := state.Encode()
	if err == nil {
		user.State = blob
		err = e.users.SaveState(ctx, e.client.DB(), user)
	}
	if err != nil {
		if e.logg != nil {
			e.logg.Error(ctx, "state reset failed, abandoning turn", err)
		}
		e.metrics.ObserveTurn("turn_error", time.Since(started))
		return nil, nil
	}

	e.sessions.Put(user)
	e.metrics.ObserveTurn("reset", time.Since(started))
	return fallback, nil
}

// accept filters out update shapes the engine does not process:
// non-private chats, bot senders, and callbacks whose origin message
// was not authored by this bot.
func (e *Engine) accept(ctx context.Context, update telegram.Update) (telegram.Sender, telegram.Chat, bool) {
	sender := update.From()
	chat, hasChat := update.ChatOf()
	if sender == nil || !hasChat || sender.IsBot || !chat.IsPrivate() {
		e.metrics.IncDrop(metrics.DropUnsupported)
		return telegram.Sender{}, telegram.Chat{}, false
	}
	if update.IsCallback() {
		origin := update.Callback.Message
		if origin.From == nil || origin.From.ID != e.cfg.BotID {
			e.metrics.IncDrop(metrics.DropUnsupported)
			return telegram.Sender{}, telegram.Chat{}, false
		}
	}
	return *sender, chat, true
}

// command maps the update to a routable command string. Callbacks
// route their data verbatim. Free text completes the pending step when
// one is armed; otherwise only slash commands route.
func (e *Engine) command(update *telegram.Update, state *conversation.State) (string, int64, bool) {
	if update.IsCallback() {
		return update.Callback.Data, update.Callback.Message.ID, true
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return "", 0, false
	}
	if strings.HasPrefix(text, "/") {
		command := strings.TrimPrefix(text, "/")
		if command == "start" {
			command = "menu"
		}
		return command, 0, true
	}
	if state.Pending() && state.AwaitCommand != "" {
		return state.AwaitCommand + router.Separator + text, 0, true
	}
	return "", 0, false
}

// fallback is the response the router produces when a handler fails:
// the conversation is already reset, the user is pointed back at the
// menu.
func (e *Engine) fallback(turn *router.Turn) []telegram.Action {
	return []telegram.Action{
		telegram.SendMessage{
			ChatID:   turn.Chat.ID,
			Text:     errors.MetadataFor(errors.CodeInternal).UserMessage,
			Keyboard: menuKeyboard(turn.User),
		},
	}
}

func dropReason(err error) (string, bool) {
	switch {
	case stderrors.Is(err, session.ErrRegistrationClosed):
		return metrics.DropRegistrationClosed, true
	case stderrors.Is(err, session.ErrUserDisabled):
		return metrics.DropUserDisabled, true
	case stderrors.Is(err, session.ErrUserDeleted):
		return metrics.DropUserDeleted, true
	default:
		return "", false
	}
}
