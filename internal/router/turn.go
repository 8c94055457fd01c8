package router

import (
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/internal/conversation"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Turn carries everything a handler may touch while processing one
// inbound update. All writes a handler performs through Tx commit or
// roll back together with the state update at the end of the turn.
type Turn struct {
	User *models.User
	Chat telegram.Chat

	// MessageID is the message the command originated from. For
	// callback commands it is the message the inline keyboard hangs
	// off, so handlers can edit it in place.
	MessageID int64

	// State is the user's conversation state for this turn. Handlers
	// mutate it in place; the dispatcher persists it afterwards.
	State *conversation.State

	Tx *gorm.DB

	// Ticket and Writeoff are loaded by context guards before the
	// wrapped handler runs; handlers behind the matching guard may rely
	// on them being non-nil.
	Ticket   *models.Ticket
	Writeoff *models.WriteoffDevice

	// DeviceIndex is the validated device position parsed by the
	// device index guard.
	DeviceIndex int
}
