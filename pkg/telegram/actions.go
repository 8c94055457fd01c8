package telegram

import "context"

// InlineButton is one button of an inline keyboard; pressing it sends
// CallbackData back through the command grammar.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboard is the button layout attached to an outbound message,
// row-major.
type InlineKeyboard [][]InlineButton

// Action is one outbound platform method invocation. The orchestrator
// returns an ordered slice of these; an ActionSink performs delivery.
type Action interface {
	// Method names the platform API method, for logging and sinks.
	Method() string
}

// SendMessage posts a new message to a chat.
type SendMessage struct {
	ChatID   int64
	Text     string
	Keyboard InlineKeyboard
}

func (SendMessage) Method() string { return "sendMessage" }

// EditMessageText replaces the text (and keyboard) of an existing
// bot-authored message.
type EditMessageText struct {
	ChatID    int64
	MessageID int64
	Text      string
	Keyboard  InlineKeyboard
}

func (EditMessageText) Method() string { return "editMessageText" }

// EditMessageReplyMarkup replaces only the keyboard of an existing
// message.
type EditMessageReplyMarkup struct {
	ChatID    int64
	MessageID int64
	Keyboard  InlineKeyboard
}

func (EditMessageReplyMarkup) Method() string { return "editMessageReplyMarkup" }

// DeleteMessage removes a previously sent message.
type DeleteMessage struct {
	ChatID    int64
	MessageID int64
}

func (DeleteMessage) Method() string { return "deleteMessage" }

// UpdateSource yields inbound updates; implemented by the transport
// collaborator (long polling or webhook fan-in).
type UpdateSource interface {
	// Updates returns a channel closed when the source shuts down.
	Updates(ctx context.Context) (<-chan Update, error)
	Close() error
}

// ActionSink delivers outbound actions in order; implemented by the
// delivery collaborator which owns retries against the platform API.
type ActionSink interface {
	Deliver(ctx context.Context, actions []Action) error
}
