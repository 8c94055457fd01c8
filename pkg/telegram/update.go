package telegram

// Package telegram models the narrow slice of the chat platform's wire
// surface this service consumes and produces. Transport (long polling,
// webhooks) and delivery live in downstream collaborators implementing
// UpdateSource and ActionSink.

const chatTypePrivate = "private"

// Sender identifies the human (or bot) behind a message or callback.
type Sender struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Chat is the conversation the event arrived in.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// IsPrivate reports whether the chat is a 1:1 private conversation.
func (c Chat) IsPrivate() bool {
	return c.Type == chatTypePrivate
}

// Message is an inbound free-text message or an outbound message a
// callback is attached to.
type Message struct {
	ID   int64   `json:"message_id"`
	From *Sender `json:"from"`
	Chat Chat    `json:"chat"`
	Text string  `json:"text"`
}

// CallbackQuery is a button press carrying opaque callback data and
// the original message the button was attached to.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    Sender   `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// Update is the discriminated inbound event union: exactly one of
// Message or Callback is set.
type Update struct {
	ID       int64          `json:"update_id"`
	Message  *Message       `json:"message"`
	Callback *CallbackQuery `json:"callback_query"`
}

// IsMessage reports whether the update carries a free-text message.
func (u *Update) IsMessage() bool {
	return u != nil && u.Message != nil
}

// IsCallback reports whether the update carries a button press.
func (u *Update) IsCallback() bool {
	return u != nil && u.Callback != nil
}

// From returns the sender of either event shape, nil when absent.
func (u *Update) From() *Sender {
	switch {
	case u == nil:
		return nil
	case u.Message != nil:
		return u.Message.From
	case u.Callback != nil:
		return &u.Callback.From
	default:
		return nil
	}
}

// Chat returns the chat of either event shape; ok is false when the
// update carries neither shape or the callback has no origin message.
func (u *Update) ChatOf() (Chat, bool) {
	switch {
	case u == nil:
		return Chat{}, false
	case u.Message != nil:
		return u.Message.Chat, true
	case u.Callback != nil && u.Callback.Message != nil:
		return u.Callback.Message.Chat, true
	default:
		return Chat{}, false
	}
}
