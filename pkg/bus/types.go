package bus

import "strings"

// EventKind is the transport-level classification of an inbound event.
// The orchestrator matches on it exhaustively.
type EventKind int

const (
	// EventUserMessage is a text or media message from a user in a
	// private chat.
	EventUserMessage EventKind = iota
	// EventOperatorReply is a message in the support destination that
	// replies to a relayed message.
	EventOperatorReply
	// EventDecision is an approve/discard button press on a control
	// message.
	EventDecision
	// EventLanguageSelect is a language button press.
	EventLanguageSelect
	// EventGroupMention is a bot mention in a group other than the
	// support destination.
	EventGroupMention
	// EventStart is the /start command in a private chat.
	EventStart
)

// Decision is the operator's verdict carried by an EventDecision.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDiscard Decision = "discard"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Handle returns the display handle for a user: the username when set,
// otherwise the trimmed full name.
func (u User) Handle() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Chat struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// ReplyRef points at the message an inbound event replies to, by the
// relay-side identifier the transport reports.
type ReplyRef struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text,omitempty"`
}

type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaVoice    MediaKind = "voice"
)

// Media is an opaque reference to a transport-held media object.
type Media struct {
	Kind    MediaKind `json:"kind"`
	FileID  string    `json:"file_id"`
	Caption string    `json:"caption,omitempty"`
}

// Event is the tagged union of inbound transport events. Which fields are
// set depends on Kind:
//
//   - user message / operator reply / group mention: Sender, Chat,
//     MessageID, Text or Media, and ReplyTo for operator replies
//   - decision: Sender, Chat, ControlMessageID, Decision
//   - language select: Sender, Chat, ControlMessageID, Language
//   - start: Sender, Chat
type Event struct {
	Kind      EventKind `json:"kind"`
	Sender    User      `json:"sender"`
	Chat      Chat      `json:"chat"`
	MessageID string    `json:"message_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	Media     *Media    `json:"media,omitempty"`
	ReplyTo   *ReplyRef `json:"reply_to,omitempty"`

	ControlMessageID string   `json:"control_message_id,omitempty"`
	Decision         Decision `json:"decision,omitempty"`
	Language         string   `json:"language,omitempty"`

	Scope string `json:"scope,omitempty"` // event scope for log correlation
}
