// Package relay implements the relay mapping and autoreply state engine:
// the correlation between original and relayed messages, the
// Pending/Approved/Discarded lifecycle of generated replies, and the
// orchestration protocol that ties them to the transport.
package relay

// State is the lifecycle state of an autoreply record. Pending is the
// only initial state; Approved and Discarded are terminal.
type State string

const (
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateDiscarded State = "discarded"
)

// Outcome is the audit-facing encoding of a decision. Exactly one
// serialization is used: "" (unset), "Approved", "Discarded".
type Outcome string

const (
	OutcomeUnset     Outcome = ""
	OutcomeApproved  Outcome = "Approved"
	OutcomeDiscarded Outcome = "Discarded"
)

// OriginParty identifies who originally sent a relayed message: a user
// (direct relay) or a group+message pair (group-to-group chaining).
type OriginParty struct {
	UserID         string `json:"user_id,omitempty"`
	GroupID        string `json:"group_id,omitempty"`
	GroupMessageID string `json:"group_message_id,omitempty"`
}

func UserParty(userID string) OriginParty {
	return OriginParty{UserID: userID}
}

func GroupParty(groupID, messageID string) OriginParty {
	return OriginParty{GroupID: groupID, GroupMessageID: messageID}
}

// IsUser reports whether the origin is a direct user rather than a group.
func (p OriginParty) IsUser() bool {
	return p.UserID != ""
}

// RelayRecord correlates a relayed copy with its original message. It is
// keyed by the relayed copy's id, which is the only identifier available
// when a later reply references it. Records are append-only.
type RelayRecord struct {
	RelayMessageID  string      `json:"relay_message_id"`
	OriginMessageID string      `json:"origin_message_id"`
	Origin          OriginParty `json:"origin"`
	SourceGroupID   string      `json:"source_group_id,omitempty"`
}

// AutoreplyRecord tracks a generated reply offered for approval. It is
// keyed by the control message carrying the approve/discard buttons and
// points back at the relay message it annotates.
type AutoreplyRecord struct {
	ControlMessageID string `json:"control_message_id"`
	RelayMessageID   string `json:"relay_message_id"`
	UserID           string `json:"user_id"`
	Question         string `json:"question"`
	ReplyText        string `json:"reply_text"`
	State            State  `json:"state"`
}
