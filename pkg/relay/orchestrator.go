package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinyland-inc/tinydesk/pkg/audit"
	"github.com/tinyland-inc/tinydesk/pkg/bus"
	"github.com/tinyland-inc/tinydesk/pkg/generate"
	"github.com/tinyland-inc/tinydesk/pkg/locale"
	"github.com/tinyland-inc/tinydesk/pkg/logger"
)

// Options configures the orchestrator's routing surface.
type Options struct {
	// SupportChatID is the relay destination all user messages are
	// forwarded to.
	SupportChatID string
	// TopicID optionally selects a forum sub-thread in the support chat.
	TopicID int
	// Autoreply enables the generate/offer/approve workflow.
	Autoreply bool
	// Languages is the configured set of selectable language tags.
	Languages []string
}

// Orchestrator is the control logic of the relay core. Given a classified
// inbound event it consults the identity store, relay map and autoreply
// workflow, emits outbound send requests, and records one audit turn.
//
// Events must be handled one at a time; the gateway runs a single
// consumer loop over the event bus.
type Orchestrator struct {
	opts      Options
	transport Transport
	identity  *IdentityStore
	relays    *RelayMap
	workflow  *AutoreplyWorkflow
	journal   *audit.Log
	generator generate.Generator
	strings   *locale.Table
}

func NewOrchestrator(
	opts Options,
	transport Transport,
	identity *IdentityStore,
	relays *RelayMap,
	workflow *AutoreplyWorkflow,
	journal *audit.Log,
	generator generate.Generator,
	strings *locale.Table,
) *Orchestrator {
	return &Orchestrator{
		opts:      opts,
		transport: transport,
		identity:  identity,
		relays:    relays,
		workflow:  workflow,
		journal:   journal,
		generator: generator,
		strings:   strings,
	}
}

// HandleEvent dispatches one inbound event. Routing-state mutations
// complete durably before the audit write that references them; audit
// failures never undo a delivery that already happened.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev bus.Event) error {
	switch ev.Kind {
	case bus.EventUserMessage:
		return o.handleUserMessage(ctx, ev)
	case bus.EventOperatorReply:
		return o.handleOperatorReply(ctx, ev)
	case bus.EventDecision:
		return o.handleDecision(ctx, ev)
	case bus.EventLanguageSelect:
		return o.handleLanguageSelect(ctx, ev)
	case bus.EventGroupMention:
		return o.handleGroupMention(ctx, ev)
	case bus.EventStart:
		return o.handleStart(ctx, ev)
	}
	return fmt.Errorf("relay: unhandled event kind %d", ev.Kind)
}

// handleUserMessage forwards a private message to the support chat,
// records the relay mapping and audit turn, and optionally offers a
// generated reply for approval.
func (o *Orchestrator) handleUserMessage(ctx context.Context, ev bus.Event) error {
	lang := o.identity.Language(ev.Sender.ID)
	question := questionText(ev)

	relayID, err := o.transport.Send(ctx, o.annotatedForward(ev))
	if err != nil {
		o.notifySender(ctx, ev.Chat.ID, lang, locale.KeyErrorOccurred)
		return &DeliveryError{Dest: o.opts.SupportChatID, Err: err}
	}

	if err := o.relays.Record(RelayRecord{
		RelayMessageID:  relayID,
		OriginMessageID: ev.MessageID,
		Origin:          UserParty(ev.Sender.ID),
	}); err != nil {
		// Routing state is the source of truth: without the mapping the
		// conversation cannot be answered, so abort before confirming.
		o.notifySender(ctx, ev.Chat.ID, lang, locale.KeyErrorOccurred)
		return err
	}

	var auditErr error
	if err := o.journal.Append(relayID, audit.Turn{Question: question}); err != nil {
		logger.ErrorCF("relay", "audit append failed", map[string]any{"turn": relayID, "error": err.Error()})
		auditErr = err
	}

	if o.opts.Autoreply {
		if err := o.offerAutoreply(ctx, ev, lang, relayID, question); err != nil {
			logger.WarnCF("relay", "autoreply offer skipped", map[string]any{"turn": relayID, "error": err.Error()})
		}
	}

	o.notifySender(ctx, ev.Chat.ID, lang, locale.KeyMessageForwarded)
	return auditErr
}

// offerAutoreply generates a candidate reply, posts it to the support
// chat with approve/discard controls and registers the pending record.
func (o *Orchestrator) offerAutoreply(ctx context.Context, ev bus.Event, lang, relayID, question string) error {
	reply, err := o.generator.Generate(ctx, question)
	if err != nil {
		return fmt.Errorf("generating reply: %w", err)
	}

	controlID, err := o.transport.Send(ctx, SendRequest{
		ChatID:   o.opts.SupportChatID,
		ThreadID: o.opts.TopicID,
		Text:     o.strings.Get(lang, locale.KeyGeneratedReply) + "\n\n" + reply,
		Keyboard: o.decisionKeyboard(lang),
	})
	if err != nil {
		return &DeliveryError{Dest: o.opts.SupportChatID, Err: err}
	}

	if _, err := o.workflow.Offer(AutoreplyRecord{
		ControlMessageID: controlID,
		RelayMessageID:   relayID,
		UserID:           ev.Sender.ID,
		Question:         question,
		ReplyText:        reply,
	}); err != nil {
		return err
	}

	if err := o.journal.Update(relayID, audit.Patch{Autoreply: &reply}); err != nil {
		logger.ErrorCF("relay", "audit update failed", map[string]any{"turn": relayID, "error": err.Error()})
	}
	return nil
}

// handleOperatorReply routes a support-side reply back to where the
// relayed message came from: straight to the user for a direct relay, or
// onward to the source group for a chained one.
func (o *Orchestrator) handleOperatorReply(ctx context.Context, ev bus.Event) error {
	if ev.ReplyTo == nil {
		return nil
	}

	rec, err := o.relays.Resolve(ev.ReplyTo.MessageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Reply to something we never relayed; not ours to route.
			return nil
		}
		return err
	}

	if !rec.Origin.IsUser() {
		return o.relayToSourceGroup(ctx, ev, rec)
	}

	lang := o.identity.Language(rec.Origin.UserID)
	req := SendRequest{ChatID: rec.Origin.UserID}
	if ev.Media != nil {
		media := *ev.Media
		media.Caption = withPrefix(o.strings.Get(lang, locale.KeyReplyReceived), ev.Media.Caption)
		req.Media = &media
	} else {
		req.Text = o.strings.Get(lang, locale.KeyReplyReceived) + "\n\n" + ev.Text
	}
	if _, err := o.transport.Send(ctx, req); err != nil {
		return &DeliveryError{Dest: rec.Origin.UserID, Err: err}
	}

	manual := ev.Text
	if ev.Media != nil {
		manual = mediaDescription(ev.Media)
	}
	patch := audit.Patch{ManualReply: &manual}
	if _, err := o.workflow.FindByRelay(ev.ReplyTo.MessageID); err == nil {
		// A generated reply was offered for this turn and the operator
		// answered manually instead: record the override as discarded.
		outcome := string(OutcomeDiscarded)
		patch.Outcome = &outcome
	}
	if err := o.journal.Update(ev.ReplyTo.MessageID, patch); err != nil {
		logger.ErrorCF("relay", "audit update failed", map[string]any{"turn": ev.ReplyTo.MessageID, "error": err.Error()})
		return err
	}
	return nil
}

// relayToSourceGroup forwards an operator reply back to the group a
// chained relay came from, tagged with the replying operator's handle.
func (o *Orchestrator) relayToSourceGroup(ctx context.Context, ev bus.Event, rec RelayRecord) error {
	req := SendRequest{ChatID: rec.Origin.GroupID}
	if ev.Media != nil {
		media := *ev.Media
		media.Caption = withPrefix("From: @"+ev.Sender.Handle(), ev.Media.Caption)
		req.Media = &media
	} else {
		req.Text = "From: @" + ev.Sender.Handle() + "\n\n" + ev.Text
	}
	if _, err := o.transport.Send(ctx, req); err != nil {
		return &DeliveryError{Dest: rec.Origin.GroupID, Err: err}
	}

	manual := ev.Text
	if ev.Media != nil {
		manual = mediaDescription(ev.Media)
	}
	if err := o.journal.Update(ev.ReplyTo.MessageID, audit.Patch{ManualReply: &manual}); err != nil {
		logger.ErrorCF("relay", "audit update failed", map[string]any{"turn": ev.ReplyTo.MessageID, "error": err.Error()})
		return err
	}
	return nil
}

// handleDecision applies an approve/discard press: transition the record,
// deliver on approval, update the audit turn and rewrite the control
// message to show the final state.
func (o *Orchestrator) handleDecision(ctx context.Context, ev bus.Event) error {
	outcome := OutcomeDiscarded
	if ev.Decision == bus.DecisionApprove {
		outcome = OutcomeApproved
	}

	rec, err := o.workflow.Decide(ev.ControlMessageID, outcome)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			o.editControl(ctx, ev.Chat.ID, ev.ControlMessageID, "Error: could not find autoreply information.")
			return nil
		}
		// ErrAlreadyDecided surfaces as a no-op: the control already
		// shows the terminal state and nothing is delivered twice.
		return err
	}

	lang := o.identity.Language(rec.UserID)
	body := o.strings.Get(lang, locale.KeyGeneratedReply) + "\n\n" + rec.ReplyText

	if outcome == OutcomeApproved {
		if _, err := o.transport.Send(ctx, SendRequest{
			ChatID: rec.UserID,
			Text:   o.strings.Get(lang, locale.KeyReplyReceived) + "\n\n" + rec.ReplyText,
		}); err != nil {
			o.editControl(ctx, ev.Chat.ID, ev.ControlMessageID, "Error sending reply to user.")
			return &DeliveryError{Dest: rec.UserID, Err: err}
		}
	}

	out := string(outcome)
	if err := o.journal.Update(rec.RelayMessageID, audit.Patch{Outcome: &out}); err != nil {
		logger.ErrorCF("relay", "audit update failed", map[string]any{"turn": rec.RelayMessageID, "error": err.Error()})
	}

	if outcome == OutcomeApproved {
		o.editControl(ctx, ev.Chat.ID, ev.ControlMessageID, body+"\n\n✅ "+o.strings.Get(lang, locale.KeyReplyApproved))
	} else {
		o.editControl(ctx, ev.Chat.ID, ev.ControlMessageID, body+"\n\n❌ "+o.strings.Get(lang, locale.KeyReplyDiscarded))
	}
	return nil
}

// handleLanguageSelect stores the chosen tag and acknowledges by editing
// the selection prompt in the newly chosen language.
func (o *Orchestrator) handleLanguageSelect(ctx context.Context, ev bus.Event) error {
	if err := o.identity.SetLanguage(ev.Sender.ID, ev.Language); err != nil {
		return err
	}
	o.editControl(ctx, ev.Chat.ID, ev.ControlMessageID, o.strings.Get(ev.Language, locale.KeyLanguageSelected))
	return nil
}

// handleGroupMention forwards a stripped mention from a non-support group
// to the support chat, recording the group as the origin party so a later
// operator reply is chained back to it.
func (o *Orchestrator) handleGroupMention(ctx context.Context, ev bus.Event) error {
	if ev.Text == "" && ev.Media == nil {
		return nil
	}
	question := questionText(ev)

	tag := ev.Chat.Title
	if tag == "" {
		tag = ev.Chat.ID
	}
	req := SendRequest{
		ChatID:   o.opts.SupportChatID,
		ThreadID: o.opts.TopicID,
	}
	if ev.Media != nil {
		media := *ev.Media
		media.Caption = withPrefix("From group: "+tag, ev.Media.Caption)
		req.Media = &media
	} else {
		req.Text = "From group: " + tag + "\n\n" + ev.Text
	}

	relayID, err := o.transport.Send(ctx, req)
	if err != nil {
		return &DeliveryError{Dest: o.opts.SupportChatID, Err: err}
	}

	if err := o.relays.Record(RelayRecord{
		RelayMessageID:  relayID,
		OriginMessageID: ev.MessageID,
		Origin:          GroupParty(ev.Chat.ID, ev.MessageID),
		SourceGroupID:   ev.Chat.ID,
	}); err != nil {
		return err
	}

	var auditErr error
	if err := o.journal.Append(relayID, audit.Turn{Question: question}); err != nil {
		logger.ErrorCF("relay", "audit append failed", map[string]any{"turn": relayID, "error": err.Error()})
		auditErr = err
	}

	// Confirm in the originating group, not to any private user.
	o.notifySender(ctx, ev.Chat.ID, o.strings.DefaultTag(), locale.KeyMessageForwarded)
	return auditErr
}

// handleStart greets the user; first contact gets the language keyboard.
func (o *Orchestrator) handleStart(ctx context.Context, ev bus.Event) error {
	if tag, ok := o.identity.Stored(ev.Sender.ID); ok {
		_, err := o.transport.Send(ctx, SendRequest{
			ChatID: ev.Chat.ID,
			Text:   o.strings.Get(tag, locale.KeyWelcome),
		})
		if err != nil {
			return &DeliveryError{Dest: ev.Chat.ID, Err: err}
		}
		return nil
	}

	keyboard := make([][]Button, 0, len(o.opts.Languages))
	for _, tag := range o.opts.Languages {
		keyboard = append(keyboard, []Button{{Text: o.strings.Name(tag), Data: "lang_" + tag}})
	}
	_, err := o.transport.Send(ctx, SendRequest{
		ChatID:   ev.Chat.ID,
		Text:     o.strings.Get(o.strings.DefaultTag(), locale.KeyWelcome),
		Keyboard: keyboard,
	})
	if err != nil {
		return &DeliveryError{Dest: ev.Chat.ID, Err: err}
	}
	return nil
}

// annotatedForward builds the support-chat copy of a user message,
// annotated with the sender's display handle.
func (o *Orchestrator) annotatedForward(ev bus.Event) SendRequest {
	req := SendRequest{
		ChatID:   o.opts.SupportChatID,
		ThreadID: o.opts.TopicID,
	}
	if ev.Media != nil {
		media := *ev.Media
		media.Caption = withPrefix("From: @"+ev.Sender.Handle(), ev.Media.Caption)
		req.Media = &media
	} else {
		req.Text = "From: @" + ev.Sender.Handle() + "\n\n" + ev.Text
	}
	return req
}

func (o *Orchestrator) decisionKeyboard(lang string) [][]Button {
	return [][]Button{{
		{Text: o.strings.Get(lang, locale.KeyApprove), Data: string(bus.DecisionApprove)},
		{Text: o.strings.Get(lang, locale.KeyDiscard), Data: string(bus.DecisionDiscard)},
	}}
}

// notifySender sends a localized notice on a best-effort basis; a failed
// notice never aborts the event.
func (o *Orchestrator) notifySender(ctx context.Context, chatID, lang, key string) {
	if _, err := o.transport.Send(ctx, SendRequest{ChatID: chatID, Text: o.strings.Get(lang, key)}); err != nil {
		logger.WarnCF("relay", "notice delivery failed", map[string]any{"chat": chatID, "error": err.Error()})
	}
}

func (o *Orchestrator) editControl(ctx context.Context, chatID, messageID, text string) {
	if err := o.transport.Edit(ctx, chatID, messageID, text, nil); err != nil {
		logger.WarnCF("relay", "control edit failed", map[string]any{"message": messageID, "error": err.Error()})
	}
}

// questionText is the audit-facing text of an inbound message: body text,
// media caption, or a media placeholder.
func questionText(ev bus.Event) string {
	if ev.Media == nil {
		return ev.Text
	}
	return mediaDescription(ev.Media)
}

func mediaDescription(m *bus.Media) string {
	if m.Caption != "" {
		return m.Caption
	}
	return "[Media message]"
}

func withPrefix(prefix, caption string) string {
	if caption == "" {
		return prefix
	}
	return prefix + "\n\n" + caption
}
