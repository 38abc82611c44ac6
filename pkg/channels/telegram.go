package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/tinydesk/pkg/bus"
	"github.com/tinyland-inc/tinydesk/pkg/logger"
	"github.com/tinyland-inc/tinydesk/pkg/relay"
)

// TelegramChannel is the Telegram transport: it classifies bot API
// updates into relay events and implements the relay Transport
// capability for outbound deliveries.
type TelegramChannel struct {
	*BaseChannel
	bot           *telego.Bot
	botUsername   string
	supportChatID int64
}

func NewTelegramChannel(token string, supportChatID int64, eventBus *bus.EventBus, allowList []string) (*TelegramChannel, error) {
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &TelegramChannel{
		BaseChannel:   NewBaseChannel("telegram", eventBus, allowList),
		bot:           bot,
		supportChatID: supportChatID,
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	c.botUsername = me.Username

	updates, err := c.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("telegram long polling: %w", err)
	}

	c.SetRunning(true)
	logger.InfoCF("telegram", "channel started", map[string]any{"bot": c.botUsername})

	go func() {
		defer c.SetRunning(false)
		for update := range updates {
			c.handleUpdate(ctx, update)
		}
	}()

	return nil
}

func (c *TelegramChannel) Stop(_ context.Context) error {
	c.SetRunning(false)
	return nil
}

// handleUpdate classifies one bot API update into a relay event. The
// orchestrator only ever sees the tagged union, never platform types.
func (c *TelegramChannel) handleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	}
}

func (c *TelegramChannel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil {
		return
	}
	if !c.IsAllowed(compoundSenderID(msg.From)) {
		return
	}

	sender := busUser(*msg.From)
	chat := bus.Chat{ID: strconv.FormatInt(msg.Chat.ID, 10), Title: msg.Chat.Title}
	media := extractMedia(msg)

	switch {
	case msg.Chat.Type == telego.ChatTypePrivate:
		if strings.HasPrefix(msg.Text, "/") {
			if command(msg.Text) == "/start" {
				c.Publish(ctx, bus.Event{Kind: bus.EventStart, Sender: sender, Chat: chat})
			}
			return
		}
		if msg.Text == "" && media == nil {
			return
		}
		c.Publish(ctx, bus.Event{
			Kind:      bus.EventUserMessage,
			Sender:    sender,
			Chat:      chat,
			MessageID: strconv.Itoa(msg.MessageID),
			Text:      msg.Text,
			Media:     media,
		})

	case msg.Chat.ID == c.supportChatID:
		if msg.ReplyToMessage == nil {
			return
		}
		replied := msg.ReplyToMessage
		repliedText := replied.Text
		if repliedText == "" {
			repliedText = replied.Caption
		}
		c.Publish(ctx, bus.Event{
			Kind:      bus.EventOperatorReply,
			Sender:    sender,
			Chat:      chat,
			MessageID: strconv.Itoa(msg.MessageID),
			Text:      msg.Text,
			Media:     media,
			ReplyTo: &bus.ReplyRef{
				MessageID: strconv.Itoa(replied.MessageID),
				Text:      repliedText,
			},
		})

	default:
		// Some other group: only mentions of the bot are relayed.
		if !c.mentioned(msg) {
			return
		}
		text := stripMention(firstNonEmpty(msg.Text, msg.Caption), c.botUsername)
		if text == "" && media == nil {
			return
		}
		if media != nil {
			media.Caption = stripMention(media.Caption, c.botUsername)
		}
		c.Publish(ctx, bus.Event{
			Kind:      bus.EventGroupMention,
			Sender:    sender,
			Chat:      chat,
			MessageID: strconv.Itoa(msg.MessageID),
			Text:      text,
			Media:     media,
		})
	}
}

func (c *TelegramChannel) handleCallback(ctx context.Context, query *telego.CallbackQuery) {
	// Acknowledge immediately so the client stops its spinner; routing
	// happens after.
	if err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: query.ID}); err != nil {
		logger.WarnCF("telegram", "callback answer failed", map[string]any{"error": err.Error()})
	}
	if query.Message == nil {
		return
	}

	sender := busUser(query.From)
	chat := bus.Chat{ID: strconv.FormatInt(query.Message.GetChat().ID, 10)}
	controlID := strconv.Itoa(query.Message.GetMessageID())

	switch {
	case query.Data == string(bus.DecisionApprove) || query.Data == string(bus.DecisionDiscard):
		c.Publish(ctx, bus.Event{
			Kind:             bus.EventDecision,
			Sender:           sender,
			Chat:             chat,
			ControlMessageID: controlID,
			Decision:         bus.Decision(query.Data),
		})
	case strings.HasPrefix(query.Data, "lang_"):
		c.Publish(ctx, bus.Event{
			Kind:             bus.EventLanguageSelect,
			Sender:           sender,
			Chat:             chat,
			ControlMessageID: controlID,
			Language:         strings.TrimPrefix(query.Data, "lang_"),
		})
	}
}

// Send implements relay.Transport.
func (c *TelegramChannel) Send(ctx context.Context, req relay.SendRequest) (string, error) {
	chatID, err := strconv.ParseInt(req.ChatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", req.ChatID, err)
	}
	dest := telego.ChatID{ID: chatID}
	markup := inlineKeyboard(req.Keyboard)
	var replyParams *telego.ReplyParameters
	if req.ReplyTo != "" {
		replyID, err := strconv.Atoi(req.ReplyTo)
		if err != nil {
			return "", fmt.Errorf("invalid reply target %q: %w", req.ReplyTo, err)
		}
		replyParams = &telego.ReplyParameters{MessageID: replyID}
	}

	var sent *telego.Message
	if req.Media != nil {
		sent, err = c.sendMedia(ctx, dest, req, replyParams, markup)
	} else {
		params := &telego.SendMessageParams{
			ChatID:          dest,
			Text:            req.Text,
			MessageThreadID: req.ThreadID,
			ReplyParameters: replyParams,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		sent, err = c.bot.SendMessage(ctx, params)
	}
	if err != nil {
		return "", fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (c *TelegramChannel) sendMedia(
	ctx context.Context,
	dest telego.ChatID,
	req relay.SendRequest,
	replyParams *telego.ReplyParameters,
	markup *telego.InlineKeyboardMarkup,
) (*telego.Message, error) {
	file := telego.InputFile{FileID: req.Media.FileID}
	caption := req.Media.Caption

	switch req.Media.Kind {
	case bus.MediaPhoto:
		params := &telego.SendPhotoParams{
			ChatID: dest, Photo: file, Caption: caption,
			MessageThreadID: req.ThreadID, ReplyParameters: replyParams,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		return c.bot.SendPhoto(ctx, params)
	case bus.MediaDocument:
		params := &telego.SendDocumentParams{
			ChatID: dest, Document: file, Caption: caption,
			MessageThreadID: req.ThreadID, ReplyParameters: replyParams,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		return c.bot.SendDocument(ctx, params)
	case bus.MediaVideo:
		params := &telego.SendVideoParams{
			ChatID: dest, Video: file, Caption: caption,
			MessageThreadID: req.ThreadID, ReplyParameters: replyParams,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		return c.bot.SendVideo(ctx, params)
	case bus.MediaAudio:
		params := &telego.SendAudioParams{
			ChatID: dest, Audio: file, Caption: caption,
			MessageThreadID: req.ThreadID, ReplyParameters: replyParams,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		return c.bot.SendAudio(ctx, params)
	case bus.MediaVoice:
		params := &telego.SendVoiceParams{
			ChatID: dest, Voice: file, Caption: caption,
			MessageThreadID: req.ThreadID, ReplyParameters: replyParams,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		return c.bot.SendVoice(ctx, params)
	}
	return nil, fmt.Errorf("unsupported media kind %q", req.Media.Kind)
}

// Edit implements relay.Transport.
func (c *TelegramChannel) Edit(ctx context.Context, chatID, messageID, text string, keyboard [][]relay.Button) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", messageID, err)
	}

	params := &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: id},
		MessageID: msgID,
		Text:      text,
	}
	if markup := inlineKeyboard(keyboard); markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.bot.EditMessageText(ctx, params); err != nil {
		return fmt.Errorf("telegram edit %s: %w", messageID, err)
	}
	return nil
}

// mentioned reports whether the bot is @-mentioned in the message text or
// caption.
func (c *TelegramChannel) mentioned(msg *telego.Message) bool {
	if c.botUsername == "" {
		return false
	}
	needle := "@" + c.botUsername
	for _, entity := range msg.Entities {
		if entity.Type == telego.EntityTypeMention && strings.Contains(msg.Text, needle) {
			return true
		}
	}
	return strings.Contains(msg.Caption, needle)
}

func stripMention(text, botUsername string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "@"+botUsername, ""))
}

func extractMedia(msg *telego.Message) *bus.Media {
	switch {
	case len(msg.Photo) > 0:
		// Telegram sends a size ladder; the last entry is the largest.
		return &bus.Media{Kind: bus.MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID, Caption: msg.Caption}
	case msg.Document != nil:
		return &bus.Media{Kind: bus.MediaDocument, FileID: msg.Document.FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return &bus.Media{Kind: bus.MediaVideo, FileID: msg.Video.FileID, Caption: msg.Caption}
	case msg.Audio != nil:
		return &bus.Media{Kind: bus.MediaAudio, FileID: msg.Audio.FileID, Caption: msg.Caption}
	case msg.Voice != nil:
		return &bus.Media{Kind: bus.MediaVoice, FileID: msg.Voice.FileID, Caption: msg.Caption}
	}
	return nil
}

func inlineKeyboard(rows [][]relay.Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telego.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		keyboard = append(keyboard, buttons)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

func busUser(u telego.User) bus.User {
	return bus.User{
		ID:        strconv.FormatInt(u.ID, 10),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func compoundSenderID(u *telego.User) string {
	return strconv.FormatInt(u.ID, 10) + "|" + u.Username
}

func command(text string) string {
	cmd := strings.Fields(text)[0]
	if idx := strings.Index(cmd, "@"); idx > 0 {
		cmd = cmd[:idx]
	}
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
