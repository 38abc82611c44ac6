package channels

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/tinydesk/pkg/bus"
	"github.com/tinyland-inc/tinydesk/pkg/relay"
)

func TestStripMention(t *testing.T) {
	assert.Equal(t, "help me", stripMention("@deskbot help me", "deskbot"))
	assert.Equal(t, "help me", stripMention("help me @deskbot", "deskbot"))
	assert.Equal(t, "", stripMention("@deskbot", "deskbot"))
}

func TestCommandStripsBotSuffix(t *testing.T) {
	assert.Equal(t, "/start", command("/start"))
	assert.Equal(t, "/start", command("/start@deskbot"))
	assert.Equal(t, "/start", command("/start some args"))
}

func TestExtractMediaPicksLargestPhoto(t *testing.T) {
	msg := &telego.Message{
		Photo: []telego.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
		Caption: "broken screen",
	}

	media := extractMedia(msg)
	require.NotNil(t, media)
	assert.Equal(t, bus.MediaPhoto, media.Kind)
	assert.Equal(t, "large", media.FileID)
	assert.Equal(t, "broken screen", media.Caption)
}

func TestExtractMediaKinds(t *testing.T) {
	assert.Nil(t, extractMedia(&telego.Message{Text: "plain"}))

	doc := extractMedia(&telego.Message{Document: &telego.Document{FileID: "d1"}})
	require.NotNil(t, doc)
	assert.Equal(t, bus.MediaDocument, doc.Kind)

	voice := extractMedia(&telego.Message{Voice: &telego.Voice{FileID: "v1"}})
	require.NotNil(t, voice)
	assert.Equal(t, bus.MediaVoice, voice.Kind)
}

func TestBusUser(t *testing.T) {
	u := busUser(telego.User{ID: 42, Username: "alice", FirstName: "Alice"})

	assert.Equal(t, "42", u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice", u.Handle())
}

func TestCompoundSenderID(t *testing.T) {
	assert.Equal(t, "42|alice", compoundSenderID(&telego.User{ID: 42, Username: "alice"}))
	assert.Equal(t, "42|", compoundSenderID(&telego.User{ID: 42}))
}

func TestInlineKeyboard(t *testing.T) {
	assert.Nil(t, inlineKeyboard(nil))

	markup := inlineKeyboard([][]relay.Button{
		{{Text: "Approve", Data: "approve"}, {Text: "Discard", Data: "discard"}},
		{{Text: "English", Data: "lang_en"}},
	})
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "approve", markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "Discard", markup.InlineKeyboard[0][1].Text)
	assert.Equal(t, "lang_en", markup.InlineKeyboard[1][0].CallbackData)
}
