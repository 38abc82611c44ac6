// Package locale holds the display-string tables for user-facing bot
// messages. The relay core stores only language tags; text lookup happens
// at the channel edge.
package locale

// String keys used by the gateway and the Telegram channel.
const (
	KeyWelcome          = "welcome"
	KeyChooseLanguage   = "choose_language"
	KeyLanguageSelected = "language_selected"
	KeyMessageForwarded = "message_forwarded"
	KeyReplyReceived    = "reply_received"
	KeyErrorOccurred    = "error_occurred"
	KeyGeneratedReply   = "generated_reply"
	KeyApprove          = "approve"
	KeyDiscard          = "discard"
	KeyReplyApproved    = "reply_approved"
	KeyReplyDiscarded   = "reply_discarded"
)

// Table maps a language tag to its string table, falling back to a
// default tag for unknown languages or missing keys.
type Table struct {
	defaultTag string
	strings    map[string]map[string]string
	names      map[string]string
}

// NewTable returns the built-in table with the given default language tag.
func NewTable(defaultTag string) *Table {
	return &Table{
		defaultTag: defaultTag,
		strings:    builtinStrings,
		names:      builtinNames,
	}
}

// Get returns the display text for key in the given language, falling back
// to the default language when either the tag or the key is unknown.
func (t *Table) Get(tag, key string) string {
	if s, ok := t.strings[tag][key]; ok {
		return s
	}
	return t.strings[t.defaultTag][key]
}

// Name returns the self-describing display name of a language tag
// ("Русский" for "ru"). Unknown tags echo back unchanged.
func (t *Table) Name(tag string) string {
	if n, ok := t.names[tag]; ok {
		return n
	}
	return tag
}

// DefaultTag returns the configured fallback language tag.
func (t *Table) DefaultTag() string {
	return t.defaultTag
}

var builtinNames = map[string]string{
	"en": "English",
	"ru": "Русский",
	"ka": "ქართული",
}

var builtinStrings = map[string]map[string]string{
	"en": {
		KeyWelcome:          "Welcome! Please choose your language:",
		KeyChooseLanguage:   "Please choose your language:",
		KeyLanguageSelected: "Language set to English",
		KeyMessageForwarded: "Your message has been forwarded to the support team.",
		KeyReplyReceived:    "You received a reply:",
		KeyErrorOccurred:    "An error occurred. Please try again.",
		KeyGeneratedReply:   "Generated reply:",
		KeyApprove:          "Approve",
		KeyDiscard:          "Discard",
		KeyReplyApproved:    "Reply approved and sent to user.",
		KeyReplyDiscarded:   "Reply discarded.",
	},
	"ru": {
		KeyWelcome:          "Добро пожаловать! Пожалуйста, выберите ваш язык:",
		KeyChooseLanguage:   "Пожалуйста, выберите ваш язык:",
		KeyLanguageSelected: "Язык установлен на русский",
		KeyMessageForwarded: "Ваше сообщение было отправлено в службу поддержки.",
		KeyReplyReceived:    "Вы получили ответ:",
		KeyErrorOccurred:    "Произошла ошибка. Пожалуйста, попробуйте снова.",
		KeyGeneratedReply:   "Сгенерированный ответ:",
		KeyApprove:          "Одобрить",
		KeyDiscard:          "Отклонить",
		KeyReplyApproved:    "Ответ одобрен и отправлен пользователю.",
		KeyReplyDiscarded:   "Ответ отклонен.",
	},
	"ka": {
		KeyWelcome:          "მოგესალმებათ! გთხოვთ აირჩიოთ თქვენი ენა:",
		KeyChooseLanguage:   "გთხოვთ აირჩიოთ თქვენი ენა:",
		KeyLanguageSelected: "ენა დაყენებულია ქართულად",
		KeyMessageForwarded: "თქვენი შეტყობინება გადაეცა მხარდაჭერის გუნდს.",
		KeyReplyReceived:    "თქვენ მიიღეთ პასუხი:",
		KeyErrorOccurred:    "დაფიქსირდა შეცდომა. გთხოვთ სცადოთ თავიდან.",
		KeyGeneratedReply:   "გენერირებული პასუხი:",
		KeyApprove:          "დამტკიცება",
		KeyDiscard:          "უარყოფა",
		KeyReplyApproved:    "პასუხი დამტკიცებული და გაგზავნილია მომხმარებელთან.",
		KeyReplyDiscarded:   "პასუხი უარყოფილია.",
	},
}
