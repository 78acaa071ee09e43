package youtube

import (
	"regexp"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	hostRe    = regexp.MustCompile(`(?:youtube\.com|youtu\.be|youtube\.com/shorts)`)
	videoIDRe = regexp.MustCompile(`(?:v=|/|shorts/)([0-9A-Za-z_-]{11})`)
	bareIDRe  = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
)

// IsYouTubeLink reports whether s contains one of the accepted host shapes.
func IsYouTubeLink(s string) bool {
	return hostRe.MatchString(s)
}

// ExtractVideoID pulls the 11-character identifier out of any of the accepted
// URL shapes (watch?v=, short path, /shorts/, youtu.be/). Empty when none.
func ExtractVideoID(link string) string {
	m := videoIDRe.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractURL returns the first URL attached to the message or, failing that,
// the message it replies to. Plain URL entities on the text or caption win
// over text_link caption entities, matching the order users expect when they
// reply to a forwarded track.
func ExtractURL(message *tgbotapi.Message) string {
	if message == nil {
		return ""
	}
	messages := []*tgbotapi.Message{message}
	if message.ReplyToMessage != nil {
		messages = append(messages, message.ReplyToMessage)
	}
	for _, msg := range messages {
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		for _, entity := range msg.Entities {
			if entity.IsURL() {
				return sliceEntity(text, entity.Offset, entity.Length)
			}
		}
		for _, entity := range msg.CaptionEntities {
			if entity.IsTextLink() {
				return entity.URL
			}
		}
	}
	return ""
}

// Classify turns a chat message into a TrackQuery. It returns nil only when
// the message carries no text and no caption at all.
func Classify(message *tgbotapi.Message) *TrackQuery {
	if message == nil {
		return nil
	}
	if link := ExtractURL(message); link != "" {
		return &TrackQuery{Raw: link, Kind: DirectLink, Value: link}
	}
	text := message.Text
	if text == "" {
		text = message.Caption
	}
	if text == "" {
		return nil
	}
	return ClassifyText(text)
}

// ClassifyText classifies bare text with no entity annotations.
func ClassifyText(text string) *TrackQuery {
	if IsYouTubeLink(text) {
		return &TrackQuery{Raw: text, Kind: DirectLink, Value: text}
	}
	return &TrackQuery{Raw: text, Kind: FreeText, Value: text}
}

// FromVideoID builds a query for a known identifier. It returns nil when the
// value does not look like a video id, so callers cannot smuggle arbitrary
// strings past the resolver's id path.
func FromVideoID(id string) *TrackQuery {
	if !bareIDRe.MatchString(id) {
		return nil
	}
	return &TrackQuery{Raw: id, Kind: VideoID, Value: id}
}

// sliceEntity cuts an entity span out of message text. Entity offsets count
// UTF-16 code units, not bytes or runes.
func sliceEntity(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset < 0 || offset >= len(units) {
		return ""
	}
	end := offset + length
	if end > len(units) {
		end = len(units)
	}
	return string(utf16.Decode(units[offset:end]))
}
