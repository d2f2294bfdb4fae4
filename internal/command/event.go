package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Dialect identifies which webhook payload shape an event came from.
type Dialect string

const (
	// DialectText is the primary contract: a free-text message with
	// sender and owner phone numbers.
	DialectText Dialect = "text"
	// DialectButton is the legacy contract: a structured button click
	// carrying an action_postId composite id.
	DialectButton Dialect = "button"
)

// ErrEmptyEvent marks a payload with nothing actionable (no text or
// sender). The webhook acknowledges it without running any command.
var ErrEmptyEvent = errors.New("payload carries no actionable event")

// Event is the single normalized shape every webhook dialect resolves
// into before any business logic runs.
type Event struct {
	Dialect     Dialect
	SenderPhone string // text dialect: sender identity, @-suffix stripped
	OwnerPhone  string // text dialect: number that received the message
	Text        string // text dialect: lower-cased trimmed command text
	Action      string // button dialect: approve | regenerate
	PostID      string // button dialect: addressed post
}

// rawPayload covers both wire shapes; structural probes on the decoded
// fields decide the dialect.
type rawPayload struct {
	ButtonID  string `json:"button_id"`
	ButtonID2 string `json:"buttonId"`
	Message   struct {
		Text    string `json:"text"`
		Content string `json:"content"`
		Sender  string `json:"sender"`
	} `json:"message"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
	From   string `json:"from"`
	Owner  string `json:"owner"`
}

// Normalize resolves a webhook body into one Event. Presence of a
// button id selects the button dialect; everything else is treated as
// the text dialect.
func Normalize(body []byte) (Event, error) {
	var raw rawPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("decode payload: %w", err)
	}

	buttonID := raw.ButtonID
	if buttonID == "" {
		buttonID = raw.ButtonID2
	}
	if buttonID != "" {
		action, postID, found := strings.Cut(buttonID, "_")
		if !found || postID == "" {
			return Event{}, fmt.Errorf("invalid button id %q", buttonID)
		}
		return Event{Dialect: DialectButton, Action: action, PostID: postID}, nil
	}

	text := raw.Message.Text
	if text == "" {
		text = raw.Message.Content
	}
	if text == "" {
		text = raw.Text
	}
	sender := raw.Message.Sender
	if sender == "" {
		sender = raw.Sender
	}
	if sender == "" {
		sender = raw.From
	}
	senderPhone, _, _ := strings.Cut(sender, "@")

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || senderPhone == "" {
		return Event{}, ErrEmptyEvent
	}
	return Event{
		Dialect:     DialectText,
		SenderPhone: senderPhone,
		OwnerPhone:  strings.TrimSpace(raw.Owner),
		Text:        text,
	}, nil
}
