package notifier

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

type telegramCommand struct {
	Command string          `json:"command"`
	Payload telegramMessage `json:"payload"`
}

type telegramMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Telegram asks the chat bridge listening on topic to send a message to chatID.
type Telegram struct {
	pub    Publisher
	topic  string
	chatID int64
}

func NewTelegram(pub Publisher, topic string, chatID int64) *Telegram {
	return &Telegram{pub: pub, topic: topic, chatID: chatID}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(_ context.Context, evt Event) error {
	body, err := json.Marshal(telegramCommand{
		Command: "sendMessage",
		Payload: telegramMessage{ChatID: t.chatID, Text: ChatText(evt)},
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode telegram command")
	}
	return t.pub.Publish(t.topic, body)
}

// Speaker publishes plain text for the text-to-speech bridge on topic.
type Speaker struct {
	pub   Publisher
	topic string
}

func NewSpeaker(pub Publisher, topic string) *Speaker {
	return &Speaker{pub: pub, topic: topic}
}

func (s *Speaker) Name() string { return "speaker" }

func (s *Speaker) Notify(_ context.Context, evt Event) error {
	return s.pub.Publish(s.topic, []byte(SpeechText(evt)))
}
