package models

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Status string

const (
	StatusFinal   Status = "final"
	StatusPending Status = "pending" // bot entries only, while the request is in flight
	StatusError   Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusFinal || s == StatusError
}

type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Liked     bool      `json:"liked"`
}

// Clock formats the timestamp the way chat bubbles show it.
func (m Message) Clock() string {
	return m.Timestamp.Format("15:04")
}

type Conversation struct {
	Messages []Message `json:"messages"`
	Busy     bool      `json:"busy"`
}
