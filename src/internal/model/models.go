package model

import (
	"encoding/json"
	"time"
)

// RawEvent is the wire shape of one entry from the GitHub repository
// events API. Payload stays opaque here; the classifier decodes it per
// event type.
type RawEvent struct {
	Type  string `json:"type"`
	Actor struct {
		Login string `json:"login"`
	} `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NormalizedEvent is the projection of a RawEvent that survives the
// reporting window filter.
type NormalizedEvent struct {
	Type      string
	Actor     string
	Payload   json.RawMessage
	CreatedAt time.Time
}

type Action string

const (
	ActionPRCreated      Action = "PR created"
	ActionPRClosed       Action = "PR closed"
	ActionPRMerged       Action = "PR merged"
	ActionPRCommented    Action = "PR commented"
	ActionIssueCommented Action = "Issue commented"
	ActionPRReviewed     Action = "PR reviewed"
)

// ReportEntry is one line of the rendered digest.
type ReportEntry struct {
	User      string
	Action    Action
	Message   string
	CreatedAt time.Time
}

// Member maps a GitHub login to the display name used in reports.
type Member struct {
	Login       string `yaml:"login" json:"login"`
	DisplayName string `yaml:"display_name" json:"display_name"`
}

// Roster is an ordered member list; declaration order is render order.
type Roster []Member

func (r Roster) Contains(login string) bool {
	for _, m := range r {
		if m.Login == login {
			return true
		}
	}
	return false
}

func (r Roster) DisplayName(login string) string {
	for _, m := range r {
		if m.Login == login {
			return m.DisplayName
		}
	}
	return login
}

// Team binds one repository to the roster tracked for it.
type Team struct {
	Name    string `yaml:"name" json:"name"`
	Repo    string `yaml:"repo" json:"repo"`
	Members Roster `yaml:"members" json:"members"`
}

// Message is an inbound chat message.
type Message struct {
	Channel string
	Text    string
}

type AppError string

func (e AppError) Error() string { return string(e) }

const (
	ErrChannelNotFound = AppError("CHANNEL_NOT_FOUND")
	ErrAlreadyRunning  = AppError("ALREADY_RUNNING")
	ErrNotRunning      = AppError("NOT_RUNNING")
)
