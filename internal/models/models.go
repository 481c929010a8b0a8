package models

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates absence of a record.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates business rule violation.
	ErrValidation = errors.New("validation error")
	// ErrSessionIntegrity indicates a session that lost fields a later step depends on.
	ErrSessionIntegrity = errors.New("session integrity lost")
	// ErrSheetTransport indicates a failed read or write against the workbook.
	ErrSheetTransport = errors.New("sheet transport error")
)

// SyncState enumerates the steps of the poll-to-sheet update workflow.
type SyncState string

const (
	StateIdle                   SyncState = "idle"
	StateAwaitingPollOption     SyncState = "awaiting_poll_option_selection"
	StateAwaitingColumnChoice   SyncState = "awaiting_column_choice"
	StateAwaitingDateName       SyncState = "awaiting_date_name"
	StateAwaitingPlayerCount    SyncState = "awaiting_player_count"
	StateAwaitingOverrideChoice SyncState = "awaiting_override_choice"
)

// ColumnMatch is a candidate sheet column whose header matched the poll date.
type ColumnMatch struct {
	Column string `json:"column"`
	Date   string `json:"date"`
}

// ExistingValue records a nickname whose destination cell already holds a value.
type ExistingValue struct {
	Nickname string `json:"nickname"`
	Value    string `json:"value"`
}

// WriteEntry is one attendance mark to place: nickname plus its sheet row.
type WriteEntry struct {
	Nickname string
	Row      int
}

// SyncSession is the per-user workflow record. Fields belonging to earlier
// steps are cleared once the session moves past the step that produced them.
type SyncSession struct {
	State          SyncState       `json:"state"`
	TargetColumn   string          `json:"target_column,omitempty"`
	IsNewColumn    bool            `json:"is_new_column,omitempty"`
	ColumnMatches  []ColumnMatch   `json:"column_matches,omitempty"`
	PlayerCount    *int            `json:"player_count,omitempty"`
	NicknameRows   map[string]int  `json:"nickname_rows,omitempty"`
	ExistingValues []ExistingValue `json:"existing_values,omitempty"`
	Usernames      []string        `json:"usernames,omitempty"`
	PollID         string          `json:"poll_id,omitempty"`
	PollQuestion   string          `json:"poll_question,omitempty"`
}

func NewSyncSession() *SyncSession {
	return &SyncSession{State: StateIdle}
}

// Reset returns the session to its initial empty form.
func (s *SyncSession) Reset() {
	*s = SyncSession{State: StateIdle}
}

// Poll is an attendance poll observed in a chat.
type Poll struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

// PollVote is one user's current answer to a poll. A later answer from the
// same user replaces the earlier one.
type PollVote struct {
	PollID    string
	UserID    int64
	Username  string
	OptionIDs []int
}

// PollData is the read-only shape the workflow consumes: question, ordered
// options and per-option voter nicknames in vote-arrival order. An absent
// index means zero votes.
type PollData struct {
	Question string
	Options  []string
	Votes    map[int][]string
}

// UserSession is the persistence envelope for a SyncSession.
type UserSession struct {
	UserID    int64
	State     []byte
	UpdatedAt time.Time
}
