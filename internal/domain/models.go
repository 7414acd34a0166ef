package domain

import (
	"errors"
	"time"
)

// TargetMode says how the NICK/URL column of a worklist row is interpreted
type TargetMode string

const (
	ModeNick    TargetMode = "NICK"
	ModeURL     TargetMode = "URL"
	ModeInvalid TargetMode = "INVALID"
)

// Target represents one pending worklist row
type Target struct {
	Mode            TargetMode
	DisplayName     string
	Nickname        string
	Destination     string
	City            string
	Posts           string
	Followers       string
	MessageTemplate string
	Row             int
}

type AccountStatus string

const (
	StatusVerified   AccountStatus = "Verified"
	StatusUnverified AccountStatus = "Unverified"
	StatusSuspended  AccountStatus = "Suspended"
	StatusUnknown    AccountStatus = "Unknown"
)

// ProfileSnapshot is what one profile page yielded. Missing fields stay empty.
type ProfileSnapshot struct {
	Nickname     string        `json:"nickname"`
	ProfileURL   string        `json:"profile_url"`
	Status       AccountStatus `json:"status"`
	City         string        `json:"city,omitempty"`
	Gender       string        `json:"gender,omitempty"`
	Married      string        `json:"married,omitempty"`
	Age          string        `json:"age,omitempty"`
	Joined       string        `json:"joined,omitempty"`
	Followers    string        `json:"followers,omitempty"`
	Posts        string        `json:"posts"`
	AvatarURL    string        `json:"avatar_url,omitempty"`
	Friend       string        `json:"friend,omitempty"`
	Intro        string        `json:"intro,omitempty"`
	LastPostURL  string        `json:"last_post_url,omitempty"`
	LastPostTime string        `json:"last_post_time,omitempty"`
	CapturedAt   time.Time     `json:"captured_at"`
}

// ThreadHandle points at a post whose reply trigger was present on the listing
type ThreadHandle struct {
	URL   string
	Index int
}

// Row statuses written to the STATUS column
const (
	RowPending = "pending"
	RowDone    = "Done"
	RowFailed  = "Failed"
	RowSkipped = "Skipped"
	RowError   = "Error"
)

// TargetResult is the terminal record of one target, journaled as NDJSON
type TargetResult struct {
	RunID       string      `json:"run_id"`
	Row         int         `json:"row"`
	Mode        TargetMode  `json:"mode"`
	Target      string      `json:"target"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Notes       string      `json:"notes"`
	ResultURL   string      `json:"result_url,omitempty"`
	Message     string      `json:"message,omitempty"`
	Outcome     OutcomeKind `json:"outcome,omitempty"`
	ProcessedAt time.Time   `json:"processed_at"`
}

// Success reports whether the row counts toward the run's success total
func (r TargetResult) Success() bool {
	return r.Status == RowDone
}

// RunSummary is handed to post-run hooks once every target is terminal
type RunSummary struct {
	RunID       string
	Mode        string
	StartedAt   time.Time
	FinishedAt  time.Time
	Pending     int
	Results     []TargetResult
	Success     int
	Failed      int
	APICalls    int64
	Interrupted bool
}

// Add records a result and keeps the counters in step
func (s *RunSummary) Add(r TargetResult) {
	s.Results = append(s.Results, r)
	if r.Success() {
		s.Success++
	} else {
		s.Failed++
	}
}

// Processed is the number of targets that reached a terminal status
func (s RunSummary) Processed() int {
	return len(s.Results)
}

var (
	ErrElementNotFound = errors.New("element not found")
	ErrTimeout         = errors.New("timed out")
	ErrUnsupported     = errors.New("not supported by this session")
)
