package main

import "time"

// Roles for chat participants. Counterpart is whichever non-agent role
// the simulation runs with (customer or observing manager).
const (
	RoleAgent       = "Agent"
	RoleCounterpart = "Counterpart"
)

// Room statuses. Transitions only ever move forward:
// Active -> Expired -> Offline. A room never reverts automatically.
const (
	StatusActive  = "Active"
	StatusExpired = "Expired"
	StatusOffline = "Offline"
)

// WaitingCounterpart is the placeholder stored in a room's counterpart
// slot until someone joins. The turn timer does not run while it is set.
const WaitingCounterpart = "Waiting..."

type Message struct {
	ID        int64
	RoomID    int64
	Sender    string
	Role      string // RoleAgent or RoleCounterpart
	Text      string
	Timestamp time.Time
}

type Room struct {
	ID             int64
	Host           string
	Counterpart    string // WaitingCounterpart until joined
	Status         string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// HasCounterpart reports whether a counterpart has joined the room.
func (r Room) HasCounterpart() bool {
	return r.Counterpart != "" && r.Counterpart != WaitingCounterpart
}

// Rule selects the pass/fail logic for a criterion. Resolved once at
// scorecard load time from the criterion id, never re-parsed per grade.
type Rule int

const (
	RuleGeneric Rule = iota // at least one keyword-group hit
	RuleGreeting
	RuleDiscovery // two question marks OR two distinct keyword hits
	RuleEmpathy
	RuleWarranty
	RuleProfClosing
	RuleHoldAlwaysPass
	RuleDefault // no keyword group: subjective, passes automatically
)

type Criterion struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	KeywordGroup string  `json:"keywords"`
	Category     string  `json:"category,omitempty"`
	Rule         Rule    `json:"-"`
}

// Verdict values recorded in a grade breakdown.
const (
	VerdictPass = "PASS"
	VerdictFail = "FAIL"
)

// GradeResult is recomputed fresh on every grading request. Breakdown is
// keyed by criterion id; display names are attached at render time.
type GradeResult struct {
	Breakdown       map[string]string
	CriticalFailure string // empty when no critical violation fired
	ScorePercent    int
	Tips            []string
}

// TurnState is what the status sweep returns for display: the room's
// (possibly updated) status, seconds since last activity, and whether
// the agent is the one expected to act.
type TurnState struct {
	Status         string
	ElapsedSeconds int64
	AgentTurn      bool
}

// AgentTurn derives the turn holder from the last message. With no
// messages yet, or after a counterpart message, it is the agent's turn.
func AgentTurn(lastRole string) bool {
	return lastRole != RoleAgent
}
