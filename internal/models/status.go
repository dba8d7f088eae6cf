package models

import (
	"strconv"
	"strings"
)

// StatusID mirrors the status reference table.
type StatusID int16

const (
	StatusSubmitted        StatusID = 1
	StatusPending          StatusID = 2
	StatusInProgress       StatusID = 3
	StatusResolved         StatusID = 4
	StatusOnHold           StatusID = 5
	StatusClosedIncomplete StatusID = 6

	// StatusClosedComplete is persisted as Resolved.
	StatusClosedComplete = StatusResolved
)

// ClosedStatusNames lists the status names excluded from open queues. The
// comparison is exact and case-sensitive; "Closed Complete" and "Closed" are
// kept for rows migrated from older deployments.
var ClosedStatusNames = []string{"Resolved", "Closed Complete", "Closed Incomplete", "Closed"}

var statusNames = map[StatusID]string{
	StatusSubmitted:        "Submitted",
	StatusPending:          "Pending",
	StatusInProgress:       "In Progress",
	StatusResolved:         "Resolved",
	StatusOnHold:           "On Hold",
	StatusClosedIncomplete: "Closed Incomplete",
}

var transitions = map[StatusID][]StatusID{
	StatusSubmitted:  {StatusPending},
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusOnHold, StatusClosedComplete, StatusClosedIncomplete},
	StatusOnHold:     {StatusInProgress, StatusClosedComplete, StatusClosedIncomplete},
}

// Name returns the display name stored in the status table.
func (s StatusID) Name() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s StatusID) String() string { return s.Name() }

// Valid reports whether s is a known status.
func (s StatusID) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether no further transitions are allowed.
func (s StatusID) Terminal() bool {
	return s == StatusResolved || s == StatusClosedIncomplete
}

// Next lists the statuses reachable from s.
func (s StatusID) Next() []StatusID {
	next := transitions[s]
	out := make([]StatusID, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to StatusID) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ParseStatus accepts a numeric id, a display name or a compact machine name
// such as "InProgress" or "closed_complete".
func ParseStatus(raw string) (StatusID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		s := StatusID(n)
		return s, s.Valid()
	}
	key := compact(raw)
	if key == "closedcomplete" {
		return StatusClosedComplete, true
	}
	for id, name := range statusNames {
		if compact(name) == key {
			return id, true
		}
	}
	return 0, false
}

func compact(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
