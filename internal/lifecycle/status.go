// Package lifecycle holds the work-order status machine and the derived views built on it.
// The same rules are used by the API when persisting transitions and by clients when deciding
// which controls to offer and how to bucket and order lists.
package lifecycle

import (
	"fmt"
	"sort"
)

// Status is a work-order (project) lifecycle status
type Status string

const (
	StatusPending         Status = "pending"
	StatusAssigned        Status = "assigned"
	StatusInProgress      Status = "in-progress"
	StatusPaused          Status = "paused"
	StatusPendingApproval Status = "pending-approval"
	StatusCompleted       Status = "completed"
	StatusTransferring    Status = "transferring"
	StatusTransferred     Status = "transferred"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []Status{
	StatusPending,
	StatusAssigned,
	StatusInProgress,
	StatusPaused,
	StatusPendingApproval,
	StatusCompleted,
	StatusTransferring,
	StatusTransferred,
}

// EntityType names the screens' two names for the same entity
type EntityType string

const (
	EntityProject   EntityType = "project"
	EntityWorkOrder EntityType = "workOrder"
)

// transitions is the complete set of legal moves. Anything not listed is rejected,
// including a move to the same status.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusAssigned: true,
	},
	StatusAssigned: {
		StatusInProgress:      true,
		StatusPendingApproval: true,
		StatusTransferring:    true,
	},
	StatusInProgress: {
		StatusAssigned:        true,
		StatusPaused:          true,
		StatusPendingApproval: true,
		StatusTransferring:    true,
	},
	StatusPaused: {
		StatusInProgress:      true,
		StatusPendingApproval: true,
		StatusTransferring:    true,
	},
	StatusPendingApproval: {
		StatusCompleted: true,
	},
	StatusTransferring: {
		StatusTransferred: true,
	},
	// transferred re-enters the queue for a new technician
	StatusTransferred: {
		StatusPending: true,
	},
	StatusCompleted: {},
}

// IsValid reports whether s is part of the vocabulary
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// ParseStatus converts a raw string into a Status
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(s Status) bool {
	return s == StatusCompleted
}

// IsValidTransition reports whether an entity of the given type may move from current to next
func IsValidTransition(current, next Status, entity EntityType) bool {
	if entity != EntityProject && entity != EntityWorkOrder {
		return false
	}
	allowed, ok := transitions[current]
	if !ok {
		return false
	}
	return allowed[next]
}

// AllowedTransitions returns the statuses reachable from current in lifecycle order
func AllowedTransitions(current Status) []Status {
	allowed := transitions[current]
	result := make([]Status, 0, len(allowed))
	for next := range allowed {
		result = append(result, next)
	}
	sort.Slice(result, func(i, j int) bool {
		return statusOrder(result[i]) < statusOrder(result[j])
	})
	return result
}

func statusOrder(s Status) int {
	for i, candidate := range AllStatuses {
		if candidate == s {
			return i
		}
	}
	return len(AllStatuses)
}
