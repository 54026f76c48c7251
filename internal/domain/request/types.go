package request

// Status is the allocation lifecycle state of a reservation request.
//
// pending is the only entry state. rejected and returned are terminal;
// returned_for_amendment re-enters pending through resubmission.
type Status string

const (
	StatusPending              Status = "pending"
	StatusApproved             Status = "approved"
	StatusRejected             Status = "rejected"
	StatusReturnedForAmendment Status = "returned_for_amendment"
	StatusAllocated            Status = "allocated"
	StatusInUse                Status = "in_use"
	StatusReturned             Status = "returned"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusReturnedForAmendment,
		StatusAllocated, StatusInUse, StatusReturned:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusReturned
}

// IsHolding reports whether the request currently has physical custody of its
// resource. Only holding requests block new allocations.
func (s Status) IsHolding() bool {
	return s == StatusAllocated || s == StatusInUse
}

// IsActive reports whether the request holds or imminently holds a claim on
// its resource. Active requests are what creation-time conflict flags are
// computed against.
func (s Status) IsActive() bool {
	return s == StatusApproved || s == StatusAllocated || s == StatusInUse
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) String() string {
	return string(p)
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// HoldingStatuses and ActiveStatuses are the status sets the conflict queries
// filter on, exported so the read side uses the same definition as the domain.
var (
	HoldingStatuses = []Status{StatusAllocated, StatusInUse}
	ActiveStatuses  = []Status{StatusApproved, StatusAllocated, StatusInUse}
)
