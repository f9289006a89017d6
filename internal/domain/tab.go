package domain

import "fmt"

// DealTab selects a slice of a user's deals for listing.
type DealTab string

const (
	TabNew      DealTab = "new"
	TabActive   DealTab = "active"
	TabIncoming DealTab = "in"
	TabOutgoing DealTab = "out"
	TabComplete DealTab = "complete"
	TabCanceled DealTab = "canceled"
	TabAll      DealTab = "all"
)

func ParseTab(s string) (DealTab, error) {
	switch t := DealTab(s); t {
	case TabNew, TabActive, TabIncoming, TabOutgoing, TabComplete, TabCanceled, TabAll:
		return t, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTab, s)
}

var (
	ActiveStatuses   = []DealStatus{DealNew, DealViewed, DealAccepted, DealAcceptedExternal}
	CompleteStatuses = []DealStatus{DealComplete, DealCompleteOutside}
	CanceledStatuses = []DealStatus{DealCanceledByBuyer, DealCanceledBySeller}
)
