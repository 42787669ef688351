package relisting

import (
	"weekrent/internal/domain/properties"
	"weekrent/internal/domain/shared/daterange"
)

type Kind string

const (
	KindMerged        Kind = "merged"
	KindRelisted      Kind = "relisted"
	KindLimitExceeded Kind = "limit_exceeded"
	KindShortTerm     Kind = "short_term"
)

// Tab is the owner listing tab the property lands on.
type Tab string

const (
	TabActive  Tab = "active"
	TabExpired Tab = "expired"
)

func (k Kind) Tab() Tab {
	switch k {
	case KindMerged, KindRelisted:
		return TabActive
	default:
		return TabExpired
	}
}

type Outcome struct {
	Kind       Kind
	PropertyID properties.PropertyID
	Tab        Tab
}

// Mutation is the property state the decision leads to.
type Mutation struct {
	Status         properties.Status
	Advertisements []daterange.DateRange
	Reason         string
}
