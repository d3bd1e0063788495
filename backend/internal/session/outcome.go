package session

import (
	"fmt"

	"envsensor/backend/internal/readings"
)

// Kind classifies what happened to one advertisement.
type Kind int

const (
	Stored Kind = iota
	Duplicate
	Discovery
	Rejected
	Malformed
)

var kindNames = [...]string{
	Stored:    "stored",
	Duplicate: "duplicate",
	Discovery: "discovery",
	Rejected:  "rejected",
	Malformed: "malformed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// Outcome is the result of Session.Handle. None of the kinds is a failure of the caller.
type Outcome struct {
	Kind Kind
	// Reason holds the rejection or decode error for Rejected and Malformed.
	Reason error
	// Reading is set for Stored.
	Reading *readings.Reading
	// Vendor is the company identifier, when the advertisement carried one.
	Vendor    uint16
	HasVendor bool
}

// Stats counts outcomes since the session was created or reset.
type Stats struct {
	Stored        uint64 `json:"stored"`
	Duplicate     uint64 `json:"duplicate"`
	Discovery     uint64 `json:"discovery"`
	Rejected      uint64 `json:"rejected"`
	Malformed     uint64 `json:"malformed"`
	DedupKeys     int    `json:"dedupKeys"`
	DedupCapacity int    `json:"dedupCapacity"`
	Readings      int    `json:"readings"`
	Discovered    int    `json:"discovered"`
	Scanning      bool   `json:"scanning"`
}

func (s *Stats) count(k Kind) {
	switch k {
	case Stored:
		s.Stored++
	case Duplicate:
		s.Duplicate++
	case Discovery:
		s.Discovery++
	case Rejected:
		s.Rejected++
	case Malformed:
		s.Malformed++
	}
}
