// Package admission decides whether a raw advertisement is worth decoding.
package admission

import (
	"errors"
	"fmt"
	"slices"
)

// VendorID is the company identifier EnvSensor beacons put in front of their payload.
const VendorID uint16 = 0xFFFF

// VendorPrefixLen is the length of the little-endian company identifier.
const VendorPrefixLen = 2

var (
	ErrNoVendorData   = errors.New("no vendor data")
	ErrVendorMismatch = errors.New("vendor mismatch")
	ErrNotAllowlisted = errors.New("device not allowlisted")
)

// Advertisement is one scan event as delivered by a gateway.
// A nil ManufacturerData means the advertisement carried none.
type Advertisement struct {
	DeviceID         string
	ManufacturerData []byte
	RSSI             int
	Name             string
}

// DisplayName returns the advertised name or "Unknown".
func (a Advertisement) DisplayName() string {
	if a.Name == "" {
		return "Unknown"
	}

	return a.Name
}

// Verdict is the outcome class of an admission decision.
type Verdict int

const (
	Rejected Verdict = iota
	AcceptedForDiscovery
	AcceptedForReading
)

func (v Verdict) String() string {
	switch v {
	case Rejected:
		return "rejected"
	case AcceptedForDiscovery:
		return "discovery"
	case AcceptedForReading:
		return "reading"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Result is returned by Filter.Admit.
type Result struct {
	Verdict Verdict
	// Reason is set for Rejected results.
	Reason error
	// Vendor is the extracted company identifier, valid whenever HasVendor is true.
	Vendor    uint16
	HasVendor bool
	// Payload is the manufacturer data without the vendor prefix, set for AcceptedForReading.
	Payload []byte
}

// Filter holds the admission state: allow-list, discovery flag and the set
// of devices seen with a matching vendor. It is not safe for concurrent use.
type Filter struct {
	vendor     uint16
	allow      *AllowList
	discovery  bool
	discovered map[string]struct{}
}

// NewFilter creates a filter accepting VendorID with an empty allow-list.
func NewFilter() *Filter {
	return &Filter{
		vendor:     VendorID,
		allow:      NewAllowList(),
		discovered: make(map[string]struct{}),
	}
}

// Admit classifies adv. The only side effect is recording vendor-matched
// devices into the discovered set. Discovery mode never changes the verdict
// of a vendor-matched advertisement.
func (f *Filter) Admit(adv Advertisement) Result {
	md := adv.ManufacturerData
	if len(md) < VendorPrefixLen {
		return Result{Verdict: Rejected, Reason: ErrNoVendorData}
	}

	vendor := uint16(md[0]) | uint16(md[1])<<8

	if vendor != f.vendor {
		// Discovery mode surfaces foreign vendors for inspection only.
		if f.discovery {
			return Result{Verdict: AcceptedForDiscovery, Vendor: vendor, HasVendor: true}
		}

		return Result{Verdict: Rejected, Reason: ErrVendorMismatch, Vendor: vendor, HasVendor: true}
	}

	f.discovered[adv.DeviceID] = struct{}{}

	if !f.allow.Permits(adv.DeviceID) {
		return Result{Verdict: Rejected, Reason: ErrNotAllowlisted, Vendor: vendor, HasVendor: true}
	}

	return Result{
		Verdict:   AcceptedForReading,
		Vendor:    vendor,
		HasVendor: true,
		Payload:   md[VendorPrefixLen:],
	}
}

// AllowList exposes the allow-list for mutation.
func (f *Filter) AllowList() *AllowList {
	return f.allow
}

// SetDiscovery toggles discovery mode.
func (f *Filter) SetDiscovery(enabled bool) {
	f.discovery = enabled
}

// Discovery reports whether discovery mode is on.
func (f *Filter) Discovery() bool {
	return f.discovery
}

// Discovered returns the vendor-matched device identities, sorted.
func (f *Filter) Discovered() []string {
	ids := make([]string, 0, len(f.discovered))
	for id := range f.discovered {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// ForgetDiscovered clears the discovered set.
func (f *Filter) ForgetDiscovered() {
	clear(f.discovered)
}
