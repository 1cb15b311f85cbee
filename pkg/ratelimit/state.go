package ratelimit

import "time"

// Redis defaults for the shared limiter.
const (
	// KeyPrefix namespaces slot lease sets; the server address is appended.
	KeyPrefix = "jamfctl:inflight:"

	// DefaultSlotTTL bounds how long a crashed process can hold a slot.
	// A request running longer than this loses its lease.
	DefaultSlotTTL = 2 * time.Minute

	// DefaultPollInterval is the initial wait between acquisition attempts.
	DefaultPollInterval = 25 * time.Millisecond

	// MaxPollInterval caps the growing wait between attempts.
	MaxPollInterval = 500 * time.Millisecond
)

// SlotState is a snapshot of the live leases on a shared limiter.
type SlotState struct {
	InUse int `json:"in_use"`
	Limit int `json:"limit"`
}

// Free returns the number of unused slots, never negative.
func (s SlotState) Free() int {
	if s.InUse >= s.Limit {
		return 0
	}
	return s.Limit - s.InUse
}

// Saturated reports whether every slot is taken.
func (s SlotState) Saturated() bool {
	return s.Free() == 0
}
