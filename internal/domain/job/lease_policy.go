// Package job holds queue-side domain logic: lease normalisation and the
// in-process availability notifier that wakes dispatcher workers.
package job

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// LeaseSource identifies how a lease duration was resolved.
type LeaseSource string

const (
	// LeaseSourceExplicit indicates the caller supplied a positive duration.
	LeaseSourceExplicit LeaseSource = "explicit"
	// LeaseSourceDefault indicates the default duration was used.
	LeaseSourceDefault LeaseSource = "default"
	// LeaseSourceClamped indicates the requested duration was clamped to the minimum supported value.
	LeaseSourceClamped LeaseSource = "clamped"
)

// LeasePolicy turns caller-supplied lease durations into the whole-second
// values the jobs table stores. Reservations and heartbeats share one policy
// so a worker's renewal can never shrink below what the reservation granted.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy constructs a LeasePolicy with the provided default lease duration.
func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{defaultLease: defaultLease}, nil
}

// Default returns the configured default lease duration.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// LeaseDecision captures the outcome of resolving a lease request.
type LeaseDecision struct {
	Seconds   int
	Source    LeaseSource
	Requested time.Duration
}

// UsedDefault reports whether the policy fell back to the default lease.
func (d LeaseDecision) UsedDefault() bool {
	return d.Source == LeaseSourceDefault
}

// Clamped reports whether the requested value was clamped to the minimum supported duration.
func (d LeaseDecision) Clamped() bool {
	return d.Source == LeaseSourceClamped
}

// Resolve normalises a requested duration. Zero means "use the default",
// negative and sub-second requests clamp to one second so a lease can never
// expire before the reserving worker gets a chance to heartbeat.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	if p == nil {
		return LeaseDecision{Seconds: 0, Source: LeaseSourceDefault, Requested: request}
	}

	if request < 0 {
		return LeaseDecision{Seconds: 1, Source: LeaseSourceClamped, Requested: request}
	}

	if request == 0 {
		seconds, _ := wholeSeconds(p.defaultLease)
		return LeaseDecision{Seconds: seconds, Source: LeaseSourceDefault, Requested: request}
	}

	seconds, clamped := wholeSeconds(request)
	source := LeaseSourceExplicit
	if clamped {
		source = LeaseSourceClamped
	}
	return LeaseDecision{Seconds: seconds, Source: source, Requested: request}
}

// wholeSeconds truncates to seconds and pins the result to [1, MaxInt].
func wholeSeconds(d time.Duration) (int, bool) {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return 1, true
	}
	if seconds > int64(math.MaxInt) {
		return math.MaxInt, true
	}
	return int(seconds), false
}
