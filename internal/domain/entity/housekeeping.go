package entity

import "time"

// HousekeepingConfig controls the retention sweep (C8): how long items of
// each priority bucket are kept, whether the sweep runs at all, and whether
// starred items are exempt from it regardless of age.
type HousekeepingConfig struct {
	RetentionDaysHigh   int
	RetentionDaysMedium int
	RetentionDaysLow    int
	RetentionDaysNone   int

	AutoPurgeEnabled bool
	ExcludeStarred   bool
}

// RetentionDaysFor returns the configured retention window, in days, for the
// given priority bucket.
func (c *HousekeepingConfig) RetentionDaysFor(p Priority) int {
	switch p {
	case PriorityHigh:
		return c.RetentionDaysHigh
	case PriorityMedium:
		return c.RetentionDaysMedium
	case PriorityLow:
		return c.RetentionDaysLow
	default:
		return c.RetentionDaysNone
	}
}

// Eligible reports whether item, given its first-seen timestamp, priority,
// and starred flag, is eligible for deletion by the housekeeping sweep at
// the given reference time (spec §4.8).
func (c *HousekeepingConfig) Eligible(firstSeen time.Time, priority Priority, isStarred bool, now time.Time) bool {
	if !c.AutoPurgeEnabled {
		return false
	}
	if c.ExcludeStarred && isStarred {
		return false
	}
	retention := time.Duration(c.RetentionDaysFor(priority)) * 24 * time.Hour
	return firstSeen.Add(retention).Before(now)
}

// Validate checks the HousekeepingConfig's structural invariants.
func (c *HousekeepingConfig) Validate() error {
	for _, d := range []int{c.RetentionDaysHigh, c.RetentionDaysMedium, c.RetentionDaysLow, c.RetentionDaysNone} {
		if d < 0 {
			return &ValidationError{Field: "retention_days", Message: "must be non-negative"}
		}
	}
	return nil
}
