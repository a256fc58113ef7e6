// Package backup keeps timestamped snapshots of a document file in a
// sibling backup directory, with bounded retention: a minimum interval
// between snapshots, a hard age cap, and at most one snapshot per past
// calendar day. All state is derived from directory listings.
package backup

import "time"

// Retention thresholds. Hard-coded for now; kept as named constants so
// a configuration surface can be added without hunting for literals.
const (
	// MinInterval is the minimum time between snapshots of the same
	// document unless the caller forces one.
	MinInterval = 10 * time.Minute
	// MaxSnapshotAge is the hard retention window; older snapshots are
	// removed even on forced backups.
	MaxSnapshotAge = 14 * 24 * time.Hour
)

// Snapshot describes one existing snapshot file, as derived from a
// directory listing.
//
// Snapshots carry the source's modification time, so ModTime says how
// old the content is, not when the snapshot was taken. Created is
// decoded from the filename timestamp; zero when the name does not
// parse.
type Snapshot struct {
	Name    string
	ModTime time.Time
	Created time.Time
}

func (s Snapshot) createdAt() time.Time {
	if s.Created.IsZero() {
		return s.ModTime
	}
	return s.Created
}

// Plan is a retention decision: whether to create a new snapshot and
// which existing ones to delete.
type Plan struct {
	Create bool
	Delete []string
}

// Retention decides what to do with a snapshot directory at the given
// time. It is pure so the policy is testable without a filesystem.
//
// Rules, in order: skip entirely when any snapshot was created less
// than MinInterval ago (unless forced); delete snapshots whose content
// is older than MaxSnapshotAge regardless of force; for every past
// calendar day keep only the most recently modified snapshot. Today's
// snapshots are exempt from the daily dedup.
//
// The skip window runs on creation time, not ModTime: a snapshot of a
// stale source is born with an old mtime and would otherwise never
// suppress the next one.
func Retention(now time.Time, snaps []Snapshot, force bool) Plan {
	if !force {
		for _, s := range snaps {
			if now.Sub(s.createdAt()) < MinInterval {
				return Plan{Create: false}
			}
		}
	}

	var doomed []string
	byDay := make(map[string][]Snapshot)
	for _, s := range snaps {
		if now.Sub(s.ModTime) > MaxSnapshotAge {
			doomed = append(doomed, s.Name)
			continue
		}
		day := s.ModTime.Local().Format("2006-01-02")
		byDay[day] = append(byDay[day], s)
	}

	today := now.Local().Format("2006-01-02")
	for day, group := range byDay {
		if day == today || len(group) < 2 {
			continue
		}
		newest := 0
		for i, s := range group {
			if s.ModTime.After(group[newest].ModTime) {
				newest = i
			}
		}
		for i, s := range group {
			if i != newest {
				doomed = append(doomed, s.Name)
			}
		}
	}

	return Plan{Create: true, Delete: doomed}
}
