// Package schedule decides when a portfolio's next snapshot is due and
// advances its histories, catching up missed boundaries one slot at a time.
package schedule

import "time"

// SnapshotsDue returns how many snapshots should have been recorded for a
// portfolio created at createdAt as of now, clamped to horizon. The
// comparison is always against the fixed creation epoch, never against the
// time of a previous check, so repeated polling cannot double-fire.
func SnapshotsDue(createdAt, now time.Time, interval time.Duration, horizon int) int {
	if interval <= 0 {
		return 0
	}
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return 0
	}
	due := int(elapsed / interval)
	if due > horizon {
		return horizon
	}
	return due
}
