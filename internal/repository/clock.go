package repository

import "time"

// now is the timestamp written by repositories. Stored times are always UTC
// so that text comparisons in SQLite order correctly.
var now = func() time.Time {
	return time.Now().UTC()
}
