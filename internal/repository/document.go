package repository

import (
	"fmt"
	"time"
)

// malformed wraps a decode failure so callers treat the document as missing.
func malformed(notFound error, path string, err error) error {
	return fmt.Errorf("%w: malformed document %s: %v", notFound, path, err)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
