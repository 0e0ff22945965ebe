package docstore

import (
	"fmt"
	"strings"
)

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the collection path and the id of a document path.
func Split(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// ValidateDocumentPath checks that path names a document: an even, non-zero
// number of non-empty segments.
func ValidateDocumentPath(path string) error {
	return validate(path, 0)
}

// ValidateCollectionPath checks that path names a collection: an odd number
// of non-empty segments.
func ValidateCollectionPath(path string) error {
	return validate(path, 1)
}

func validate(path string, parity int) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	if len(segments)%2 != parity {
		return fmt.Errorf("%w: %q has %d segments", ErrInvalidPath, path, len(segments))
	}
	return nil
}
