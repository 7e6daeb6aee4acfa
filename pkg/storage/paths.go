package storage

import (
	"strings"
)

const pathSeparator = "/"

// Join builds a path from its segments.
func Join(segments ...string) string {
	return strings.Join(segments, pathSeparator)
}

// Split returns the collection path and document id of a document path.
func Split(documentPath string) (collection, id string) {
	i := strings.LastIndex(documentPath, pathSeparator)
	if i < 0 {
		return "", documentPath
	}
	return documentPath[:i], documentPath[i+1:]
}

// ValidateDocumentPath checks that path addresses a document: an even, non-zero
// number of non-empty segments.
func ValidateDocumentPath(path string) error {
	n, err := countSegments(path)
	if err != nil {
		return err
	}
	if n%2 != 0 {
		return InvalidPathError(path, "not a document path")
	}
	return nil
}

// ValidateCollectionPath checks that path addresses a collection: an odd number
// of non-empty segments.
func ValidateCollectionPath(path string) error {
	n, err := countSegments(path)
	if err != nil {
		return err
	}
	if n%2 != 1 {
		return InvalidPathError(path, "not a collection path")
	}
	return nil
}

func countSegments(path string) (int, error) {
	if path == "" {
		return 0, InvalidPathError(path, "empty")
	}

	segments := strings.Split(path, pathSeparator)
	for _, s := range segments {
		if s == "" {
			return 0, InvalidPathError(path, "empty segment")
		}
	}
	return len(segments), nil
}
