package docsystem

import "strings"

// treepath.go - materialized path helpers.
//
// A tree path is the dot-joined chain of document ids from the root to the
// document itself, e.g. "a1.b2.c3". Ids are UUIDs and never contain dots.

// PathSeparator joins ids in a tree path
const PathSeparator = "."

// ChildPath returns the tree path of a document with the given id placed under parentPath.
// An empty parentPath means the document is a root.
func ChildPath(parentPath, id string) string {
	if parentPath == "" {
		return id
	}
	return parentPath + PathSeparator + id
}

// Depth returns the level encoded by a tree path (root = 0)
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, PathSeparator)
}

// IsSelfOrDescendant reports whether path equals ancestorPath or lies below it.
// Matching is by whole dot segments, so "ab" is not under "a".
func IsSelfOrDescendant(path, ancestorPath string) bool {
	if path == "" || ancestorPath == "" {
		return false
	}
	return path == ancestorPath || strings.HasPrefix(path, ancestorPath+PathSeparator)
}

// Rebase replaces the oldPrefix chain of path with newPrefix.
// Returns false when path is not oldPrefix or one of its descendants.
//
// Examples:
//   - Rebase("a.b.c", "a.b", "x.b") → "x.b.c", true
//   - Rebase("a.b", "a.b", "b") → "b", true
func Rebase(path, oldPrefix, newPrefix string) (string, bool) {
	if !IsSelfOrDescendant(path, oldPrefix) {
		return "", false
	}
	return newPrefix + path[len(oldPrefix):], true
}

// AncestorIDs returns the ids above the document, root first
func AncestorIDs(path string) []string {
	segments := strings.Split(path, PathSeparator)
	if len(segments) <= 1 {
		return []string{}
	}
	return segments[:len(segments)-1]
}

// DescendantPattern returns a LIKE pattern matching strict descendants of path
func DescendantPattern(path string) string {
	return escapeLike(path) + PathSeparator + "%"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
