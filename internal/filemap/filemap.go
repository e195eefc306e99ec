// Package filemap turns raw model output into a structured map of project
// files. The model's text is untrusted: it may wrap the JSON payload in prose
// or markdown code fences, or be outright malformed. Decoding is therefore
// two-phase: a tolerant unwrapping pass followed by strict structural parsing
// with no silent coercion.
package filemap

import (
	"sort"
	"strings"
)

// FileMap maps a forward-slash relative path to its UTF-8 file content.
// A FileMap is treated as immutable once it has passed validation; the
// materializer and the archive builder read it concurrently.
type FileMap map[string]string

// Paths returns the file paths in lexical order.
func (fm FileMap) Paths() []string {
	paths := make([]string, 0, len(fm))
	for p := range fm {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Lookup returns the first path with the given suffix, in lexical order.
// Used to locate well-known files such as package.json.
func (fm FileMap) Lookup(suffix string) (string, bool) {
	for _, p := range fm.Paths() {
		if strings.HasSuffix(p, suffix) {
			return p, true
		}
	}
	return "", false
}

// Has reports whether any path has the given suffix.
func (fm FileMap) Has(suffix string) bool {
	_, ok := fm.Lookup(suffix)
	return ok
}
