// Package workspace owns the on-disk life of a generated project: the
// collision-free namespace that scopes one generation request, and the
// materializer that writes a validated file map under it.
package workspace

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultProjectName is used when the request supplies no usable name.
const DefaultProjectName = "ai-generated-project"

var unsafeChars = regexp.MustCompile(`[^a-z0-9-]+`)

// NewNamespace derives a unique namespace for one generation request from an
// optional human-supplied name and an optional platform prefix (the target
// CMS). The millisecond timestamp plus a short uuid fragment guarantees that
// two requests in the same millisecond with identical names still get
// distinct namespaces; namespaces are never reused.
func NewNamespace(projectName, platform string) string {
	name := Sanitize(projectName)
	if name == "" {
		name = DefaultProjectName
	}
	if prefix := Sanitize(platform); prefix != "" {
		name = prefix + "-" + name
	}
	return fmt.Sprintf("%s-%d-%s", name, time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Sanitize lowercases a supplied name and reduces it to hyphen-separated
// [a-z0-9] runs, so it is safe as a directory and archive file name.
func Sanitize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = unsafeChars.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
