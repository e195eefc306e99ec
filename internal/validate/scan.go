package validate

import (
	"regexp"
	"strings"
)

// Import scanning is regex-based and therefore heuristic: multi-line imports,
// string-built module names, and exotic dynamic imports can evade it. The
// dependency check is best-effort completeness, not a soundness guarantee.
var (
	importRe        = regexp.MustCompile(`import\s+(?:[\w$*{}\s,]+\s+from\s+)?['"]([^'"]+)['"]`)
	requireRe       = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	dynamicImportRe = regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`)
)

// sourceExtensions are the file types scanned for module references.
var sourceExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".vue", ".svelte"}

func isSourceFile(path string) bool {
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// moduleRefs extracts external module references from file content.
// Relative references (leading "." or "/") are skipped; scoped names collapse
// to their first two path segments, bare names to their first segment.
func moduleRefs(content string) []string {
	var refs []string
	for _, re := range []*regexp.Regexp{importRe, requireRe, dynamicImportRe} {
		for _, match := range re.FindAllStringSubmatch(content, -1) {
			ref := match[1]
			if strings.HasPrefix(ref, ".") || strings.HasPrefix(ref, "/") {
				continue
			}
			refs = append(refs, normalizeRef(ref))
		}
	}
	return refs
}

// normalizeRef reduces a module specifier to its manifest-checkable package
// name: "react-dom/client" -> "react-dom", "@scope/pkg/sub" -> "@scope/pkg".
func normalizeRef(ref string) string {
	parts := strings.Split(ref, "/")
	if strings.HasPrefix(ref, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}
