// Package validate performs static dependency-consistency checks over a
// decoded file map: every external module referenced by the generated source
// must be declared in the project manifest, and framework-specific files
// (bundler config, entry points, UI runtime packages) must be present. It
// never mutates the file map and never patches problems silently.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"sitesmith/internal/filemap"
)

// Report is an ordered list of human-readable issues. Issue order is fixed
// (manifest, fields, versions, missing dependencies, bundler, UI runtime) so
// callers and tests can rely on exact contents.
type Report []string

// OK reports whether validation passed.
func (r Report) OK() bool { return len(r) == 0 }

func (r Report) String() string { return strings.Join(r, "\n") }

// suggestedVersion is the placeholder offered for undeclared dependencies.
const suggestedVersion = "latest"

// vitePlugins maps recognized bundler plugin imports to the devDependency
// version suggested when they are missing.
var vitePlugins = map[string]string{
	"@vitejs/plugin-react":     "^4.0.0",
	"@vitejs/plugin-react-swc": "^3.0.0",
	"@vitejs/plugin-vue":       "^5.0.0",
}

// viteSourceEntries are the recognized application entry files, one of which
// must exist alongside index.html in a vite project.
var viteSourceEntries = []string{"src/main.jsx", "src/main.tsx", "src/main.js", "src/main.ts"}

// Check runs the full validation pass and returns a cumulative report.
// Only a missing or unparseable manifest short-circuits; everything after
// that accumulates so the caller gets a complete remediation list in one go.
func Check(fm filemap.FileMap) Report {
	var report Report

	manifestPath, ok := fm.Lookup("package.json")
	if !ok {
		return Report{"package.json is missing from the generated project"}
	}

	manifest, present, err := parseManifest(fm[manifestPath])
	if err != nil {
		return Report{fmt.Sprintf("package.json is not valid JSON: %v", err)}
	}

	for _, field := range manifestFields {
		if !present[field] {
			report = append(report, fmt.Sprintf("package.json is missing required field %q", field))
		}
	}

	report = append(report, manifest.versionIssues()...)

	declared := manifest.declared()
	missing := map[string]bool{}
	usesReact := false
	for _, path := range fm.Paths() {
		if !isSourceFile(path) {
			continue
		}
		content := fm[path]
		for _, ref := range moduleRefs(content) {
			if ref == "react" || ref == "react-dom" {
				usesReact = true
			}
			if !declared[ref] {
				missing[ref] = true
			}
		}
		if strings.Contains(content, "React.") || strings.Contains(content, "ReactDOM.") {
			usesReact = true
		}
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		report = append(report, fmt.Sprintf(
			"dependencies referenced in source but not declared in package.json: %s (add them with version %q)",
			strings.Join(names, ", "), suggestedVersion))
	}

	report = append(report, viteIssues(fm, manifest)...)

	if usesReact {
		for _, pkg := range []string{"react", "react-dom"} {
			if _, ok := manifest.Dependencies[pkg]; !ok {
				report = append(report, fmt.Sprintf("project uses React but %q is not in dependencies", pkg))
			}
		}
	}

	return report
}

// viteIssues checks bundler-specific consistency when a vite config file is
// present: recognized plugin imports must be devDependencies, and vite
// projects need an HTML entry plus a recognized source entry file.
func viteIssues(fm filemap.FileMap, manifest *Manifest) []string {
	configPath, ok := fm.Lookup("vite.config.js")
	if !ok {
		configPath, ok = fm.Lookup("vite.config.ts")
	}
	if !ok {
		return nil
	}

	var issues []string
	plugins := make([]string, 0, len(vitePlugins))
	for plugin := range vitePlugins {
		plugins = append(plugins, plugin)
	}
	sort.Strings(plugins)

	configRefs := make(map[string]bool)
	for _, ref := range moduleRefs(fm[configPath]) {
		configRefs[ref] = true
	}
	for _, plugin := range plugins {
		if !configRefs[plugin] {
			continue
		}
		if _, ok := manifest.DevDependencies[plugin]; !ok {
			issues = append(issues, fmt.Sprintf(
				"%s imports %s but it is not in devDependencies (add %q: %q)",
				configPath, plugin, plugin, vitePlugins[plugin]))
		}
	}

	if !fm.Has("index.html") {
		issues = append(issues, "vite project is missing the index.html entry file")
	}

	hasEntry := false
	for _, entry := range viteSourceEntries {
		if _, ok := fm[entry]; ok {
			hasEntry = true
			break
		}
	}
	if !hasEntry {
		issues = append(issues, fmt.Sprintf(
			"vite project is missing a source entry file (one of %s)",
			strings.Join(viteSourceEntries, ", ")))
	}

	return issues
}
