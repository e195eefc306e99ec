package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Manifest is the parsed package.json of a generated project.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// manifestFields are required top-level keys, checked in this order.
var manifestFields = []string{"name", "version", "dependencies", "devDependencies"}

// parseManifest decodes the manifest and reports which required fields are
// present. The raw key set is needed because an empty dependencies object and
// a missing one decode to the same Go value.
func parseManifest(content string) (*Manifest, map[string]bool, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &keys); err != nil {
		return nil, nil, err
	}

	var m Manifest
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil, nil, err
	}

	present := make(map[string]bool, len(manifestFields))
	for _, f := range manifestFields {
		_, present[f] = keys[f]
	}
	return &m, present, nil
}

// declared returns the union of dependencies and devDependencies keys.
func (m *Manifest) declared() map[string]bool {
	set := make(map[string]bool, len(m.Dependencies)+len(m.DevDependencies))
	for name := range m.Dependencies {
		set[name] = true
	}
	for name := range m.DevDependencies {
		set[name] = true
	}
	return set
}

// versionPlaceholders are npm version values that are valid without being
// semver constraints.
var versionPlaceholders = map[string]bool{
	"latest": true,
	"next":   true,
	"beta":   true,
	"*":      true,
}

var versionProtocolPrefixes = []string{"workspace:", "file:", "link:", "npm:", "git+", "git:", "github:", "http:", "https:"}

// versionIssues checks every declared version string for semver sanity.
// Issues are ordered by dependency name so reports are deterministic.
func (m *Manifest) versionIssues() []string {
	merged := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for name, ver := range m.Dependencies {
		merged[name] = ver
	}
	for name, ver := range m.DevDependencies {
		merged[name] = ver
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []string
	for _, name := range names {
		ver := merged[name]
		if versionPlaceholders[ver] || hasProtocolPrefix(ver) {
			continue
		}
		if _, err := semver.NewConstraint(ver); err != nil {
			issues = append(issues, fmt.Sprintf("invalid version %q for dependency %q in package.json", ver, name))
		}
	}
	return issues
}

func hasProtocolPrefix(ver string) bool {
	for _, p := range versionProtocolPrefixes {
		if strings.HasPrefix(ver, p) {
			return true
		}
	}
	return false
}
