package llm

import (
	"fmt"
	"strings"
)

// Request is one generation request as received from the HTTP layer or CLI.
type Request struct {
	Query            string `json:"query"`
	ComponentLibrary string `json:"componentLibrary"`
	ProjectName      string `json:"projectName"`
	CMS              string `json:"cms"`
}

// BuildPrompt composes the generation prompt. The response contract is
// spelled out twice (shape and constraints) because the decoder downstream
// is strict: anything other than a single JSON object with a "files" map is
// rejected and costs the user a full model invocation.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are a code generator that produces complete, runnable web projects.\n\n")
	fmt.Fprintf(&b, "Build the following project: %s\n\n", req.Query)

	if req.ComponentLibrary != "" {
		fmt.Fprintf(&b, "Use %s as the UI component library and declare it in package.json.\n", req.ComponentLibrary)
	}
	if req.CMS != "" {
		fmt.Fprintf(&b, "Integrate with %s as the content management system.\n", req.CMS)
	}
	if req.ProjectName != "" {
		fmt.Fprintf(&b, "Use %q as the project name in package.json.\n", req.ProjectName)
	}

	b.WriteString(`
Requirements:
- The project must be a Vite + React application with index.html at the root and src/main.jsx as the entry point.
- package.json must declare name, version, dependencies and devDependencies.
- Every package imported anywhere in the source must appear in dependencies or devDependencies.
- The project must work after "npm install" with no manual fixes.

Respond with a single JSON object of this exact shape and nothing else:
{"files": {"<relative/path>": "<full file content>", ...}}

Do not wrap the JSON in markdown fences. Do not add commentary before or after it.
`)

	return b.String()
}
