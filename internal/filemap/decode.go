package filemap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DecodeError reports that the model's output could not be decoded into a
// FileMap. Raw carries the full original text so the caller can surface it
// to the requester; a retry would cost another model invocation, so the
// pipeline never retries on its own.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode model output: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// payloadSchema is the strict-phase contract: a single top-level "files"
// object mapping paths to string contents.
var payloadSchema = jsonschema.MustCompileString("payload.json", `{
	"type": "object",
	"required": ["files"],
	"properties": {
		"files": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "string"}
		}
	}
}`)

type payload struct {
	Files map[string]string `json:"files"`
}

// Decode parses raw model text into a FileMap. Phase one strips markdown
// fences and any prose surrounding the JSON object; phase two parses the
// remainder strictly, validates it against payloadSchema, and rejects unsafe
// paths. Every failure is returned as a *DecodeError carrying the raw text.
func Decode(raw string) (FileMap, error) {
	text := unwrap(raw)
	if text == "" {
		return nil, &DecodeError{Raw: raw, Err: fmt.Errorf("no JSON object found in model output")}
	}

	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return nil, &DecodeError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := payloadSchema.Validate(generic); err != nil {
		return nil, &DecodeError{Raw: raw, Err: fmt.Errorf("unexpected payload shape: %w", err)}
	}

	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, &DecodeError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	fm := FileMap(p.Files)
	for path := range fm {
		if err := checkPath(path); err != nil {
			return nil, &DecodeError{Raw: raw, Err: err}
		}
	}
	return fm, nil
}

// unwrap strips markdown code fences and surrounding prose, leaving the text
// between the first '{' and the last '}'. Returns "" if no object is present.
func unwrap(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// checkPath rejects paths that could escape the project namespace or break
// the archive layout.
func checkPath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("empty file path")
	case strings.HasPrefix(path, "/"):
		return fmt.Errorf("absolute file path %q", path)
	case strings.Contains(path, "\\"):
		return fmt.Errorf("backslash in file path %q", path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return fmt.Errorf("parent traversal in file path %q", path)
		}
		if seg == "" {
			return fmt.Errorf("empty segment in file path %q", path)
		}
	}
	return nil
}
