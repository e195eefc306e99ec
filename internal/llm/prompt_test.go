package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptIncludesRequestFields(t *testing.T) {
	prompt := BuildPrompt(Request{
		Query:            "a recipe sharing site",
		ComponentLibrary: "chakra-ui",
		ProjectName:      "tasty",
		CMS:              "strapi",
	})

	assert.Contains(t, prompt, "a recipe sharing site")
	assert.Contains(t, prompt, "chakra-ui")
	assert.Contains(t, prompt, "strapi")
	assert.Contains(t, prompt, `"tasty"`)
	assert.Contains(t, prompt, `{"files":`)
}

func TestBuildPromptOmitsEmptyOptions(t *testing.T) {
	prompt := BuildPrompt(Request{Query: "a landing page"})

	assert.Contains(t, prompt, "a landing page")
	assert.NotContains(t, prompt, "component library")
	assert.NotContains(t, prompt, "content management system")
}
