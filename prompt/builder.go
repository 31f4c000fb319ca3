// Package prompt composes the generation request sent to the LLM. The
// structure of the prompt is a contract with the downstream model: a fixed
// role statement, the chosen mode's instruction, the invariant rewrite rules,
// the delimited source text and a closing cue that only the transformed text
// should follow.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"slangbridge/modes"
)

// defaultTemplate is the full prompt layout. The source text is embedded as
// the last block so that embedded quotes or instruction-like content cannot
// terminate the rule section early.
const defaultTemplate = `You are an assistant that converts text between casual slang and plain, widely understood language.
{{.Instruction}}

Rules:
- Preserve the meaning of the source text.
- Adapt vocabulary, grammar and tone to the target style.
- Output only the converted text, with no preamble, apologies, explanations of your process or commentary.

Source text to convert:
"{{.Text}}"

Result (converted text only):`

// Builder renders generation prompts from a pre-compiled template.
type Builder struct {
	tmpl *template.Template
}

// promptData is the data handed to the template for a single build.
type promptData struct {
	Instruction string
	Text        string
}

// NewBuilder compiles the default prompt template.
func NewBuilder() (*Builder, error) {
	return NewBuilderWithTemplate(defaultTemplate)
}

// NewBuilderWithTemplate compiles a custom prompt template. The template is
// parsed once so that invalid templates fail at startup, not per request.
// It must reference {{.Instruction}} and {{.Text}}.
func NewBuilderWithTemplate(tmpl string) (*Builder, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Builder{tmpl: t}, nil
}

// Build renders the full prompt for the given mode and raw user text. Any
// string input is acceptable, including empty text and text containing quote
// characters or template-like markup; the raw text is inserted as data, never
// re-parsed.
func (b *Builder) Build(mode modes.Mode, rawText string) (string, error) {
	var buf bytes.Buffer
	data := promptData{Instruction: mode.Instruction, Text: rawText}
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return buf.String(), nil
}
