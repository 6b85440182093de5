// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"bytes"
	"embed"
	"fmt"
	"runtime"
	"strings"
	"text/template"

	"github.com/avasek/tailor/internal/parse"
	"github.com/avasek/tailor/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateData holds the values injected into the system prompt template.
type TemplateData struct {
	OS           string
	Format       string
	Instructions string
}

// RenderSystemPrompt renders the system prompt for the active edit format.
func RenderSystemPrompt(format types.Format) (string, error) {
	instructions, err := FormatInstructions(format)
	if err != nil {
		return "", err
	}

	tmpl, err := template.ParseFS(templateFS, "templates/system.tmpl")
	if err != nil {
		return "", fmt.Errorf("parsing system template: %w", err)
	}

	data := TemplateData{
		OS:           runtime.GOOS,
		Format:       string(format),
		Instructions: instructions,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing system template: %w", err)
	}

	return buf.String(), nil
}

// FormatInstructions renders the edit-notation guide for one format. The
// line-number formats embed a worked example produced by the render layer,
// so the notation shown is exactly what the lexer accepts; the diff and
// JSON guides carry static examples in their templates.
func FormatInstructions(format types.Format) (string, error) {
	name := fmt.Sprintf("templates/format_%s.tmpl", format)
	tmpl, err := template.ParseFS(templateFS, name)
	if err != nil {
		return "", fmt.Errorf("parsing %s instructions: %w", format, err)
	}

	example, err := workedExample(format)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Example string }{Example: example}); err != nil {
		return "", fmt.Errorf("executing %s instructions: %w", format, err)
	}

	return buf.String(), nil
}

func workedExample(format types.Format) (string, error) {
	switch format {
	case types.FormatBlock, types.FormatReplacement:
		return parse.Render(format, exampleEdits())
	}
	return "", nil
}

// exampleEdits is the canonical edit pair shown in the notation guides:
// one in-place replacement and one file creation.
func exampleEdits() []types.Edit {
	return []types.Edit{
		{
			Kind:     types.KindReplacement,
			File:     "src/app.py",
			Interval: types.Interval{Start: 4, End: 6},
			Lines: []string{
				"def total(items):",
				"    return sum(item.price for item in items)",
			},
		},
		{
			Kind:  types.KindCreation,
			File:  "src/discounts.py",
			Lines: []string{"MEMBER_RATE = 0.1"},
		},
	}
}

// ConstructMessages builds the message array for one coding turn.
//
// The message order is:
//  1. User message with the code map
//  2. User message with file contents (paths and numbered lines)
//  3. User message with the coding task
//
// The system prompt travels separately in Request.System.
func ConstructMessages(codeMap string, files []types.FileContent, task string) []types.Message {
	var messages []types.Message

	if codeMap != "" {
		messages = append(messages, types.Message{
			Role:    types.RoleUser,
			Content: "## Code Map\n\n" + codeMap,
		})
	}

	if len(files) > 0 {
		var buf strings.Builder
		buf.WriteString("## File Contents\n\n")
		for _, f := range files {
			buf.WriteString(formatFileContent(f))
			buf.WriteString("\n")
		}
		messages = append(messages, types.Message{
			Role:    types.RoleUser,
			Content: buf.String(),
		})
	}

	messages = append(messages, types.Message{
		Role:    types.RoleUser,
		Content: task,
	})

	return messages
}

// ConstructFollowUp appends the assistant's previous response and the next
// task so a session's later turns carry the earlier conversation.
func ConstructFollowUp(prev []types.Message, assistantResponse, task string) []types.Message {
	messages := append(prev, types.Message{
		Role:    types.RoleAssistant,
		Content: assistantResponse,
	})
	return append(messages, types.Message{
		Role:    types.RoleUser,
		Content: task,
	})
}

// formatFileContent formats a file's content with path header and line
// numbers. The numbering matches the line model the edit notations
// reference, so a trailing newline does not produce a phantom last line.
func formatFileContent(f types.FileContent) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "### %s\n\n", f.Path)

	for i, line := range types.SplitLines(f.Content) {
		fmt.Fprintf(&buf, "%4d │ %s\n", i+1, line)
	}

	return buf.String()
}
