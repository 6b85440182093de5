// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package gitrepo

import (
	"fmt"
	"strings"
	"unicode"
)

const maxSubjectLength = 72

// commitTypes maps task keywords to conventional commit types.
var commitTypes = []struct {
	keywords []string
	prefix   string
}{
	{[]string{"fix", "bug", "repair", "patch", "resolve", "correct"}, "fix"},
	{[]string{"refactor", "restructure", "reorganize", "clean up", "simplify"}, "refactor"},
	{[]string{"test", "spec", "coverage"}, "test"},
	{[]string{"doc", "comment", "readme", "documentation"}, "docs"},
	{[]string{"style", "format", "lint", "whitespace"}, "style"},
	{[]string{"perf", "performance", "optimize", "speed"}, "perf"},
	{[]string{"ci", "pipeline", "workflow", "github action"}, "ci"},
	{[]string{"build", "dependency", "deps", "module"}, "build"},
	{[]string{"chore", "cleanup", "maintain"}, "chore"},
	// "feat" is the default, so it comes last with broad keywords.
	{[]string{"add", "create", "implement", "new", "feature", "introduce"}, "feat"},
}

// GenerateMessage creates a conventional commit message from the task and
// the files the turn changed. The body groups files by how they changed.
func GenerateMessage(task string, changes []Change) string {
	commitType := inferCommitType(task)
	subject := buildSubject(commitType, task)
	body := buildBody(changes)

	msg := subject
	if body != "" {
		msg += "\n\n" + strings.TrimRight(body, "\n")
	}
	msg += "\n\n" + trailer
	return msg
}

// inferCommitType determines the conventional commit type from task keywords.
func inferCommitType(task string) string {
	lower := strings.ToLower(task)
	for _, ct := range commitTypes {
		for _, kw := range ct.keywords {
			if containsWord(lower, kw) {
				return ct.prefix
			}
		}
	}
	return "feat"
}

// containsWord checks whether text contains keyword as a whole word
// (bounded by non-letter characters or string edges). For multi-word
// keywords like "clean up", it falls back to substring matching.
func containsWord(text, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(text, keyword)
	}
	idx := 0
	for {
		i := strings.Index(text[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		leftOK := start == 0 || !unicode.IsLetter(rune(text[start-1]))
		rightOK := end == len(text) || !unicode.IsLetter(rune(text[end]))
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

// buildSubject creates the first line of the commit message.
// Format: "type: summary" (max 72 chars). Multi-line tasks contribute
// only their first line.
func buildSubject(commitType, task string) string {
	summary := strings.TrimSpace(task)
	if i := strings.IndexByte(summary, '\n'); i >= 0 {
		summary = strings.TrimSpace(summary[:i])
	}
	if summary == "" {
		summary = "apply assistant edits"
	}
	summary = strings.ToLower(summary[:1]) + summary[1:]
	summary = strings.TrimRight(summary, ".")

	subject := fmt.Sprintf("%s: %s", commitType, summary)
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength-3] + "..."
	}
	return subject
}

// buildBody lists the changed files grouped by operation.
func buildBody(changes []Change) string {
	groups := map[ChangeOp][]string{}
	for _, ch := range changes {
		line := ch.Path
		if ch.Op == OpRename && ch.OldPath != "" {
			line = ch.OldPath + " -> " + ch.Path
		}
		groups[ch.Op] = append(groups[ch.Op], line)
	}

	var buf strings.Builder
	for _, sec := range []struct {
		op    ChangeOp
		title string
	}{
		{OpCreate, "Created:"},
		{OpEdit, "Edited:"},
		{OpRename, "Renamed:"},
		{OpDelete, "Deleted:"},
	} {
		lines := groups[sec.op]
		if len(lines) == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(sec.title + "\n")
		for _, l := range lines {
			buf.WriteString(fmt.Sprintf("- %s\n", l))
		}
	}
	return buf.String()
}
