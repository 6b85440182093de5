// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"fmt"
	"strings"
)

// Format names one of the supported edit wire formats. The active format is
// selected by configuration; each format has its own lexer dialect.
type Format string

const (
	FormatBlock       Format = "block"       // JSON headers between @@start/@@end sentinels
	FormatReplacement Format = "replacement" // @ file directive headers, lone @ terminator
	FormatUnifiedDiff Format = "udiff"       // ---/+++ headers, numberless @@ @@ hunks
	FormatJSON        Format = "json"        // One JSON object streamed element by element
)

// Formats lists every supported format in display order.
func Formats() []Format {
	return []Format{FormatBlock, FormatReplacement, FormatUnifiedDiff, FormatJSON}
}

// ParseFormat converts a configuration string into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatBlock, FormatReplacement, FormatUnifiedDiff, FormatJSON:
		return Format(s), nil
	}
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return "", fmt.Errorf("unknown edit format %q (supported: %s)", s, strings.Join(names, ", "))
}
