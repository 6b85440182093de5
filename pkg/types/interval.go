// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared value types used across tailor packages.
package types

import (
	"fmt"
	"sort"
)

// Interval is a half-open range of 1-indexed line numbers: Start inclusive,
// End exclusive, matching slice semantics. Start == End addresses an
// insertion point before line Start and spans no lines.
type Interval struct {
	Start int
	End   int
}

// NewInterval validates and constructs an Interval.
func NewInterval(start, end int) (Interval, error) {
	if start < 1 {
		return Interval{}, fmt.Errorf("interval start %d: line numbers are 1-indexed", start)
	}
	if end < start {
		return Interval{}, fmt.Errorf("interval [%d,%d): end precedes start", start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Len returns the number of lines the interval spans.
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// IsInsertion reports whether the interval spans no lines and therefore
// addresses a pure insertion point.
func (iv Interval) IsInsertion() bool {
	return iv.Start == iv.End
}

// Contains reports whether the 1-indexed line falls inside the interval.
func (iv Interval) Contains(line int) bool {
	return iv.Start <= line && line < iv.End
}

// Overlaps reports whether the two intervals share at least one line, or
// whether one is an insertion point strictly inside the other. Touching
// endpoints do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Adjacent reports whether the intervals touch end-to-start in either order.
func (iv Interval) Adjacent(other Interval) bool {
	return iv.End == other.Start || other.End == iv.Start
}

// Merge combines two overlapping or adjacent intervals into their union.
// Merging disjoint intervals is an error.
func (iv Interval) Merge(other Interval) (Interval, error) {
	if !iv.Overlaps(other) && !iv.Adjacent(other) {
		return Interval{}, fmt.Errorf("cannot merge disjoint intervals %s and %s", iv, other)
	}
	merged := iv
	if other.Start < merged.Start {
		merged.Start = other.Start
	}
	if other.End > merged.End {
		merged.End = other.End
	}
	return merged, nil
}

// String renders the interval for display, e.g. "[3,7)".
func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// MergeIntervals folds a list of intervals into the minimal covering set:
// sorted by start, with overlapping or adjacent neighbors merged.
func MergeIntervals(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if m, err := last.Merge(iv); err == nil {
			*last = m
			continue
		}
		out = append(out, iv)
	}
	return out
}
