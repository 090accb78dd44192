package errors

import (
	"fmt"
	"strings"
	"sync"
)

// Collector gathers per-record errors while a source or a scan keeps going.
// It is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	errors    []*TrackerError
	maxErrors int
}

// NewCollector creates a collector that asks callers to stop after
// maxErrors errors. Zero or less means no limit.
func NewCollector(maxErrors int) *Collector {
	return &Collector{maxErrors: maxErrors}
}

// Add records err and reports whether processing should continue.
func (c *Collector) Add(err *TrackerError) bool {
	if err == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors = append(c.errors, err)
	return c.maxErrors <= 0 || len(c.errors) < c.maxErrors
}

// HasErrors reports whether anything was collected
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// Len returns the number of collected errors
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Errors returns a copy of the collected errors in insertion order
func (c *Collector) Errors() []*TrackerError {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*TrackerError, len(c.errors))
	copy(out, c.errors)
	return out
}

// Summary summarizes the collected errors
func (c *Collector) Summary() *ErrorSummary {
	return NewErrorSummary(c.Errors())
}

// Clear drops every collected error
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = c.errors[:0]
}

// MissingColumns returns the expected columns absent from header, compared
// case-insensitively.
func MissingColumns(expected, header []string) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.ToLower(strings.TrimSpace(col))] = true
	}

	var missing []string
	for _, col := range expected {
		if !present[strings.ToLower(strings.TrimSpace(col))] {
			missing = append(missing, col)
		}
	}

	return missing
}

// FormatForUser renders errs grouped by source, showing the first few of each.
func FormatForUser(errs []*TrackerError) string {
	switch len(errs) {
	case 0:
		return "No errors"
	case 1:
		return errs[0].Error()
	}

	const maxDetailed = 3

	var order []string
	bySource := make(map[string][]*TrackerError)
	for _, err := range errs {
		source := "unknown"
		if s, ok := err.Context["source"].(string); ok && s != "" {
			source = s
		}
		if _, seen := bySource[source]; !seen {
			order = append(order, source)
		}
		bySource[source] = append(bySource[source], err)
	}

	lines := []string{fmt.Sprintf("Found %d errors:", len(errs))}
	for _, source := range order {
		sourceErrs := bySource[source]
		lines = append(lines, "", fmt.Sprintf("Source: %s (%d errors)", source, len(sourceErrs)))
		for i, err := range sourceErrs {
			if i == maxDetailed {
				lines = append(lines, fmt.Sprintf("  ... and %d more", len(sourceErrs)-maxDetailed))
				break
			}
			lines = append(lines, "  "+err.Error())
		}
	}

	return strings.Join(lines, "\n")
}
