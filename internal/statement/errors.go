package statement

import (
	"fmt"
	"strings"
)

// StructuralError means the input could not be interpreted as statement
// text at all (undecodable pages, no recognizable structure). It aborts
// the template attempt and triggers the fallback extractor.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error: %s", e.Reason)
}

// FailedError is the terminal failure of an extraction attempt: neither
// the template path nor the fallback produced an acceptable outcome. It
// carries the accumulated diagnostic issues so a failed statement is never
// mistaken for a processed, transaction-free one.
type FailedError struct {
	Issues []Issue
}

func (e *FailedError) Error() string {
	if len(e.Issues) == 0 {
		return "extraction failed"
	}
	details := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		details = append(details, is.Check+": "+is.Detail)
	}
	return "extraction failed: " + strings.Join(details, "; ")
}
