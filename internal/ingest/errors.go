package ingest

import (
	"fmt"
	"strings"
)

// ValidationError rejects a whole upload before any job is created.
type ValidationError struct {
	Reason  string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Missing, ", "))
	}
	return e.Reason
}
