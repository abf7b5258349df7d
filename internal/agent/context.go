package agent

import (
	"fmt"
	"strings"
	"time"
)

// InvocationContext is the identity and temporal framing propagated
// unchanged through one delegated unit of work. It is validated once at the
// router boundary; workers treat it as read-only.
type InvocationContext struct {
	SubjectName   string
	ReferenceDate string // ISO form, YYYY-MM-DD
	SessionID     string
}

// Validate checks the context at the router boundary. SessionID may be
// empty at the root; once a session exists every invocation must carry it.
func (c InvocationContext) Validate() error {
	if strings.TrimSpace(c.SubjectName) == "" {
		return fmt.Errorf("invocation context: subject name must not be empty")
	}
	if _, err := time.Parse("2006-01-02", c.ReferenceDate); err != nil {
		return fmt.Errorf("invocation context: reference date %q is not a YYYY-MM-DD date", c.ReferenceDate)
	}
	return nil
}
