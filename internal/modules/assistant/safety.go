// Package assistant is the caller side of the natural-language-to-SQL
// service: prompt construction, the hard safety boundary on whatever comes
// back, and read-only local execution.
package assistant

import (
	"fmt"
	"regexp"
	"strings"
)

// SafetyError names the violated rule. It is a distinct type so callers can
// tell a safety rejection from a generation failure.
type SafetyError struct {
	Rule string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("safety check failed: %s", e.Rule)
}

// The deny list matches whole words only: a column named created_at must
// not trip CREATE.
var denyPattern = regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|CREATE|TRUNCATE|EXEC|EXECUTE)\b`)

// CheckSQL enforces the read-only boundary on a statement regardless of
// where it came from. It is applied to every generated statement and again
// before every local run; it is never bypassed.
func CheckSQL(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &SafetyError{Rule: "statement is empty"}
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return &SafetyError{Rule: "statement must start with SELECT or WITH"}
	}

	if m := denyPattern.FindString(trimmed); m != "" {
		return &SafetyError{Rule: fmt.Sprintf("statement contains forbidden keyword %s", strings.ToUpper(m))}
	}

	return nil
}
