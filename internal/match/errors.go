package match

import "fmt"

// ValidationError reports malformed or inconsistent input, naming the rule
// that was violated. Nothing is applied when one is returned.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Detail)
}
