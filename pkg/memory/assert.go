package memory

import "fmt"

// InvariantError reports a broken lifetime invariant: count underflow,
// double destruction, double basket membership. These are caller bugs,
// not recoverable conditions.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "ovum: invariant violation: " + e.Message
}

// Assert panics with an InvariantError when cond is false and assertions
// are compiled in (see assertions_on.go / assertions_off.go).
func Assert(cond bool, format string, args ...interface{}) {
	if assertionsEnabled && !cond {
		panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
	}
}

// AssertionsEnabled reports whether this build checks invariants
func AssertionsEnabled() bool {
	return assertionsEnabled
}
