package memory

import (
	"fmt"
	"io"
	"sync"
)

// Violations collects invariant violations found by a validation pass.
// With AssertOnError set, the first recorded violation panics with an
// *InvariantError instead.
type Violations struct {
	AssertOnError bool

	mu   sync.Mutex
	list []string
}

// Record adds one violation
func (v *Violations) Record(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if v.AssertOnError {
		panic(&InvariantError{Message: msg})
	}
	v.mu.Lock()
	v.list = append(v.list, msg)
	v.mu.Unlock()
}

// List returns a copy of the recorded violations
func (v *Violations) List() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	result := make([]string, len(v.list))
	copy(result, v.list)
	return result
}

// Len returns the number of recorded violations
func (v *Violations) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.list)
}

// Clear forgets all violations
func (v *Violations) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.list = v.list[:0]
}

// WriteTo writes one violation per line
func (v *Violations) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, msg := range v.List() {
		n, err := fmt.Fprintf(w, "violation: %s\n", msg)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// validateMember checks one member of b
func validateMember(b *Basket, h Handle, m Collectable, out *Violations) {
	if !m.Validate() {
		out.Record("member %s (%T) failed its self-check", h, m)
	}
	if got := m.SoftGetBasket(); got != b {
		out.Record("member %s (%T) reports basket %p, expected %p", h, m, got, b)
	}
	if c, ok := m.(interface {
		HardCount() int64
		SoftCount() int64
	}); ok {
		if total, soft := c.HardCount(), c.SoftCount(); total <= 0 || soft < 0 || soft > total {
			out.Record("member %s (%T) has total count %d and soft count %d", h, m, total, soft)
		}
	}
}
