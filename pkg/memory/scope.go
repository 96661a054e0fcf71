package memory

// HardScope models a stack frame: it owns hard references and releases
// them, newest first, when it closes. Scopes nest through Parent.
type HardScope struct {
	parent *HardScope
	owned  []HardReference
	closed bool
}

// NewHardScope creates a scope nested in parent (nil for a root scope)
func NewHardScope(parent *HardScope) *HardScope {
	return &HardScope{parent: parent}
}

// Parent returns the enclosing scope
func (s *HardScope) Parent() *HardScope {
	return s.parent
}

// Acquire takes a new hard reference to r owned by the scope
func (s *HardScope) Acquire(r HardReference) {
	Assert(!s.closed, "acquire on a closed scope")
	s.owned = append(s.owned, r.HardAcquire())
}

// Own moves ptr into scope s and returns its target
func Own[T HardReference](s *HardScope, ptr HardPtr[T]) T {
	Assert(!s.closed, "own on a closed scope")
	p := ptr.Move()
	if p.Valid() {
		s.owned = append(s.owned, p.Get())
	}
	return p.Get()
}

// Release gives up the newest reference the scope holds to r. It reports
// false if the scope holds none.
func (s *HardScope) Release(r HardReference) bool {
	for i := len(s.owned) - 1; i >= 0; i-- {
		if s.owned[i] == r {
			s.owned = append(s.owned[:i], s.owned[i+1:]...)
			r.HardRelease()
			return true
		}
	}
	return false
}

// Len returns the number of references held
func (s *HardScope) Len() int {
	return len(s.owned)
}

// Close releases every owned reference. Closing twice is a no-op.
func (s *HardScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for i := len(s.owned) - 1; i >= 0; i-- {
		s.owned[i].HardRelease()
	}
	s.owned = nil
}

// ScopeStack is a stack of nested scopes over a root scope that is never
// exited
type ScopeStack struct {
	root   *HardScope
	scopes []*HardScope
}

// NewScopeStack creates a stack holding only the root scope
func NewScopeStack() *ScopeStack {
	root := NewHardScope(nil)
	return &ScopeStack{root: root, scopes: []*HardScope{root}}
}

// Current returns the innermost scope
func (st *ScopeStack) Current() *HardScope {
	return st.scopes[len(st.scopes)-1]
}

// Depth returns the number of scopes entered above the root
func (st *ScopeStack) Depth() int {
	return len(st.scopes) - 1
}

// Enter pushes a new scope
func (st *ScopeStack) Enter() *HardScope {
	scope := NewHardScope(st.Current())
	st.scopes = append(st.scopes, scope)
	return scope
}

// Exit closes and pops the innermost scope. It reports false at the root.
func (st *ScopeStack) Exit() bool {
	if len(st.scopes) <= 1 {
		return false
	}
	scope := st.scopes[len(st.scopes)-1]
	st.scopes = st.scopes[:len(st.scopes)-1]
	scope.Close()
	return true
}

// Close exits every scope, then closes the root
func (st *ScopeStack) Close() {
	for st.Exit() {
	}
	st.root.Close()
}
