package session

// Phase summarizes the selection state.
type Phase string

const (
	// PhaseEmpty means nothing has been picked yet.
	PhaseEmpty Phase = "empty"
	// PhaseProvisional means a pick awaits a role.
	PhaseProvisional Phase = "provisional"
	// PhaseCommitted means no pick is pending and at least one endpoint is set.
	PhaseCommitted Phase = "committed"
)

// PointSelector tracks the provisional pick and the committed start and end.
// Committed endpoints survive later picks; only confirming a role replaces one.
type PointSelector struct {
	provisional *Coordinate
	start       *Coordinate
	end         *Coordinate
}

// Pick replaces any provisional pick with c.
func (s *PointSelector) Pick(c Coordinate) {
	s.provisional = &c
}

// Confirm promotes the provisional pick to role, replacing any earlier
// coordinate for that role, and clears the pick. It reports false and changes
// nothing when there is no pick or role is not start or end.
func (s *PointSelector) Confirm(role Role) (Coordinate, bool) {
	if s.provisional == nil || !role.Confirmable() {
		return Coordinate{}, false
	}

	c := *s.provisional
	s.provisional = nil
	if role == RoleStart {
		s.start = &c
	} else {
		s.end = &c
	}
	return c, true
}

// Phase returns the current selection phase.
func (s *PointSelector) Phase() Phase {
	switch {
	case s.provisional != nil:
		return PhaseProvisional
	case s.start != nil || s.end != nil:
		return PhaseCommitted
	default:
		return PhaseEmpty
	}
}

// IsComplete reports whether both start and end are set.
func (s *PointSelector) IsComplete() bool {
	return s.start != nil && s.end != nil
}

// Endpoints returns start and end when both are set.
func (s *PointSelector) Endpoints() (start, end Coordinate, ok bool) {
	if !s.IsComplete() {
		return Coordinate{}, Coordinate{}, false
	}
	return *s.start, *s.end, true
}

// Provisional returns the pending pick.
func (s *PointSelector) Provisional() (Coordinate, bool) {
	return deref(s.provisional)
}

// Start returns the committed start.
func (s *PointSelector) Start() (Coordinate, bool) {
	return deref(s.start)
}

// End returns the committed end.
func (s *PointSelector) End() (Coordinate, bool) {
	return deref(s.end)
}

func deref(c *Coordinate) (Coordinate, bool) {
	if c == nil {
		return Coordinate{}, false
	}
	return *c, true
}
