package types

// IsValidActivity reports whether key names one of the scored activities.
func IsValidActivity(key string) bool {
	return key == ActivityA1 || key == ActivityA2 || key == ActivityA3
}

// IsValidRole reports whether role is a known student-side role.
func IsValidRole(role string) bool {
	return role == RoleRecorder || role == RoleOperator
}

// IsValidTab reports whether tab is a known navigation tab.
func IsValidTab(tab string) bool {
	switch tab {
	case TabActivity1, TabActivity2, TabActivity3, TabActivity4:
		return true
	}
	return false
}

// Validate checks the minimum shape required for an event to travel on
// the bus. Unknown types are allowed; consumers ignore what they don't
// understand.
func (e *Event) Validate() error {
	if e.Type == "" {
		return ErrMissingEventType
	}
	return nil
}
