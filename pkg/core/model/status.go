package model

var transitions = map[Status][]Status{
	StatusNotAssigned: {StatusAssigned, StatusCancelled, StatusDeleted},
	StatusAssigned:    {StatusNotAssigned, StatusCompleted, StatusCancelled, StatusDeleted},
	StatusCompleted:   {StatusDeleted},
	StatusCancelled:   {StatusDeleted},
	StatusDeleted:     {StatusDeleted},
}

// CanTransition reports whether a booking may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsActive is true for bookings that still need scheduling attention
func (s Status) IsActive() bool {
	return s == StatusNotAssigned || s == StatusAssigned
}

// AssignmentStatus derives NotAssigned/Assigned from the volunteer set.
// Terminal statuses are returned unchanged.
func AssignmentStatus(current Status, volunteers []VolunteerRelation) Status {
	if !current.IsActive() {
		return current
	}
	if AnyAssigned(volunteers) {
		return StatusAssigned
	}
	return StatusNotAssigned
}
