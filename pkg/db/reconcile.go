package db

import (
	"sort"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// Diff is the minimal set of row changes turning one relation set into another
type Diff[T any] struct {
	Insert []T
	Update []T
	Delete []T
}

// Empty reports whether nothing needs to change
func (d Diff[T]) Empty() bool {
	return len(d.Insert) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// Reconcile compares current and desired rows by key. Rows present in both
// with different contents are updated. Output order follows the inputs.
func Reconcile[T any](current, desired []T, key func(T) string, equal func(a, b T) bool) Diff[T] {
	var diff Diff[T]

	existing := make(map[string]T, len(current))
	for _, c := range current {
		existing[key(c)] = c
	}
	wanted := make(map[string]bool, len(desired))

	for _, d := range desired {
		k := key(d)
		if wanted[k] {
			continue
		}
		wanted[k] = true
		c, ok := existing[k]
		switch {
		case !ok:
			diff.Insert = append(diff.Insert, d)
		case !equal(c, d):
			diff.Update = append(diff.Update, d)
		}
	}

	for _, c := range current {
		if !wanted[key(c)] {
			diff.Delete = append(diff.Delete, c)
		}
	}

	return diff
}

// DiffClientRelations reconciles client relations. Updates that drop the primary
// flag are ordered before updates that set it, so a unique primary index holds
// after every statement.
func DiffClientRelations(current, desired []model.ClientRelation) Diff[model.ClientRelation] {
	diff := Reconcile(current, desired,
		func(r model.ClientRelation) string { return r.ClientID },
		func(a, b model.ClientRelation) bool { return a.IsPrimary == b.IsPrimary },
	)
	sort.SliceStable(diff.Update, func(i, j int) bool {
		return !diff.Update[i].IsPrimary && diff.Update[j].IsPrimary
	})
	return diff
}

// DiffVolunteerRelations reconciles volunteer relations keyed by volunteer id
func DiffVolunteerRelations(current, desired []model.VolunteerRelation) Diff[model.VolunteerRelation] {
	return Reconcile(current, desired,
		func(r model.VolunteerRelation) string { return r.VolunteerID },
		func(a, b model.VolunteerRelation) bool { return a.Status == b.Status },
	)
}

// DiffEventAttendees reconciles attendees keyed by user id or external name
func DiffEventAttendees(current, desired []model.EventAttendee) Diff[model.EventAttendee] {
	return Reconcile(current, desired,
		model.EventAttendee.Key,
		func(a, b model.EventAttendee) bool { return a.UserType == b.UserType },
	)
}
