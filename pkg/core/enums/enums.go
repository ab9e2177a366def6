package enums

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// Kind names a closed set of values
type Kind string

const (
	KindServiceType         Kind = "service_type"
	KindCancellationReason  Kind = "cancellation_reason"
	KindRecurrenceFrequency Kind = "recurrence_frequency"
	KindFrequencyType       Kind = "frequency_type"
	KindVolunteerStatus     Kind = "volunteer_status"
	KindUserType            Kind = "user_type"
)

// CategoryDrive marks service types that need a destination address
const CategoryDrive = "drive"

// Entry is one allowed value, optionally grouped into a category
type Entry struct {
	Value    string `yaml:"value" json:"value"`
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
}

// Registry supplies the allowed values for a kind
type Registry interface {
	Entries(ctx context.Context, kind Kind) ([]Entry, error)
}

// Fallback is used whenever the registry is missing, fails, or has no entries for a kind
var Fallback = map[Kind][]Entry{
	KindServiceType: {
		{Value: "Medical Appointment Drive", Category: CategoryDrive},
		{Value: "Grocery Shopping Drive", Category: CategoryDrive},
		{Value: "Social Outing Drive", Category: CategoryDrive},
		{Value: "Friendly Visit"},
		{Value: "Phone Call"},
		{Value: "Home Help"},
	},
	KindCancellationReason: {
		{Value: "Client - Provider"},
		{Value: "Client - Health"},
		{Value: "Client - Other"},
		{Value: "Volunteer - Health"},
		{Value: "Volunteer - Other"},
		{Value: "No Volunteers Available"},
		{Value: "Weather"},
	},
	KindRecurrenceFrequency: {
		{Value: string(model.RecurrenceDaily)},
		{Value: string(model.RecurrenceWeekly)},
		{Value: string(model.RecurrenceBiWeekly)},
		{Value: string(model.RecurrenceMonthly)},
		{Value: string(model.RecurrenceAnnually)},
	},
	KindFrequencyType: {
		{Value: string(model.FrequencyOneTime)},
		{Value: string(model.FrequencyOngoing)},
		{Value: string(model.FrequencyContinuous)},
	},
	KindVolunteerStatus: {
		{Value: string(model.VolunteerPossible)},
		{Value: string(model.VolunteerLeftVoicemail)},
		{Value: string(model.VolunteerEmailed)},
		{Value: string(model.VolunteerAssigned)},
		{Value: string(model.VolunteerUnavailable)},
	},
	KindUserType: {
		{Value: "client"},
		{Value: "volunteer"},
		{Value: "staff"},
		{Value: "guest"},
	},
}

// Resolver answers membership questions against a registry, falling back to the local table
type Resolver struct {
	source Registry
	logger *zap.Logger
}

// NewResolver creates a resolver. source may be nil.
func NewResolver(source Registry, logger *zap.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Entries returns the allowed values for kind
func (r *Resolver) Entries(ctx context.Context, kind Kind) []Entry {
	if r.source != nil {
		entries, err := r.source.Entries(ctx, kind)
		if err != nil {
			r.logger.Warn("Enum registry lookup failed, using fallback table",
				zap.String("kind", string(kind)), zap.Error(err))
		} else if len(entries) > 0 {
			return entries
		}
	}
	return Fallback[kind]
}

// Lookup finds value within kind
func (r *Resolver) Lookup(ctx context.Context, kind Kind, value string) (Entry, bool) {
	for _, e := range r.Entries(ctx, kind) {
		if e.Value == value {
			return e, true
		}
	}
	return Entry{}, false
}

// Contains reports whether value is allowed for kind
func (r *Resolver) Contains(ctx context.Context, kind Kind, value string) bool {
	_, ok := r.Lookup(ctx, kind, value)
	return ok
}

// StaticRegistry serves entries from a fixed table, e.g. loaded from config
type StaticRegistry map[Kind][]Entry

func (s StaticRegistry) Entries(ctx context.Context, kind Kind) ([]Entry, error) {
	return s[kind], nil
}
