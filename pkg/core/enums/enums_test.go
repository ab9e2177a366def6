package enums

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type failingRegistry struct{}

func (failingRegistry) Entries(ctx context.Context, kind Kind) ([]Entry, error) {
	return nil, errors.New("registry unavailable")
}

func TestResolver_UsesRegistry(t *testing.T) {
	r := NewResolver(StaticRegistry{
		KindServiceType: {{Value: "Dog Walking"}},
	}, zap.NewNop())

	ctx := context.Background()
	assert.True(t, r.Contains(ctx, KindServiceType, "Dog Walking"))
	assert.False(t, r.Contains(ctx, KindServiceType, "Friendly Visit"))
}

func TestResolver_FallsBackWhenKindMissing(t *testing.T) {
	r := NewResolver(StaticRegistry{}, zap.NewNop())

	assert.True(t, r.Contains(context.Background(), KindCancellationReason, "Client - Health"))
}

func TestResolver_FallsBackOnError(t *testing.T) {
	r := NewResolver(failingRegistry{}, zap.NewNop())

	entry, ok := r.Lookup(context.Background(), KindServiceType, "Medical Appointment Drive")
	assert.True(t, ok)
	assert.Equal(t, CategoryDrive, entry.Category)
}

func TestResolver_NilSource(t *testing.T) {
	r := NewResolver(nil, zap.NewNop())

	assert.False(t, r.Contains(context.Background(), KindCancellationReason, "Bored"))
	assert.NotEmpty(t, r.Entries(context.Background(), KindUserType))
}
