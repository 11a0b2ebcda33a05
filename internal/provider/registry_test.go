package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/yield-agg-api/internal/model"
)

type stubAdapter struct {
	name string
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context) ([]model.Opportunity, error) {
	return nil, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&stubAdapter{name: "lido"}))
	require.NoError(t, r.Register(&stubAdapter{name: "marinade"}))

	assert.Equal(t, 2, r.Len())
	assert.NotNil(t, r.Get("lido"))
	assert.Nil(t, r.Get("unknown"))
}

func TestRegistryDuplicateRegistrationFails(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&stubAdapter{name: "lido"}))
	err := r.Register(&stubAdapter{name: "lido"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lido")
	assert.Equal(t, 1, r.Len())
}

func TestRegistryDeterministicOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubAdapter{name: "marinade"}))
	require.NoError(t, r.Register(&stubAdapter{name: "defillama"}))
	require.NoError(t, r.Register(&stubAdapter{name: "lido"}))

	assert.Equal(t, []string{"defillama", "lido", "marinade"}, r.Names())

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "defillama", all[0].Name())
	assert.Equal(t, "marinade", all[2].Name())
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubAdapter{name: "lido"}))

	r.Clear()

	assert.Zero(t, r.Len())
	require.NoError(t, r.Register(&stubAdapter{name: "lido"}))
}
