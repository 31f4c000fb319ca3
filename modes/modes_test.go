package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		list    []Mode
		wantErr bool
	}{
		{
			name: "valid pair",
			list: []Mode{
				{Key: "a", Label: "X", Instruction: "do x"},
				{Key: "b", Label: "Y", Instruction: "do y"},
			},
			wantErr: false,
		},
		{
			name:    "empty list",
			list:    nil,
			wantErr: true,
		},
		{
			name: "duplicate key",
			list: []Mode{
				{Key: "a", Label: "X", Instruction: "do x"},
				{Key: "a", Label: "Y", Instruction: "do y"},
			},
			wantErr: true,
		},
		{
			name: "missing key",
			list: []Mode{
				{Label: "X", Instruction: "do x"},
			},
			wantErr: true,
		},
		{
			name: "missing label",
			list: []Mode{
				{Key: "a", Instruction: "do x"},
			},
			wantErr: true,
		},
		{
			name: "missing instruction",
			list: []Mode{
				{Key: "a", Label: "X"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.list)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, reg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, reg)
			}
		})
	}
}

func TestRegistryListOrder(t *testing.T) {
	list := []Mode{
		{Key: "c", Label: "C", Instruction: "i"},
		{Key: "a", Label: "A", Instruction: "i"},
		{Key: "b", Label: "B", Instruction: "i"},
	}
	reg, err := NewRegistry(list)
	require.NoError(t, err)

	got := reg.List()
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Key)
	assert.Equal(t, "a", got[1].Key)
	assert.Equal(t, "b", got[2].Key)

	// Mutating the returned slice must not affect the registry.
	got[0].Key = "mutated"
	again := reg.List()
	assert.Equal(t, "c", again[0].Key)
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry([]Mode{
		{Key: "slang_to_plain", Label: "Slang → Plain", Instruction: "rewrite plainly"},
	})
	require.NoError(t, err)

	m, ok := reg.Lookup("slang_to_plain")
	assert.True(t, ok)
	assert.Equal(t, "Slang → Plain", m.Label)

	_, ok = reg.Lookup("zzz")
	assert.False(t, ok)

	assert.Equal(t, 1, reg.Len())
}
