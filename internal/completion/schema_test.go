package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandSchema_RoleAt(t *testing.T) {
	bounded := &CommandSchema{
		Name:    "LRANGE",
		MinArgs: 3,
		MaxArgs: 3,
		Roles:   []ArgRole{RoleKey, RoleNumeric, RoleNumeric},
	}
	unbounded := &CommandSchema{
		Name:    "SET",
		MinArgs: 2,
		MaxArgs: Unbounded,
		Roles:   []ArgRole{RoleKey, RoleValue, RoleEnum},
	}

	tests := []struct {
		name     string
		schema   *CommandSchema
		position int
		wantRole ArgRole
		wantOK   bool
	}{
		{"first declared slot", bounded, 0, RoleKey, true},
		{"last declared slot", bounded, 2, RoleNumeric, true},
		{"past bounded schema", bounded, 3, RoleValue, false},
		{"negative position", bounded, -1, RoleValue, false},
		{"declared slot of unbounded schema", unbounded, 1, RoleValue, true},
		{"trailing slot repeats last role", unbounded, 7, RoleEnum, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := tt.schema.RoleAt(tt.position)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantRole, role)
			}
		})
	}
}

func TestCommandSchema_LiteralsAt(t *testing.T) {
	schema := &CommandSchema{
		Name:     "SET",
		MinArgs:  2,
		MaxArgs:  Unbounded,
		Roles:    []ArgRole{RoleKey, RoleValue, RoleEnum},
		Literals: map[int][]string{2: {"EX", "PX", "NX"}},
	}

	assert.Nil(t, schema.LiteralsAt(0))
	assert.Equal(t, []string{"EX", "PX", "NX"}, schema.LiteralsAt(2))
	// Trailing positions of an unbounded schema reuse the last slot's set.
	assert.Equal(t, []string{"EX", "PX", "NX"}, schema.LiteralsAt(5))

	bounded := &CommandSchema{
		Name:     "FLUSHDB",
		MaxArgs:  1,
		Roles:    []ArgRole{RoleEnum},
		Literals: map[int][]string{0: {"ASYNC", "SYNC"}},
	}
	assert.Equal(t, []string{"ASYNC", "SYNC"}, bounded.LiteralsAt(0))
	assert.Nil(t, bounded.LiteralsAt(1))
}

func TestCommandSchema_Words(t *testing.T) {
	compound := &CommandSchema{Name: "CONFIG GET"}
	assert.Equal(t, "CONFIG", compound.FirstWord())
	assert.Equal(t, "GET", compound.SecondWord())

	simple := &CommandSchema{Name: "GET"}
	assert.Equal(t, "GET", simple.FirstWord())
	assert.Equal(t, "", simple.SecondWord())
}
