package sim

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVMPattern_SizeAndContents(t *testing.T) {
	// GIVEN the VM-level generator
	g := NewVMPatternGenerator()

	// WHEN generating the pattern of VM 5
	p := g.Pattern(5)

	// THEN it has 5 group items of group 2, 4 unit items of sub-ids 10 and 11 and the global item
	require.Len(t, p, 10)
	assert.Equal(t, 10, g.Size())
	for i := 0; i < 5; i++ {
		assert.Contains(t, p, GroupItem(2, i))
	}
	assert.Contains(t, p, UnitItem(10, 0))
	assert.Contains(t, p, UnitItem(10, 1))
	assert.Contains(t, p, UnitItem(11, 0))
	assert.Contains(t, p, UnitItem(11, 1))
	assert.Contains(t, p, GlobalItem)
}

func TestPattern_IsDeterministicSortedAndUnique(t *testing.T) {
	for _, g := range []PatternGenerator{NewVMPatternGenerator(), NewTaskPatternGenerator()} {
		for id := 0; id < 50; id++ {
			a := g.Pattern(id)
			b := g.Pattern(id)
			assert.Equal(t, a, b, "id %d", id)
			assert.True(t, sort.StringsAreSorted(a), "id %d not sorted", id)

			seen := make(map[string]bool, len(a))
			for _, item := range a {
				assert.False(t, seen[item], "duplicate %q for id %d", item, id)
				seen[item] = true
			}
			assert.Len(t, a, g.Size())
		}
	}
}

func TestVMPattern_GroupSharing(t *testing.T) {
	g := NewVMPatternGenerator()

	// VMs 0 and 1 share group 0; VM 2 starts group 1
	shared := intersect(g.Pattern(0), g.Pattern(1))
	assert.Len(t, shared, 6, "5 group items + global")

	other := intersect(g.Pattern(0), g.Pattern(2))
	assert.Equal(t, []string{GlobalItem}, other)
}

func TestTaskPattern_MatchesVMPatternAtTwoTasksPerVM(t *testing.T) {
	// GIVEN tasks 2v and 2v+1 bound to VM v
	vmGen := NewVMPatternGenerator()
	taskGen := NewTaskPatternGenerator()

	for v := 0; v < 12; v++ {
		vmItems := vmGen.Pattern(v)
		for _, taskID := range []int{2 * v, 2*v + 1} {
			// THEN every item the task needs is part of the VM's pattern
			for _, item := range taskGen.Pattern(taskID) {
				assert.Contains(t, vmItems, item, "task %d on vm %d", taskID, v)
			}
		}
	}
}

func TestTaskPattern_Size(t *testing.T) {
	g := NewTaskPatternGenerator()
	assert.Equal(t, 8, g.Size())
	assert.Len(t, g.Pattern(7), 8)
}

func TestPattern_ZeroStride_Panics(t *testing.T) {
	g := PatternGenerator{GroupStride: 0, UnitFanout: 1, GroupItems: 1, UnitItems: 1}
	assert.Panics(t, func() { g.Pattern(1) })
}

func intersect(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	var out []string
	for _, s := range a {
		if in[s] {
			out = append(out, s)
		}
	}
	return out
}
