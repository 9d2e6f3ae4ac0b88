package sim

import (
	"fmt"
	"sort"
)

// GlobalItem is shared by every access pattern.
const GlobalItem = "global:common"

// PatternGenerator maps an integer identifier to the deterministic set of data items
// it needs. Identifiers are grouped: GroupStride consecutive ids share GroupItems
// group-level items. Each id also owns UnitFanout sub-identifiers, each contributing
// UnitItems unit-level items.
//
// VM-level and task-level generators use different strides on purpose. They line up
// only when each VM runs exactly GroupStride(task)/GroupStride(vm) tasks.
type PatternGenerator struct {
	GroupStride int // ids per shared group (> 0)
	UnitFanout  int // sub-identifiers per id (>= 0)
	GroupItems  int // items per group
	UnitItems   int // items per sub-identifier
}

// NewVMPatternGenerator returns the VM-level generator: 2 VMs per group, 2 sub-ids per VM.
// Every pattern it produces has exactly 10 items.
func NewVMPatternGenerator() PatternGenerator {
	return PatternGenerator{GroupStride: 2, UnitFanout: 2, GroupItems: 5, UnitItems: 2}
}

// NewTaskPatternGenerator returns the task-level generator: 4 tasks per group, the
// task id itself as its only sub-id.
func NewTaskPatternGenerator() PatternGenerator {
	return PatternGenerator{GroupStride: 4, UnitFanout: 1, GroupItems: 5, UnitItems: 2}
}

// Pattern returns the items required by id, sorted and free of duplicates.
// Pure: the same id always yields the same content.
func (g PatternGenerator) Pattern(id int) []string {
	if g.GroupStride <= 0 {
		panic(fmt.Sprintf("PatternGenerator: GroupStride must be > 0, got %d", g.GroupStride))
	}
	items := make([]string, 0, g.Size())
	group := id / g.GroupStride
	for i := 0; i < g.GroupItems; i++ {
		items = append(items, GroupItem(group, i))
	}
	for k := 0; k < g.UnitFanout; k++ {
		sub := g.UnitFanout*id + k
		for i := 0; i < g.UnitItems; i++ {
			items = append(items, UnitItem(sub, i))
		}
	}
	items = append(items, GlobalItem)
	sort.Strings(items)
	return items
}

// Size returns the number of items every pattern from g contains.
func (g PatternGenerator) Size() int {
	return g.GroupItems + g.UnitFanout*g.UnitItems + 1
}

// GroupItem names the i-th shared item of a group.
func GroupItem(group, i int) string {
	return fmt.Sprintf("group:%d:item:%d", group, i)
}

// UnitItem names the i-th item of a sub-identifier.
func UnitItem(sub, i int) string {
	return fmt.Sprintf("unit:%d:item:%d", sub, i)
}
