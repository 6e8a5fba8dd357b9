package hierarchy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

func task(id, parentID string) *types.Task {
	return &types.Task{ID: id, ParentID: parentID}
}

func orderOf(t *testing.T, tasks []*types.Task) []string {
	t.Helper()
	ordered, err := Order(tasks)
	require.NoError(t, err)
	ids := make([]string, len(ordered))
	for i, tk := range ordered {
		ids[i] = tk.ID
	}
	return ids
}

func TestOrder_ParentsBeforeChildren(t *testing.T) {
	ids := orderOf(t, []*types.Task{
		task("30", "20"),
		task("20", "10"),
		task("10", ""),
	})
	assert.Equal(t, []string{"10", "20", "30"}, ids)
}

func TestOrder_SiblingsAscendingBySourceID(t *testing.T) {
	ids := orderOf(t, []*types.Task{
		task("c", "p"),
		task("a", "p"),
		task("p", ""),
		task("b", "p"),
	})
	assert.Equal(t, []string{"p", "a", "b", "c"}, ids)
}

func TestOrder_IsDeterministic(t *testing.T) {
	tasks := []*types.Task{
		task("e", "b"), task("d", "a"), task("c", ""),
		task("b", ""), task("a", "c"),
	}
	first := orderOf(t, tasks)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, orderOf(t, tasks))
	}
}

func TestOrder_OutOfScopeParentIsRoot(t *testing.T) {
	// "x" is not part of the work set; its child must still be ordered.
	ids := orderOf(t, []*types.Task{
		task("b", "x"),
		task("a", "b"),
	})
	assert.Equal(t, []string{"b", "a"}, ids)
}

func TestOrder_CycleDetected(t *testing.T) {
	_, err := Order([]*types.Task{
		task("A", "B"),
		task("B", "A"),
	})
	require.Error(t, err)

	var cycleErr *types.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.ElementsMatch(t, []string{"A", "B"}, cycleErr.Chain)
}

func TestOrder_SelfParentCycle(t *testing.T) {
	_, err := Order([]*types.Task{task("A", "A")})
	var cycleErr *types.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"A"}, cycleErr.Chain)
}

func TestEdges_SkipsOutOfScopeParents(t *testing.T) {
	edges := Edges([]*types.Task{
		task("a", ""),
		task("b", "a"),
		task("c", "zz"),
	})
	assert.Equal(t, []Edge{{ParentSourceID: "a", ChildSourceID: "b"}}, edges)
}
