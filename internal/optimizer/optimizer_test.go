package optimizer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCartesianProductEnumeratesAllCombinations(t *testing.T) {
	grid := Grid{
		"fast_period": {3, 6},
		"slow_period": {8, 12},
	}
	combos := cartesianProduct(grid)
	require.Len(t, combos, 4)

	seen := make(map[string]bool)
	for _, c := range combos {
		key := intKey(c["fast_period"]) + "_" + intKey(c["slow_period"])
		seen[key] = true
	}
	require.Len(t, seen, 4)
}

func TestCartesianProductSingleParam(t *testing.T) {
	grid := Grid{"rsi_period": {10, 14, 21}}
	combos := cartesianProduct(grid)
	require.Len(t, combos, 3)
}

func intKey(v interface{}) string {
	return fmt.Sprintf("%v", v)
}
