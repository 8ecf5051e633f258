package optimizer

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/web3guy0/cryptobot/internal/types"
)

// WriteRankedCSV emits the ranked optimizer results table (§4.I step 3).
func WriteRankedCSV(path string, results []RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return types.IOFailure("optimizer.WriteRankedCSV", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	paramKeys := map[string]bool{}
	for _, r := range results {
		for k := range r.Params {
			paramKeys[k] = true
		}
	}
	keys := make([]string, 0, len(paramKeys))
	for k := range paramKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	header := append([]string{"rank", "total_return_pct", "max_drawdown_pct", "score", "error"}, keys...)
	if err := w.Write(header); err != nil {
		return types.IOFailure("optimizer.WriteRankedCSV", err)
	}

	for i, r := range results {
		row := []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.4f", r.TotalReturnPct),
			fmt.Sprintf("%.4f", r.MaxDrawdownPct),
			fmt.Sprintf("%.4f", r.Score),
			r.Err,
		}
		for _, k := range keys {
			row = append(row, fmt.Sprintf("%v", r.Params[k]))
		}
		if err := w.Write(row); err != nil {
			return types.IOFailure("optimizer.WriteRankedCSV", err)
		}
	}
	return w.Error()
}
