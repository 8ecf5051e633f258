package performance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// Thresholds carries the risk/exposure ceiling invariant 4 (§4.H)
// checks against. The trade log's column schema (§6) is fixed and
// carries neither stop_loss nor risk_per_trade_pct, so only the
// exposure half of invariant 4 is derivable from the log alone; the
// risk-per-trade half is enforced at decision time by risk.Engine and
// guarded again at submission time by safety.Monitor instead. A zero
// Thresholds (the default when CheckInvariants is called with none)
// disables the exposure check.
type Thresholds struct {
	MaxExposurePct decimal.Decimal
}

type openPosition struct {
	entryPrice decimal.Decimal
	quantity   decimal.Decimal
}

// CheckInvariants verifies the universal invariants from spec §8.
// Any failure is InvariantViolation{which} — always a bug, never
// silently swallowed (§7). thresholds is optional; when supplied, the
// exposure ceiling (invariant 4) is checked on every row.
func CheckInvariants(rows []types.TradeLogRow, thresholds ...Thresholds) error {
	if len(rows) == 0 {
		return types.InvariantViolation("empty_log", "trade log has no rows")
	}
	if rows[0].Action != types.ActionInit {
		return types.InvariantViolation("first_row_init", "first row is not INIT")
	}
	var th Thresholds
	if len(thresholds) > 0 {
		th = thresholds[0]
	}

	openSymbols := make(map[string]bool)
	openPositions := make(map[string]openPosition)
	balance := rows[0].BalanceAfter

	for i, row := range rows {
		if i == 0 {
			continue
		}

		if (row.Symbol == "") != (row.Action == types.ActionInit) {
			return types.InvariantViolation("symbol_empty_iff_init", fmt.Sprintf("row %d violates symbol/action pairing", i))
		}
		if row.Symbol == types.UnknownSymbol {
			return types.InvariantViolation("symbol_unknown", fmt.Sprintf("row %d has UNKNOWN symbol", i))
		}
		if row.OpenPositionsAfter < 0 {
			return types.InvariantViolation("open_positions_negative", fmt.Sprintf("row %d has negative open_positions_after", i))
		}

		switch row.Action {
		case types.ActionOpen:
			if openSymbols[row.Symbol] {
				return types.InvariantViolation("duplicate_open", fmt.Sprintf("row %d: duplicate OPEN for %s without intervening CLOSE", i, row.Symbol))
			}
			openSymbols[row.Symbol] = true
			openPositions[row.Symbol] = openPosition{entryPrice: row.EntryPrice, quantity: row.Quantity}
			if !row.BalanceAfter.Equal(balance) {
				return types.InvariantViolation("open_balance_unchanged", fmt.Sprintf("row %d: OPEN must leave balance unchanged", i))
			}
		case types.ActionClose:
			if !openSymbols[row.Symbol] {
				return types.InvariantViolation("close_without_open", fmt.Sprintf("row %d: CLOSE for %s has no prior matching OPEN", i, row.Symbol))
			}
			delete(openSymbols, row.Symbol)
			delete(openPositions, row.Symbol)
			expected := balance.Add(row.RealizedPnL).Sub(row.Commission).Sub(row.Slippage).Round(2)
			if row.BalanceAfter.Sub(expected).Abs().GreaterThan(eps) {
				return types.InvariantViolation("apply_trade_result", fmt.Sprintf("row %d: balance_after does not match apply_trade_result", i))
			}
			balance = row.BalanceAfter
		}

		if row.Action == types.ActionOpen || row.Action == types.ActionClose {
			if row.OpenPositionsAfter != len(openSymbols) {
				return types.InvariantViolation("open_positions_count_mismatch", fmt.Sprintf("row %d: open_positions_after=%d but %d positions tracked open", i, row.OpenPositionsAfter, len(openSymbols)))
			}
			// Invariant 2 (§8): equity_after = balance_after + Σ
			// unrealized_pnl(positions_open_at_r). A just-opened
			// position has zero unrealized pnl (current = fill =
			// entry) and a closed position contributes none, so the
			// instant every still-open position's slice of that sum is
			// provably zero — i.e. no positions are open — equity_after
			// must equal balance_after exactly. Non-flat intermediate
			// rows need live per-position current price the fixed CSV
			// schema doesn't carry, so they aren't checked here.
			if len(openPositions) == 0 && row.EquityAfter.Sub(row.BalanceAfter).Abs().GreaterThan(eps) {
				return types.InvariantViolation("equity_balance_mismatch_when_flat", fmt.Sprintf("row %d: equity_after must equal balance_after with no open positions", i))
			}
		}

		if !th.MaxExposurePct.IsZero() {
			var exposure decimal.Decimal
			for _, p := range openPositions {
				exposure = exposure.Add(p.quantity.Mul(p.entryPrice))
			}
			limit := th.MaxExposurePct.Mul(row.EquityAfter).Add(eps)
			if exposure.GreaterThan(limit) {
				return types.InvariantViolation("exposure_ceiling", fmt.Sprintf("row %d: entry-price exposure %s exceeds max_exposure_pct ceiling %s", i, exposure, limit))
			}
		}
	}

	if err := checkAccountingTotal(rows); err != nil {
		return err
	}
	return nil
}

// checkAccountingTotal verifies invariant 1 from §4.H: final_balance
// ~= starting_balance + sum(realized_pnl) - sum(commission) - sum(slippage).
func checkAccountingTotal(rows []types.TradeLogRow) error {
	starting := rows[0].BalanceAfter
	final := rows[len(rows)-1].BalanceAfter

	var sumPnL, sumCommission, sumSlippage decimal.Decimal
	for _, row := range rows {
		if row.Action != types.ActionClose {
			continue
		}
		sumPnL = sumPnL.Add(row.RealizedPnL)
		sumCommission = sumCommission.Add(row.Commission)
		sumSlippage = sumSlippage.Add(row.Slippage)
	}

	expected := starting.Add(sumPnL).Sub(sumCommission).Sub(sumSlippage)
	if final.Sub(expected).Abs().GreaterThan(eps) {
		return types.InvariantViolation("accounting_total", "final balance does not reconcile with starting balance plus realized pnl minus costs")
	}
	return nil
}
