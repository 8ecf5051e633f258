package accounting

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// Submit applies slippage and commission, opens or closes a position,
// and appends the corresponding trade-log row. Accounting state changes
// are atomic with the log write: if the row cannot be appended, the
// state change is rolled back (§4.B). now is the event timestamp driving
// this submission (the candle's timestamp in a backtest) rather than
// wall-clock time, so trade logs replay byte-identically (§4.G).
func (l *Ledger) Submit(order *types.OrderRequest, currentPrice decimal.Decimal, now time.Time) (types.ExecutionResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if order.Symbol == "" || order.Symbol == types.UnknownSymbol {
		return types.Rejected(types.KindInvalidInput, "invalid symbol"), types.InvalidInput("Ledger.Submit", "invalid symbol")
	}

	sideSign := decimal.NewFromInt(int64(order.Side.Sign()))
	fillPrice := currentPrice.Mul(decimal.NewFromInt(1).Add(sideSign.Mul(l.cfg.SlippageRate)))
	fillValue := order.Quantity.Mul(fillPrice)
	commission := fillValue.Mul(l.cfg.CommissionRate)

	existing, hasPosition := l.positions[order.Symbol]

	switch {
	case !hasPosition:
		return l.openPosition(order, fillPrice, fillValue, commission, now)
	case existing.Side.Sign() != order.Side.Sign():
		return l.closePosition(order, existing, fillPrice, fillValue, commission, now)
	default:
		return types.Rejected(types.KindInvalidInput, "duplicate position"), types.InvalidInput("Ledger.Submit", "DuplicatePosition")
	}
}

func (l *Ledger) openPosition(order *types.OrderRequest, fillPrice, fillValue, commission decimal.Decimal, now time.Time) (types.ExecutionResult, error) {
	if order.Side.IsShort() && !l.cfg.AllowShorting {
		return types.Rejected(types.KindInvalidInput, "shorting disabled"), types.InvalidInput("Ledger.openPosition", "ShortingDisabled")
	}
	if order.Side.IsLong() && fillValue.GreaterThan(l.balance) {
		return types.Rejected(types.KindInsufficientBalance, "insufficient balance to open"), types.InsufficientBalance("Ledger.openPosition", "fill value exceeds balance")
	}

	pos := &types.Position{
		Symbol:          order.Symbol,
		Side:            order.Side,
		Quantity:        order.Quantity,
		EntryPrice:      fillPrice,
		EntryCommission: commission,
		CurrentPrice:    fillPrice,
		StopLoss:        order.StopLoss,
		TakeProfit:      order.TakeProfit,
		HighestPrice:    fillPrice,
		OpenedAt:        now,
	}

	row := types.TradeLogRow{
		Timestamp:          now,
		SessionStart:       l.sessionStart,
		OrderID:            order.ClientOrderID,
		Symbol:             order.Symbol,
		Action:             types.ActionOpen,
		Side:               order.Side,
		Quantity:           order.Quantity,
		EntryPrice:         fillPrice,
		FillPrice:          fillPrice,
		FillValue:          fillValue,
		Commission:         commission,
		BalanceAfter:       l.balance,
		EquityAfter:        l.equityLockedWith(order.Symbol, pos),
		OpenPositionsAfter: len(l.positions) + 1,
	}

	prevBalance := l.balance
	l.positions[order.Symbol] = pos
	if err := l.appendRow(row); err != nil {
		delete(l.positions, order.Symbol)
		l.balance = prevBalance
		return types.ExecutionResult{}, err
	}
	l.updatePeak(row.EquityAfter)

	fill := &types.OrderFill{
		OrderID: order.ClientOrderID, Symbol: order.Symbol, Side: order.Side,
		Quantity: order.Quantity, FillPrice: fillPrice, FillValue: fillValue,
		Commission: commission, Timestamp: now,
	}
	return types.Accepted(fill), nil
}

func (l *Ledger) closePosition(order *types.OrderRequest, pos *types.Position, fillPrice, fillValue, _ decimal.Decimal, now time.Time) (types.ExecutionResult, error) {
	diff := fillPrice.Sub(pos.EntryPrice)
	if pos.Side.IsShort() {
		diff = diff.Neg()
	}
	realizedPnL := diff.Mul(pos.Quantity)

	// The commission charged at close is the entry commission recorded
	// when the position was opened (apply_trade_result charges it once,
	// at close, never debiting the balance on open itself).
	commission := pos.EntryCommission

	prevBalance := l.balance
	newBalance := applyTradeResult(l.balance, realizedPnL, commission, decimal.Zero)

	entryValue := pos.EntryPrice.Mul(pos.Quantity)
	var pnlPct decimal.Decimal
	if !entryValue.IsZero() {
		pnlPct = realizedPnL.Div(entryValue).Mul(decimal.NewFromInt(100))
	}

	delete(l.positions, order.Symbol)
	l.balance = newBalance

	row := types.TradeLogRow{
		Timestamp:          now,
		SessionStart:       l.sessionStart,
		OrderID:            order.ClientOrderID,
		Symbol:             order.Symbol,
		Action:             types.ActionClose,
		Side:               order.Side,
		Quantity:           pos.Quantity,
		EntryPrice:         pos.EntryPrice,
		FillPrice:          fillPrice,
		FillValue:          fillValue,
		Commission:         commission,
		RealizedPnL:        realizedPnL,
		PnLPct:             pnlPct,
		BalanceAfter:       newBalance,
		EquityAfter:        l.equityLocked(),
		OpenPositionsAfter: len(l.positions),
	}

	if err := l.appendRow(row); err != nil {
		l.positions[order.Symbol] = pos
		l.balance = prevBalance
		return types.ExecutionResult{}, err
	}
	l.updatePeak(row.EquityAfter)

	l.totalTrades++
	if realizedPnL.IsPositive() {
		l.wins++
	} else if realizedPnL.IsNegative() {
		l.losses++
	}

	fill := &types.OrderFill{
		OrderID: order.ClientOrderID, Symbol: order.Symbol, Side: order.Side,
		Quantity: pos.Quantity, FillPrice: fillPrice, FillValue: fillValue,
		Commission: commission, Timestamp: now,
	}
	return types.Accepted(fill), nil
}

// equityLockedWith computes equity as if pos were already inserted,
// used when the position hasn't been added to l.positions yet.
func (l *Ledger) equityLockedWith(symbol string, pos *types.Position) decimal.Decimal {
	eq := l.balance
	for sym, p := range l.positions {
		if sym == symbol {
			continue
		}
		eq = eq.Add(p.UnrealizedPnL())
	}
	eq = eq.Add(pos.UnrealizedPnL())
	return eq
}

// UpdatePrices sets current_price on every open position and, when
// trailing is enabled, tightens LONG stops. Trailing never loosens a
// stop and never applies to SHORT (§4.B, §9).
func (l *Ledger) UpdatePrices(prices map[string]decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for symbol, pos := range l.positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		pos.CurrentPrice = price
		if l.cfg.TrailingStop.Enabled && pos.Side.IsLong() {
			if price.GreaterThan(pos.HighestPrice) {
				pos.HighestPrice = price
			}
			candidate := pos.HighestPrice.Mul(decimal.NewFromInt(1).Sub(l.cfg.TrailingStop.Pct))
			if candidate.GreaterThan(pos.StopLoss) {
				pos.StopLoss = candidate
			}
		}
	}
	l.updatePeak(l.equityLocked())
}

// CheckExits returns symbols whose current price touched stop_loss or
// take_profit. The caller issues the corresponding close orders.
func (l *Ledger) CheckExits(prices map[string]decimal.Decimal) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var hits []string
	for symbol, pos := range l.positions {
		price, ok := prices[symbol]
		if !ok {
			price = pos.CurrentPrice
		}
		if pos.Side.IsLong() {
			if !pos.StopLoss.IsZero() && price.LessThanOrEqual(pos.StopLoss) {
				hits = append(hits, symbol)
				continue
			}
			if !pos.TakeProfit.IsZero() && price.GreaterThanOrEqual(pos.TakeProfit) {
				hits = append(hits, symbol)
			}
		} else {
			if !pos.StopLoss.IsZero() && price.GreaterThanOrEqual(pos.StopLoss) {
				hits = append(hits, symbol)
				continue
			}
			if !pos.TakeProfit.IsZero() && price.LessThanOrEqual(pos.TakeProfit) {
				hits = append(hits, symbol)
			}
		}
	}
	return hits
}

// PriceProvider resolves a last-known price for flatten_all. It may
// error, in which case the position's current_price is used as fallback.
type PriceProvider func(symbol string) (decimal.Decimal, error)

// FlattenAll closes every open position, logging each close with an
// order_id prefixed "FLATTEN_". now stamps the flatten rows (the final
// event timestamp in a backtest).
func (l *Ledger) FlattenAll(provider PriceProvider, now time.Time) error {
	l.mu.Lock()
	symbols := make([]string, 0, len(l.positions))
	for s := range l.positions {
		symbols = append(symbols, s)
	}
	l.mu.Unlock()

	for _, symbol := range symbols {
		l.mu.Lock()
		pos, ok := l.positions[symbol]
		if !ok {
			l.mu.Unlock()
			continue
		}
		price := pos.CurrentPrice
		if provider != nil {
			if p, err := provider(symbol); err == nil {
				price = p
			} else {
				log.Warn().Err(err).Str("symbol", symbol).Msg("flatten price provider failed, using last known price")
			}
		}
		order := &types.OrderRequest{
			Symbol:        symbol,
			Side:          pos.Side.Opposite(),
			Kind:          types.OrderMarket,
			Quantity:      pos.Quantity,
			ClientOrderID: "FLATTEN_" + symbol,
		}
		l.mu.Unlock()

		if _, err := l.Submit(order, price, now); err != nil {
			return err
		}
	}
	return nil
}
