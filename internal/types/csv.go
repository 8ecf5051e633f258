package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const timeLayout = time.RFC3339Nano

// Row renders the row in the exact CSV column order, with fixed decimal
// precision: 8 places for quantity, 4 for prices, 2 for currency.
func (r TradeLogRow) Row() []string {
	return []string{
		r.Timestamp.UTC().Format(timeLayout),
		r.SessionStart.UTC().Format(timeLayout),
		r.OrderID,
		r.Symbol,
		string(r.Action),
		string(r.Side),
		r.Quantity.StringFixed(8),
		r.EntryPrice.StringFixed(4),
		r.FillPrice.StringFixed(4),
		r.FillValue.StringFixed(2),
		r.Commission.StringFixed(2),
		r.Slippage.StringFixed(2),
		r.RealizedPnL.StringFixed(2),
		r.PnLPct.StringFixed(4),
		r.BalanceAfter.StringFixed(2),
		r.EquityAfter.StringFixed(2),
		strconv.Itoa(r.OpenPositionsAfter),
	}
}

// ParseRow is the inverse of Row, used by the performance analyzer and
// round-trip tests.
func ParseRow(fields []string) (TradeLogRow, error) {
	if len(fields) != len(CSVHeader) {
		return TradeLogRow{}, IOFailure("ParseRow", fmt.Errorf("expected %d columns, got %d", len(CSVHeader), len(fields)))
	}
	ts, err := time.Parse(timeLayout, fields[0])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.timestamp", err)
	}
	sessionStart, err := time.Parse(timeLayout, fields[1])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.session_start", err)
	}
	dec := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	qty, err := dec(fields[6])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.quantity", err)
	}
	entry, err := dec(fields[7])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.entry_price", err)
	}
	fillPrice, err := dec(fields[8])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.fill_price", err)
	}
	fillValue, err := dec(fields[9])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.fill_value", err)
	}
	commission, err := dec(fields[10])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.commission", err)
	}
	slippage, err := dec(fields[11])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.slippage", err)
	}
	realizedPnL, err := dec(fields[12])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.realized_pnl", err)
	}
	pnlPct, err := dec(fields[13])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.pnl_pct", err)
	}
	balance, err := dec(fields[14])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.balance", err)
	}
	equity, err := dec(fields[15])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.equity", err)
	}
	openPositions, err := strconv.Atoi(fields[16])
	if err != nil {
		return TradeLogRow{}, IOFailure("ParseRow.open_positions", err)
	}
	return TradeLogRow{
		Timestamp:          ts,
		SessionStart:       sessionStart,
		OrderID:            fields[2],
		Symbol:             fields[3],
		Action:             TradeAction(fields[4]),
		Side:               Side(fields[5]),
		Quantity:           qty,
		EntryPrice:         entry,
		FillPrice:          fillPrice,
		FillValue:          fillValue,
		Commission:         commission,
		Slippage:           slippage,
		RealizedPnL:        realizedPnL,
		PnLPct:             pnlPct,
		BalanceAfter:       balance,
		EquityAfter:        equity,
		OpenPositionsAfter: openPositions,
	}, nil
}
