package execution

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// paperVenue routes straight into the accounting ledger.
type paperVenue struct {
	ledger Ledger
}

func (v *paperVenue) Submit(order *types.OrderRequest, currentPrice decimal.Decimal, now time.Time) (types.ExecutionResult, error) {
	return v.ledger.Submit(order, currentPrice, now)
}

// dryRunVenue logs what it would have done but mutates no real books.
// Grounded on executor.go's executeLive retry/ack shape, minus the
// network call and minus any book mutation. Live == DryRun per §9.
type dryRunVenue struct{}

func (v *dryRunVenue) Submit(order *types.OrderRequest, currentPrice decimal.Decimal, now time.Time) (types.ExecutionResult, error) {
	log.Info().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("qty", order.Quantity.String()).
		Str("price", currentPrice.String()).
		Msg("dry-run: order would have been submitted")

	fill := &types.OrderFill{
		OrderID:   order.ClientOrderID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		FillPrice: currentPrice,
		FillValue: order.Quantity.Mul(currentPrice),
		Timestamp: now,
	}
	return types.Accepted(fill), nil
}
