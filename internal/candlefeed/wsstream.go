package candlefeed

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/web3guy0/cryptobot/internal/types"
)

// WSStream describes the live websocket candle stream at its interface
// only, per spec §1 ("live websocket streams" are deliberately out of
// scope, described only at their interfaces). It never dials in the
// backtest/optimizer paths; a real deployment supplies a *websocket.Conn
// obtained by its own connection-management code. Grounded on the
// shape of feeds/polymarket_ws.go's connect/read-loop without its
// Polymarket-specific message parsing.
type WSStream struct {
	conn *websocket.Conn
	out  chan types.Candle
}

// NewWSStream wraps an already-dialed connection. The core never
// constructs the dial itself.
func NewWSStream(conn *websocket.Conn) *WSStream {
	return &WSStream{conn: conn, out: make(chan types.Candle, 64)}
}

// Candles returns the channel live candles would be published on.
func (s *WSStream) Candles() <-chan types.Candle { return s.out }

// Run reads frames until ctx is cancelled or the connection closes.
// Left unimplemented beyond the read loop shape: decoding the wire
// format is exchange-specific and out of the core's scope.
func (s *WSStream) Run(ctx context.Context, decode func([]byte) (types.Candle, error)) error {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		candle, err := decode(payload)
		if err != nil {
			continue
		}
		select {
		case s.out <- candle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
