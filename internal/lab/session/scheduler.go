package session

import "time"

// TickSource starts a periodic tick channel and returns a stop function.
// Ticks that the receiver is too busy to take are dropped, never queued.
type TickSource func(d time.Duration) (<-chan time.Time, func())

// TickerSource is the production TickSource, backed by time.Ticker.
func TickerSource(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
