package lifecycle

import "time"

// Ticker delivers poll ticks
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock supplies time and tickers to the controller.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
