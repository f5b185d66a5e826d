package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// meterTick is the decay period of the moving averages.
const meterTick = 5 * time.Second

// Decay factors of the one, five and fifteen minute averages for meterTick.
var meterAlphas = [3]float64{
	1 - math.Exp(-5.0/60.0),
	1 - math.Exp(-5.0/300.0),
	1 - math.Exp(-5.0/900.0),
}

// Meter counts events and tracks their rate per second as exponentially
// weighted moving averages over one, five and fifteen minutes.
type Meter struct {
	name  string
	count atomic.Int64
	now   func() time.Time

	mu       sync.Mutex
	start    time.Time
	lastTick time.Time
	pending  int64
	rates    [3]float64
	primed   bool
}

// MeterRates is a snapshot of a Meter.
type MeterRates struct {
	Count   int64
	One     float64
	Five    float64
	Fifteen float64
	Mean    float64
}

// NewMeter creates a named meter.
func NewMeter(name string) *Meter {
	return newMeter(name, time.Now)
}

func newMeter(name string, now func() time.Time) *Meter {
	t := now()
	return &Meter{name: name, now: now, start: t, lastTick: t}
}

// Mark records n events.
func (m *Meter) Mark(n int64) {
	m.count.Add(n)
	m.mu.Lock()
	m.tickLocked(m.now())
	m.pending += n
	m.mu.Unlock()
}

// tickLocked folds pending events into the averages once per elapsed
// meterTick.
func (m *Meter) tickLocked(now time.Time) {
	for now.Sub(m.lastTick) >= meterTick {
		instant := float64(m.pending) / meterTick.Seconds()
		m.pending = 0
		for i, alpha := range meterAlphas {
			if m.primed {
				m.rates[i] += alpha * (instant - m.rates[i])
			} else {
				m.rates[i] = instant
			}
		}
		m.primed = true
		m.lastTick = m.lastTick.Add(meterTick)
	}
}

// Count returns the number of events recorded.
func (m *Meter) Count() int64 { return m.count.Load() }

// Rate1 returns the one minute rate per second.
func (m *Meter) Rate1() float64 { return m.Rates().One }

// Rates returns the current count and rates.
func (m *Meter) Rates() MeterRates {
	m.mu.Lock()
	now := m.now()
	m.tickLocked(now)
	r := MeterRates{
		Count:   m.count.Load(),
		One:     m.rates[0],
		Five:    m.rates[1],
		Fifteen: m.rates[2],
	}
	elapsed := now.Sub(m.start).Seconds()
	m.mu.Unlock()
	if elapsed > 0 {
		r.Mean = float64(r.Count) / elapsed
	}
	return r
}

// Name returns the meter name.
func (m *Meter) Name() string { return m.name }
