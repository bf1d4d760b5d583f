package ide

import (
	"errors"
	"slices"
	"time"
)

// DefaultBaseInterval is the auto-step cadence at speed multiplier 1.
const DefaultBaseInterval = 500 * time.Millisecond

// SpeedMultipliers are the selectable execution speeds. The cadence at
// multiplier n is the base interval divided by n.
var SpeedMultipliers = []int{1, 2, 5, 10}

// ErrInvalidSpeed is returned when a speed multiplier is not one of
// SpeedMultipliers.
var ErrInvalidSpeed = errors.New("ide: speed multiplier not in the option set")

// SteppingConfig is a session's stepping view.
type SteppingConfig struct {
	// SpeedMultiplier divides the base interval.
	SpeedMultiplier int
	// Active reports whether auto-stepping is running.
	Active bool
}

// SteppingController turns a speed multiplier into a step cadence and
// owns the auto-step timer. The tick callback runs on a timer
// goroutine and must do its own serialization. A nil tick skips the
// timer entirely, for sessions whose stepping runs elsewhere. The
// controller itself is not safe for concurrent use; Session serializes
// access to it.
type SteppingController struct {
	base   time.Duration
	speed  int
	active bool
	tick   func()
	stop   chan struct{}
}

// NewSteppingController returns an inactive controller at speed 1. A
// base of zero or less selects DefaultBaseInterval.
func NewSteppingController(base time.Duration, tick func()) *SteppingController {
	if base <= 0 {
		base = DefaultBaseInterval
	}
	return &SteppingController{base: base, speed: 1, tick: tick}
}

// Config returns the current stepping view.
func (sc *SteppingController) Config() SteppingConfig {
	return SteppingConfig{SpeedMultiplier: sc.speed, Active: sc.active}
}

// Interval is the step cadence at the current speed.
func (sc *SteppingController) Interval() time.Duration {
	return sc.base / time.Duration(sc.speed)
}

// SetSpeed selects a new multiplier. A running timer is restarted so
// the new cadence takes effect immediately.
func (sc *SteppingController) SetSpeed(multiplier int) error {
	if !slices.Contains(SpeedMultipliers, multiplier) {
		return ErrInvalidSpeed
	}
	sc.speed = multiplier
	if sc.active && sc.tick != nil {
		sc.restart()
	}
	return nil
}

// Start activates auto-stepping. Starting an active controller changes
// nothing.
func (sc *SteppingController) Start() {
	if sc.active {
		return
	}
	sc.active = true
	if sc.tick != nil {
		sc.restart()
	}
}

// Stop deactivates auto-stepping and releases the timer goroutine.
// Stopping an inactive controller changes nothing.
func (sc *SteppingController) Stop() {
	sc.active = false
	if sc.stop != nil {
		close(sc.stop)
		sc.stop = nil
	}
}

func (sc *SteppingController) restart() {
	if sc.stop != nil {
		close(sc.stop)
	}
	stop := make(chan struct{})
	sc.stop = stop
	interval := sc.Interval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sc.tick()
			}
		}
	}()
}
