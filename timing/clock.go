package timing

import "fmt"

// Clocked is a device driven by a single synchronous clock. Eval drives the
// device's output levels for the current cycle from registered state and
// already-driven inputs; Sync commits registered state at the clock edge.
//
// Within one cycle, a Clock calls Eval on every device in registration
// order, then Sync on every device. Registration order must therefore follow
// signal dependency order: a device that combinationally consumes another
// device's outputs registers after it.
type Clocked interface {
	Eval()
	Sync()
}

// CycleEvent triggers one full evaluation of a clock domain.
type CycleEvent struct {
	Cycle VTimeInCycle
}

// Clock re-evaluates a set of Clocked devices every cycle, modeling a fully
// synchronous single-clock domain. There is no blocking anywhere in the
// model; backpressure between devices is expressed as level signals
// recomputed each Eval.
type Clock struct {
	scheduler EventScheduler
	devices   []Clocked

	cyclesLeft VTimeInCycle
	stopCond   func() bool
	running    bool
}

var _ Handler = (*Clock)(nil)

// NewClock creates a Clock that schedules itself on the given scheduler.
func NewClock(scheduler EventScheduler) *Clock {
	return &Clock{scheduler: scheduler}
}

// Connect appends devices to the evaluation order.
func (c *Clock) Connect(devices ...Clocked) {
	if c.running {
		panic("timing: cannot connect devices while the clock is running")
	}
	c.devices = append(c.devices, devices...)
}

// SetStopCondition installs a predicate checked after every cycle. When it
// returns true the clock stops scheduling further cycles.
func (c *Clock) SetStopCondition(cond func() bool) {
	c.stopCond = cond
}

// Start schedules the first cycle. The clock runs for at most maxCycles
// cycles, or until the stop condition fires.
func (c *Clock) Start(maxCycles VTimeInCycle) {
	if c.running {
		panic("timing: clock already started")
	}
	if maxCycles == 0 {
		return
	}

	c.running = true
	c.cyclesLeft = maxCycles
	c.scheduleNext(c.scheduler.CurrentTime())
}

// Handle runs one cycle: all Evals in order, then all Syncs.
func (c *Clock) Handle(event any) error {
	evt, ok := event.(*CycleEvent)
	if !ok {
		return fmt.Errorf("timing: clock cannot handle event type %T", event)
	}

	for _, d := range c.devices {
		d.Eval()
	}
	for _, d := range c.devices {
		d.Sync()
	}

	c.cyclesLeft--
	if c.cyclesLeft == 0 || (c.stopCond != nil && c.stopCond()) {
		c.running = false
		return nil
	}

	c.scheduleNext(evt.Cycle + 1)
	return nil
}

func (c *Clock) scheduleNext(cycle VTimeInCycle) {
	c.scheduler.Schedule(ScheduledEvent{
		Event:   &CycleEvent{Cycle: cycle},
		Time:    cycle,
		Handler: c,
	})
}
