// Package simulation assembles an engine, a clock domain, and the optional
// observation surfaces (monitoring, tracing) into one runnable simulation.
package simulation

import (
	"github.com/chiplab/busfabric/fabric"
	"github.com/chiplab/busfabric/monitoring"
	"github.com/chiplab/busfabric/timing"
	"github.com/chiplab/busfabric/tracing"
)

// Simulation owns the simulation-wide singletons: the event engine, the
// clock domain, the component registry, and the optional monitor and trace
// writer.
type Simulation struct {
	id     string
	engine *timing.SerialEngine
	clock  *timing.Clock

	monitor     *monitoring.Monitor
	traceWriter tracing.TraceWriter
	busTracer   *tracing.BusTracer

	components    []monitoring.Named
	compNameIndex map[string]int
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the event engine.
func (s *Simulation) Engine() *timing.SerialEngine {
	return s.engine
}

// Clock returns the clock domain that drives the registered devices.
func (s *Simulation) Clock() *timing.Clock {
	return s.clock
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// RegisterComponent adds a named component to the registry and, when
// monitoring is on, to the monitor.
func (s *Simulation) RegisterComponent(c monitoring.Named) {
	name := c.Name()
	if _, exists := s.compNameIndex[name]; exists {
		panic("component " + name + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[name] = len(s.components) - 1

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// RegisterFabric registers a crossbar as a component and attaches the bus
// tracer to it when tracing is enabled.
func (s *Simulation) RegisterFabric(x *fabric.Crossbar) {
	s.RegisterComponent(x)

	if s.busTracer != nil {
		x.AcceptHook(s.busTracer)
	}
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) monitoring.Named {
	return s.components[s.compNameIndex[name]]
}

// Run starts the clock for the given number of cycles and processes events
// until none remain.
func (s *Simulation) Run(maxCycles timing.VTimeInCycle) error {
	s.clock.Start(maxCycles)
	return s.engine.Run()
}

// Terminate flushes trace data and stops the monitoring server.
func (s *Simulation) Terminate() {
	if s.traceWriter != nil {
		s.traceWriter.Flush()
		if closer, ok := s.traceWriter.(interface{ Close() }); ok {
			closer.Close()
		}
	}

	if s.monitor != nil {
		s.monitor.StopServer()
	}
}
