package simulation

import (
	"github.com/rs/xid"

	"github.com/chiplab/busfabric/monitoring"
	"github.com/chiplab/busfabric/timing"
	"github.com/chiplab/busfabric/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn    bool
	monitorPort  int
	sqliteTrace  string
	csvTrace     string
	traceEnabled bool
}

// MakeBuilder creates a builder with monitoring and tracing off.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMonitoring enables the monitoring server on the given port; pass 0
// for a random port.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port
	return b
}

// WithSQLiteTrace enables bus tracing into a SQLite database at path.
func (b Builder) WithSQLiteTrace(path string) Builder {
	b.traceEnabled = true
	b.sqliteTrace = path
	return b
}

// WithCSVTrace enables bus tracing into a CSV file at path. SQLite tracing
// takes precedence when both are set.
func (b Builder) WithCSVTrace(path string) Builder {
	b.traceEnabled = true
	b.csvTrace = path
	return b
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	s := &Simulation{
		id:            xid.New().String(),
		engine:        timing.NewSerialEngine(),
		compNameIndex: make(map[string]int),
	}
	s.clock = timing.NewClock(s.engine)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.StartServer()
	}

	if b.traceEnabled {
		s.traceWriter = b.buildTraceWriter()
		s.traceWriter.Init()
		s.busTracer = tracing.NewBusTracer(s.traceWriter)
	}

	return s
}

func (b Builder) buildTraceWriter() tracing.TraceWriter {
	if b.sqliteTrace != "" || b.csvTrace == "" {
		return tracing.NewSQLiteTraceWriter(b.sqliteTrace)
	}

	return tracing.NewCSVTraceWriter(b.csvTrace)
}
