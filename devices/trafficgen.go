package devices

import (
	"fmt"

	"github.com/chiplab/busfabric/fabric"
	"github.com/chiplab/busfabric/timing"
)

// An Access is one scripted bus transaction.
type Access struct {
	Write bool
	Addr  uint32
	Sel   uint8
	WData uint32
}

// A Result records the completion of one scripted access.
type Result struct {
	RData         uint32
	Err           bool
	IssueCycle    timing.VTimeInCycle
	CompleteCycle timing.VTimeInCycle
}

// TrafficGenerator drives one initiator port through a scripted access
// sequence. It follows the protocol's poll-and-re-present discipline: the
// identical request stays on the pins every cycle until the fabric samples
// it unstalled, and the next request is presented immediately after
// acceptance, so consecutive accesses pipeline back to back.
type TrafficGenerator struct {
	name   string
	port   *fabric.InitiatorPort
	tt     timing.TimeTeller
	script []Access

	issued    int
	completed int
	results   []Result
}

var _ timing.Clocked = (*TrafficGenerator)(nil)

// NewTrafficGenerator creates a generator that will play the script once.
func NewTrafficGenerator(
	name string,
	port *fabric.InitiatorPort,
	tt timing.TimeTeller,
	script []Access,
) *TrafficGenerator {
	return &TrafficGenerator{
		name:    name,
		port:    port,
		tt:      tt,
		script:  script,
		results: make([]Result, len(script)),
	}
}

// Name returns the name of the generator.
func (g *TrafficGenerator) Name() string {
	return g.name
}

// Eval drives the request pins for the current cycle.
func (g *TrafficGenerator) Eval() {
	if g.issued >= len(g.script) {
		g.port.Req = fabric.RequestPins{}
		return
	}

	a := g.script[g.issued]
	g.port.Req = fabric.RequestPins{
		Cyc:   true,
		Stb:   true,
		We:    a.Write,
		Addr:  a.Addr,
		Sel:   a.Sel,
		WData: a.WData,
	}
}

// Sync samples the fabric's response levels at the clock edge: it retires
// the oldest outstanding access on ack or err, and advances the script when
// the presented request was accepted.
func (g *TrafficGenerator) Sync() {
	now := g.tt.CurrentTime()
	rsp := g.port.Rsp

	if rsp.Ack && rsp.Err {
		panic(fmt.Sprintf(
			"%s: ack and err asserted in the same cycle", g.name))
	}

	if rsp.Ack || rsp.Err {
		if g.completed >= g.issued {
			panic(fmt.Sprintf(
				"%s: response without an accepted request", g.name))
		}
		g.results[g.completed].RData = rsp.RData
		g.results[g.completed].Err = rsp.Err
		g.results[g.completed].CompleteCycle = now
		g.completed++
	}

	if g.issued < len(g.script) && !rsp.Stall {
		g.results[g.issued].IssueCycle = now
		g.issued++
	}
}

// Done reports whether every scripted access has completed.
func (g *TrafficGenerator) Done() bool {
	return g.completed == len(g.script)
}

// Results returns the completion records. Entries past the completed count
// are not yet valid.
func (g *TrafficGenerator) Results() []Result {
	return g.results
}

// Completed returns the number of accesses that have received a response.
func (g *TrafficGenerator) Completed() int {
	return g.completed
}
