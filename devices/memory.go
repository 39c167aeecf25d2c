// Package devices provides clocked bus devices that sit on the two sides of
// the fabric: memory-like targets and traffic-generating initiators.
package devices

import (
	"fmt"

	"github.com/chiplab/busfabric/fabric"
	"github.com/chiplab/busfabric/timing"
)

// Memory is a word-addressable RAM target with a fixed response latency. It
// latches a request at the clock edge where the fabric presents it, counts
// the latency down, and asserts ack (with read data for reads) for exactly
// one cycle. A new request can be latched on the same edge a response is
// delivered, so back-to-back accesses run without idle cycles.
type Memory struct {
	name    string
	port    *fabric.TargetPort
	tt      timing.TimeTeller
	latency int
	data    []byte

	stallFunc func(cycle timing.VTimeInCycle) bool
	errFunc   func(req fabric.RequestPins) bool

	// Registered state.
	busy      bool
	countdown int
	req       fabric.RequestPins

	// Combinational state for the current cycle.
	respNow bool
}

var _ timing.Clocked = (*Memory)(nil)

// NewMemory creates a memory of the given byte size, which must be a power
// of two; addresses wrap at the size, so the memory decodes only the low
// address bits like a windowed bus slave. Latency is in cycles and must be
// at least 1.
func NewMemory(
	name string,
	port *fabric.TargetPort,
	tt timing.TimeTeller,
	size int,
	latencyCycles int,
) *Memory {
	if size <= 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf("memory size must be a power of two, got %d", size))
	}
	if latencyCycles < 1 {
		panic("memory latency must be at least 1 cycle")
	}

	return &Memory{
		name:    name,
		port:    port,
		tt:      tt,
		latency: latencyCycles,
		data:    make([]byte, size),
	}
}

// Name returns the name of the memory.
func (m *Memory) Name() string {
	return m.name
}

// SetStallFunc installs a per-cycle stall schedule, used to exercise
// backpressure. While the function returns true the memory asserts stall
// and accepts nothing.
func (m *Memory) SetStallFunc(f func(cycle timing.VTimeInCycle) bool) {
	m.stallFunc = f
}

// SetErrFunc installs a predicate that makes the memory answer err instead
// of ack for matching requests.
func (m *Memory) SetErrFunc(f func(req fabric.RequestPins) bool) {
	m.errFunc = f
}

// Eval drives the target-side response pins for the current cycle.
func (m *Memory) Eval() {
	rsp := &m.port.Rsp
	*rsp = fabric.ResponsePins{}

	if m.stallFunc != nil && m.stallFunc(m.tt.CurrentTime()) {
		rsp.Stall = true
	}

	m.respNow = m.busy && m.countdown == 0
	if !m.respNow {
		return
	}

	if m.errFunc != nil && m.errFunc(m.req) {
		rsp.Err = true
		return
	}

	rsp.Ack = true
	if !m.req.We {
		rsp.RData = m.WordAt(m.req.Addr)
	}
}

// Sync commits the clock edge: retire a delivered response, advance the
// latency countdown, and latch a newly presented request.
func (m *Memory) Sync() {
	if m.respNow {
		if m.req.We && !m.port.Rsp.Err {
			m.writeWord(m.req.Addr, m.req.WData, m.req.Sel)
		}
		m.busy = false
	} else if m.busy {
		m.countdown--
	}

	if !m.busy && m.port.Req.Live() && !m.port.Rsp.Stall {
		m.busy = true
		m.req = m.port.Req
		m.countdown = m.latency - 1
	}
}

// WordAt returns the little-endian 32-bit word at addr, which wraps at the
// memory size.
func (m *Memory) WordAt(addr uint32) uint32 {
	base := m.offset(addr)
	return uint32(m.data[base]) |
		uint32(m.data[base+1])<<8 |
		uint32(m.data[base+2])<<16 |
		uint32(m.data[base+3])<<24
}

// SetWordAt stores a 32-bit word at addr, for test preloading.
func (m *Memory) SetWordAt(addr uint32, value uint32) {
	m.writeWord(addr, value, 0xF)
}

func (m *Memory) writeWord(addr uint32, value uint32, sel uint8) {
	base := m.offset(addr)
	for i := 0; i < 4; i++ {
		if sel&(1<<i) != 0 {
			m.data[base+i] = byte(value >> (8 * i))
		}
	}
}

func (m *Memory) offset(addr uint32) int {
	return int(addr) & (len(m.data) - 1) &^ 3
}
