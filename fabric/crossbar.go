// Package fabric implements a synchronous N-initiator by M-target bus
// crossbar: per-initiator address decoders, per-target arbiters, and the
// structural top that cross-wires them.
//
// The model is fully synchronous. Every cycle, a driving clock calls Eval on
// the initiators, the targets, and then the crossbar, and finally Sync on
// everything. All handshake signals are levels re-driven each Eval;
// suspension is a same-cycle stall level, not a blocking call.
package fabric

import (
	"github.com/chiplab/busfabric/hooking"
	"github.com/chiplab/busfabric/idgen"
	"github.com/chiplab/busfabric/timing"
)

// Crossbar cross-connects decoders and arbiters as an N×M transpose of
// request and stall vectors, and owns the region table and permission
// matrix. It exposes the union of initiator-facing and target-facing ports
// as the fabric boundary.
type Crossbar struct {
	*hooking.HookableBase

	name       string
	table      RegionTable
	perms      PermissionMatrix
	timeTeller timing.TimeTeller
	ids        idgen.Generator

	initiatorPorts []*InitiatorPort
	targetPorts    []*TargetPort
	decoders       []*decoder
	arbiters       []*arbiter
}

var _ timing.Clocked = (*Crossbar)(nil)

// Name returns the name of the crossbar.
func (c *Crossbar) Name() string {
	return c.name
}

// NumInitiators returns the number of initiator-facing ports.
func (c *Crossbar) NumInitiators() int {
	return len(c.initiatorPorts)
}

// NumTargets returns the number of target-facing ports.
func (c *Crossbar) NumTargets() int {
	return len(c.targetPorts)
}

// InitiatorPort returns the fabric boundary facing initiator i.
func (c *Crossbar) InitiatorPort(i int) *InitiatorPort {
	return c.initiatorPorts[i]
}

// TargetPort returns the fabric boundary facing target t.
func (c *Crossbar) TargetPort(t int) *TargetPort {
	return c.targetPorts[t]
}

// ActiveInitiator returns the index of the initiator whose transaction is
// outstanding at target t, or -1 when the target's arbiter is idle.
func (c *Crossbar) ActiveInitiator(t int) int {
	return c.arbiters[t].active
}

// PendingTarget returns the target initiator i is awaiting a response from.
// ok is false when nothing is pending; target is UnmappedTarget while the
// synthetic unmapped error is queued.
func (c *Crossbar) PendingTarget(i int) (target int, ok bool) {
	switch p := c.decoders[i].pending; p {
	case pendingNone:
		return 0, false
	case pendingUnmapped:
		return UnmappedTarget, true
	default:
		return p, true
	}
}

// Eval drives all fabric outputs for the current cycle in three
// combinational phases: decoder forwarding, arbitration, and response
// multiplexing. Initiators and targets must have driven their request and
// response pins before Eval runs.
func (c *Crossbar) Eval() {
	for _, d := range c.decoders {
		d.evalForward()
	}
	for _, a := range c.arbiters {
		a.evalGrant()
	}
	for _, d := range c.decoders {
		d.evalResponse()
	}
}

// Sync commits the clock edge: decoders retire completed transactions and
// register accepted ones, arbiters register grant decisions. Each register
// has exactly one synchronous writer, so there are no ordering races within
// a cycle.
func (c *Crossbar) Sync() {
	for _, d := range c.decoders {
		d.sync()
	}
	for _, a := range c.arbiters {
		a.sync()
	}
}
