package fabric

import (
	"fmt"

	"github.com/chiplab/busfabric/hooking"
)

// Pending-state sentinels. A non-negative value is the index of the target
// awaiting a response.
const (
	pendingNone     = -1
	pendingUnmapped = -2
)

// decoder is the per-initiator half of the crossbar. Each cycle it decodes
// the initiator's request against the region table, gates it to the selected
// target's arbiter, and multiplexes the pending target's response back. The
// pending state is a selected index, so response routing is a plain lookup
// rather than a one-hot AND-OR reduction.
type decoder struct {
	id   int
	xbar *Crossbar
	port *InitiatorPort

	// Registered state. At most one transaction is pending at a time; while
	// one is, the decoder back-pressures its initiator.
	pending  int
	inflight *Transaction

	// Combinational state, valid only within the current cycle.
	fwdValid  bool
	fwdTarget int
	unmapped  bool
}

func newDecoder(id int, xbar *Crossbar, port *InitiatorPort) *decoder {
	return &decoder{
		id:      id,
		xbar:    xbar,
		port:    port,
		pending: pendingNone,
	}
}

// completing reports whether the pending transaction finishes this cycle.
// The synthetic unmapped error completes exactly one cycle after acceptance.
func (d *decoder) completing() bool {
	switch d.pending {
	case pendingNone:
		return false
	case pendingUnmapped:
		return true
	default:
		rsp := d.xbar.targetPorts[d.pending].Rsp
		return rsp.Ack || rsp.Err
	}
}

// evalForward is phase one: compute the target selection and gate the
// request toward its arbiter. A request is forwarded only when the decoder
// is not holding an incomplete transaction. A request arriving the cycle the
// previous one completes is forwarded immediately, so back-to-back
// transactions need no idle cycle.
func (d *decoder) evalForward() {
	d.fwdValid = false
	d.unmapped = false

	req := d.port.Req
	if !req.Live() {
		return
	}

	if d.pending != pendingNone && !d.completing() {
		return
	}

	t := d.xbar.table.Lookup(req.Addr, d.xbar.perms[d.id])
	if t < 0 {
		// No region matched. The request is still consumed: it becomes a
		// synthetic pending entry that answers with err one cycle later and
		// is never forwarded to any target.
		d.unmapped = true
		return
	}

	d.fwdValid = true
	d.fwdTarget = t
}

// evalResponse is phase three: drive the initiator-facing response pins from
// the pending index and the arbitration outcome.
func (d *decoder) evalResponse() {
	rsp := &d.port.Rsp
	*rsp = ResponsePins{}

	switch d.pending {
	case pendingNone:
	case pendingUnmapped:
		rsp.Err = true
	default:
		tRsp := d.xbar.targetPorts[d.pending].Rsp
		if tRsp.Ack && tRsp.Err {
			panic(fmt.Sprintf(
				"fabric: target %d asserted ack and err in the same cycle",
				d.pending))
		}
		rsp.Ack = tRsp.Ack
		rsp.Err = tRsp.Err
		rsp.RData = tRsp.RData
	}

	if !d.port.Req.Live() {
		return
	}

	switch {
	case d.pending != pendingNone && !d.completing():
		rsp.Stall = true
	case d.unmapped:
		// Accepted into the synthetic error path this edge.
	case d.fwdValid:
		rsp.Stall = d.xbar.arbiters[d.fwdTarget].stallFor(d.id)
	}
}

// sync commits the clock edge: complete the pending transaction if its
// response arrived this cycle, then register a newly accepted request.
func (d *decoder) sync() {
	now := d.xbar.timeTeller.CurrentTime()

	if d.pending != pendingNone && d.completing() {
		tr := d.inflight
		if d.pending == pendingUnmapped {
			tr.Err = true
		} else {
			tRsp := d.xbar.targetPorts[d.pending].Rsp
			tr.RData = tRsp.RData
			tr.Err = tRsp.Err
		}
		tr.CompleteCycle = now

		d.pending = pendingNone
		d.inflight = nil

		d.xbar.InvokeHook(hooking.HookCtx{
			Domain: d.xbar,
			Pos:    HookPosTransactionEnd,
			Item:   tr,
		})
	}

	accepted := false
	next := pendingNone

	switch {
	case d.unmapped:
		accepted = true
		next = pendingUnmapped
	case d.fwdValid && d.xbar.arbiters[d.fwdTarget].winner == d.id:
		accepted = true
		next = d.fwdTarget
	}

	if !accepted {
		return
	}

	req := d.port.Req
	target := next
	if next == pendingUnmapped {
		target = UnmappedTarget
	}

	d.pending = next
	d.inflight = &Transaction{
		ID:         d.xbar.ids.Generate(),
		Initiator:  d.id,
		Target:     target,
		Write:      req.We,
		Addr:       req.Addr,
		Sel:        req.Sel,
		WData:      req.WData,
		IssueCycle: now,
	}

	d.xbar.InvokeHook(hooking.HookCtx{
		Domain: d.xbar,
		Pos:    HookPosTransactionStart,
		Item:   d.inflight,
	})
}
