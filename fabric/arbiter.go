package fabric

// arbiter is the per-target half of the crossbar. It collects the requests
// the decoders gated toward its target, picks one winner per transaction via
// the arbitration policy, forwards the winner's pins, and fans stall levels
// back out. The registered active-initiator index guarantees at most one
// outstanding transaction per target, which is what lets untagged responses
// route unambiguously.
//
// There is no timeout: if the target never responds, the arbiter stays busy
// and the owning decoder and its initiator stall forever. That liveness gap
// is inherited from the protocol and deliberately not mitigated here.
type arbiter struct {
	id     int
	xbar   *Crossbar
	port   *TargetPort
	policy ArbitrationPolicy

	// Registered state: Idle (busy == false) or Busy with the index of the
	// initiator whose transaction is outstanding.
	busy   bool
	active int

	// Combinational state, valid only within the current cycle.
	winner     int
	complete   bool
	requesting []bool
}

func newArbiter(
	id int,
	xbar *Crossbar,
	port *TargetPort,
	policy ArbitrationPolicy,
) *arbiter {
	return &arbiter{
		id:         id,
		xbar:       xbar,
		port:       port,
		policy:     policy,
		active:     -1,
		winner:     -1,
		requesting: make([]bool, len(xbar.perms)),
	}
}

// evalGrant is phase two: pick a winner and drive the target-facing request
// pins. Busy can re-enter Busy directly: when the outstanding transaction
// completes this cycle, a new request is granted in the same cycle, so
// back-to-back traffic runs with zero idle cycles.
func (a *arbiter) evalGrant() {
	a.winner = -1
	a.port.Req = RequestPins{}

	rsp := a.port.Rsp
	a.complete = a.busy && (rsp.Ack || rsp.Err)

	for i, d := range a.xbar.decoders {
		a.requesting[i] = d.fwdValid && d.fwdTarget == a.id
	}

	canAccept := !a.busy || a.complete
	if !canAccept || rsp.Stall {
		return
	}

	w := a.policy.PickWinner(a.requesting)
	if w < 0 {
		return
	}

	a.winner = w
	a.port.Req = a.xbar.decoders[w].port.Req
}

// stallFor reports the stall level a requesting initiator sees this cycle.
// The winner's stall mirrors the target's own stall (pass-through flow
// control); every other requester is stalled.
func (a *arbiter) stallFor(initiator int) bool {
	if initiator == a.winner {
		return a.port.Rsp.Stall
	}

	return true
}

// sync registers the grant decision at the clock edge.
func (a *arbiter) sync() {
	if a.winner >= 0 {
		a.busy = true
		a.active = a.winner
		a.policy.NotifyGranted(a.winner)
		return
	}

	if a.complete {
		a.busy = false
		a.active = -1
	}
}
