package fabric

// An ArbitrationPolicy selects which requesting initiator a target arbiter
// grants next. Implementations may keep state across cycles; each arbiter
// owns its own policy instance.
type ArbitrationPolicy interface {
	// PickWinner returns the index of the initiator to grant, or -1 when no
	// entry of requesting is set. PickWinner must not mutate policy state;
	// a pick only takes effect when the arbiter reports it via NotifyGranted.
	PickWinner(requesting []bool) int

	// NotifyGranted informs the policy that the picked initiator was
	// registered as the active initiator at the clock edge.
	NotifyGranted(initiator int)
}

// FixedPriority grants the lowest-indexed requesting initiator. Sustained
// traffic from a low-indexed initiator starves higher indices indefinitely;
// this is an accepted property of the policy, not mitigated here.
type FixedPriority struct{}

// NewFixedPriority creates a FixedPriority policy.
func NewFixedPriority() *FixedPriority {
	return &FixedPriority{}
}

// PickWinner returns the lowest set index.
func (p *FixedPriority) PickWinner(requesting []bool) int {
	for i, r := range requesting {
		if r {
			return i
		}
	}

	return -1
}

// NotifyGranted is a no-op; the policy is stateless.
func (p *FixedPriority) NotifyGranted(int) {}

// RoundRobin grants the first requesting initiator at or after the one
// following the last grant, so no initiator can starve another.
type RoundRobin struct {
	next int
}

// NewRoundRobin creates a RoundRobin policy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// PickWinner scans from the rotation point.
func (p *RoundRobin) PickWinner(requesting []bool) int {
	n := len(requesting)
	for k := 0; k < n; k++ {
		i := (p.next + k) % n
		if requesting[i] {
			return i
		}
	}

	return -1
}

// NotifyGranted advances the rotation point past the granted initiator.
func (p *RoundRobin) NotifyGranted(initiator int) {
	p.next = initiator + 1
}
