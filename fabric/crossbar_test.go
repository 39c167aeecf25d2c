package fabric

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chiplab/busfabric/hooking"
	"github.com/chiplab/busfabric/timing"
)

// steppingClock is a manually advanced time source for driving the crossbar
// cycle by cycle without an event engine.
type steppingClock struct {
	now timing.VTimeInCycle
}

func (c *steppingClock) CurrentTime() timing.VTimeInCycle { return c.now }

// oneCycleTarget models a bus slave with a fixed one-cycle latency: a request
// latched at edge N is answered at cycle N+1. Backing storage is a sparse
// word map keyed by full address.
type oneCycleTarget struct {
	port  *TargetPort
	words map[uint32]uint32

	stall func(cycle timing.VTimeInCycle) bool
	fail  func(req RequestPins) bool

	busy bool
	req  RequestPins
	now  *steppingClock
}

func (t *oneCycleTarget) eval() {
	t.port.Rsp = ResponsePins{}

	if t.stall != nil && t.stall(t.now.now) {
		t.port.Rsp.Stall = true
	}

	if !t.busy {
		return
	}

	if t.fail != nil && t.fail(t.req) {
		t.port.Rsp.Err = true
		return
	}

	t.port.Rsp.Ack = true
	if !t.req.We {
		t.port.Rsp.RData = t.words[t.req.Addr]
	}
}

func (t *oneCycleTarget) sync() {
	if t.busy {
		if t.req.We && !t.port.Rsp.Err {
			t.words[t.req.Addr] = t.req.WData
		}
		t.busy = false
	}

	if t.port.Req.Live() && !t.port.Rsp.Stall {
		t.busy = true
		t.req = t.port.Req
	}
}

// bench wires a crossbar to one-cycle targets and lets specs drive the
// initiator pins directly.
type bench struct {
	clk     *steppingClock
	xbar    *Crossbar
	targets []*oneCycleTarget
}

func newBench(b Builder) *bench {
	clk := &steppingClock{}
	xbar := b.WithTimeTeller(clk).Build("XBar")

	tb := &bench{clk: clk, xbar: xbar}
	for t := 0; t < xbar.NumTargets(); t++ {
		tb.targets = append(tb.targets, &oneCycleTarget{
			port:  xbar.TargetPort(t),
			words: make(map[uint32]uint32),
			now:   clk,
		})
	}

	return tb
}

// step runs one cycle: target and crossbar Evals in dependency order, then
// all Syncs. Initiator pins must be driven before calling step; response
// levels remain on the ports for inspection afterwards.
func (b *bench) step() {
	for _, t := range b.targets {
		t.eval()
	}
	b.xbar.Eval()

	b.xbar.Sync()
	for _, t := range b.targets {
		t.sync()
	}

	b.clk.now++
}

func (b *bench) read(i int, addr uint32) {
	b.xbar.InitiatorPort(i).Req = RequestPins{
		Cyc: true, Stb: true, Addr: addr, Sel: 0xF,
	}
}

func (b *bench) write(i int, addr, data uint32) {
	b.xbar.InitiatorPort(i).Req = RequestPins{
		Cyc: true, Stb: true, We: true, Addr: addr, Sel: 0xF, WData: data,
	}
}

func (b *bench) idle(i int) {
	b.xbar.InitiatorPort(i).Req = RequestPins{}
}

func (b *bench) rsp(i int) ResponsePins {
	return b.xbar.InitiatorPort(i).Rsp
}

type txnRecorder struct {
	starts []*Transaction
	ends   []*Transaction
}

func (r *txnRecorder) Func(ctx hooking.HookCtx) {
	tr := ctx.Item.(*Transaction)
	switch ctx.Pos {
	case HookPosTransactionStart:
		r.starts = append(r.starts, tr)
	case HookPosTransactionEnd:
		r.ends = append(r.ends, tr)
	}
}

var _ = Describe("Crossbar", func() {
	var b *bench

	twoByTwo := func() Builder {
		return MakeBuilder().
			WithInitiatorCount(2).
			WithRegions([]Region{
				{Base: 0x0000_0000, Mask: 0xFFFF_0000},
				{Base: 0x0001_0000, Mask: 0xFFFF_0000},
			})
	}

	BeforeEach(func() {
		b = newBench(twoByTwo())
	})

	It("routes a read and delivers the ack one cycle later", func() {
		b.targets[0].words[0x0000_0004] = 0xDEADBEEF

		b.read(0, 0x0000_0004)
		b.step()

		Expect(b.rsp(0).Stall).To(BeFalse())
		Expect(b.rsp(0).Ack).To(BeFalse())
		Expect(b.rsp(1).Stall).To(BeFalse())
		Expect(b.xbar.ActiveInitiator(0)).To(Equal(0))

		b.idle(0)
		b.step()

		Expect(b.rsp(0).Ack).To(BeTrue())
		Expect(b.rsp(0).Err).To(BeFalse())
		Expect(b.rsp(0).RData).To(Equal(uint32(0xDEADBEEF)))
		Expect(b.xbar.ActiveInitiator(0)).To(Equal(-1))
	})

	It("serializes two initiators contending for one target", func() {
		b.targets[1].words[0x0001_0008] = 0x11111111
		b.targets[1].words[0x0001_000C] = 0x22222222

		b.read(0, 0x0001_0008)
		b.read(1, 0x0001_000C)
		b.step()

		Expect(b.rsp(0).Stall).To(BeFalse())
		Expect(b.rsp(1).Stall).To(BeTrue())
		Expect(b.xbar.ActiveInitiator(1)).To(Equal(0))

		b.idle(0)
		b.step()

		Expect(b.rsp(0).Ack).To(BeTrue())
		Expect(b.rsp(0).RData).To(Equal(uint32(0x11111111)))
		Expect(b.rsp(1).Stall).To(BeFalse())
		Expect(b.xbar.ActiveInitiator(1)).To(Equal(1))

		b.idle(1)
		b.step()

		Expect(b.rsp(1).Ack).To(BeTrue())
		Expect(b.rsp(1).RData).To(Equal(uint32(0x22222222)))
	})

	It("answers an unmapped address with err exactly one cycle later", func() {
		b.read(0, 0xFFFF_FFFF)
		b.step()

		Expect(b.rsp(0).Stall).To(BeFalse())
		Expect(b.rsp(0).Err).To(BeFalse())
		Expect(b.xbar.TargetPort(0).Req.Live()).To(BeFalse())
		Expect(b.xbar.TargetPort(1).Req.Live()).To(BeFalse())

		target, pending := b.xbar.PendingTarget(0)
		Expect(pending).To(BeTrue())
		Expect(target).To(Equal(UnmappedTarget))

		b.idle(0)
		b.step()

		Expect(b.rsp(0).Err).To(BeTrue())
		Expect(b.rsp(0).Ack).To(BeFalse())
		Expect(b.xbar.TargetPort(0).Req.Live()).To(BeFalse())
		Expect(b.xbar.TargetPort(1).Req.Live()).To(BeFalse())

		_, pending = b.xbar.PendingTarget(0)
		Expect(pending).To(BeFalse())
	})

	It("pipelines back-to-back accesses with zero idle cycles", func() {
		b.write(0, 0x0000_0010, 0xAAAA0000)
		b.step()

		Expect(b.rsp(0).Stall).To(BeFalse())

		b.write(0, 0x0000_0014, 0xBBBB1111)
		b.step()

		Expect(b.rsp(0).Ack).To(BeTrue())
		Expect(b.rsp(0).Stall).To(BeFalse())

		b.idle(0)
		b.step()

		Expect(b.rsp(0).Ack).To(BeTrue())
		Expect(b.targets[0].words[uint32(0x0000_0010)]).
			To(Equal(uint32(0xAAAA0000)))
		Expect(b.targets[0].words[uint32(0x0000_0014)]).
			To(Equal(uint32(0xBBBB1111)))
	})

	It("starves the high-indexed initiator under fixed priority", func() {
		b.write(0, 0x0000_0020, 0x1)
		b.read(1, 0x0000_0024)

		acks0 := 0
		for cycle := 0; cycle < 6; cycle++ {
			b.step()
			Expect(b.rsp(1).Stall).To(BeTrue())
			Expect(b.rsp(1).Ack).To(BeFalse())
			if b.rsp(0).Ack {
				acks0++
			}
		}
		Expect(acks0).To(Equal(5))

		b.idle(0)
		b.step()

		Expect(b.rsp(1).Stall).To(BeFalse())
	})

	It("alternates grants under round-robin arbitration", func() {
		b = newBench(twoByTwo().WithPolicyFactory(
			func() ArbitrationPolicy { return NewRoundRobin() }))

		b.write(0, 0x0000_0030, 0x1)
		b.write(1, 0x0000_0034, 0x2)

		var grants []int
		for cycle := 0; cycle < 6; cycle++ {
			b.step()
			grants = append(grants, b.xbar.ActiveInitiator(0))
		}

		Expect(grants).To(Equal([]int{0, 1, 0, 1, 0, 1}))
	})

	It("answers a permission-denied access with err", func() {
		b = newBench(twoByTwo().WithPermissions(PermissionMatrix{
			{true, false},
			{true, true},
		}))

		b.read(0, 0x0001_0000)
		b.step()

		Expect(b.rsp(0).Stall).To(BeFalse())
		Expect(b.xbar.TargetPort(1).Req.Live()).To(BeFalse())

		b.idle(0)
		b.step()

		Expect(b.rsp(0).Err).To(BeTrue())
	})

	It("passes the target's stall through to the winning initiator", func() {
		b.targets[0].stall = func(cycle timing.VTimeInCycle) bool {
			return cycle < 2
		}

		b.read(0, 0x0000_0000)
		b.step()
		Expect(b.rsp(0).Stall).To(BeTrue())
		Expect(b.xbar.ActiveInitiator(0)).To(Equal(-1))

		b.step()
		Expect(b.rsp(0).Stall).To(BeTrue())
		Expect(b.xbar.ActiveInitiator(0)).To(Equal(-1))

		b.step()
		Expect(b.rsp(0).Stall).To(BeFalse())
		Expect(b.xbar.ActiveInitiator(0)).To(Equal(0))

		b.idle(0)
		b.step()
		Expect(b.rsp(0).Ack).To(BeTrue())
	})

	It("forwards a target-reported error to the initiator", func() {
		b.targets[0].fail = func(req RequestPins) bool {
			return req.Addr == 0x0000_0040
		}

		b.write(0, 0x0000_0040, 0x5)
		b.step()
		b.idle(0)
		b.step()

		Expect(b.rsp(0).Err).To(BeTrue())
		Expect(b.rsp(0).Ack).To(BeFalse())
		Expect(b.targets[0].words).NotTo(HaveKey(uint32(0x0000_0040)))
	})

	It("panics when a target asserts ack and err together", func() {
		b.read(0, 0x0000_0000)
		b.step()
		b.idle(0)

		b.xbar.TargetPort(0).Rsp = ResponsePins{Ack: true, Err: true}

		Expect(func() { b.xbar.Eval() }).To(Panic())
	})

	It("stalls a new request while one is outstanding", func() {
		b = newBench(MakeBuilder().
			WithInitiatorCount(1).
			WithRegions([]Region{{Base: 0, Mask: 0xFFFF_0000}}))

		b.read(0, 0x0000_0000)
		b.step()

		Expect(b.rsp(0).Stall).To(BeFalse())

		// Silence the target so the first transaction never completes.
		b.targets[0].busy = false
		b.read(0, 0x0000_0004)
		b.step()

		Expect(b.rsp(0).Stall).To(BeTrue())
	})

	It("reports transactions through the hooks", func() {
		rec := &txnRecorder{}
		b.xbar.AcceptHook(rec)

		b.targets[0].words[0x0000_0004] = 0xDEADBEEF
		b.read(0, 0x0000_0004)
		b.step()

		Expect(rec.starts).To(HaveLen(1))
		Expect(rec.ends).To(BeEmpty())
		Expect(rec.starts[0].Initiator).To(Equal(0))
		Expect(rec.starts[0].Target).To(Equal(0))
		Expect(rec.starts[0].IssueCycle).To(Equal(timing.VTimeInCycle(0)))

		b.idle(0)
		b.step()

		Expect(rec.ends).To(HaveLen(1))
		Expect(rec.ends[0]).To(BeIdenticalTo(rec.starts[0]))
		Expect(rec.ends[0].RData).To(Equal(uint32(0xDEADBEEF)))
		Expect(rec.ends[0].Err).To(BeFalse())
		Expect(rec.ends[0].CompleteCycle).To(Equal(timing.VTimeInCycle(1)))
	})

	It("tags unmapped transactions in the hooks", func() {
		rec := &txnRecorder{}
		b.xbar.AcceptHook(rec)

		b.read(0, 0xFFFF_FFFF)
		b.step()
		b.idle(0)
		b.step()

		Expect(rec.ends).To(HaveLen(1))
		Expect(rec.ends[0].Target).To(Equal(UnmappedTarget))
		Expect(rec.ends[0].Err).To(BeTrue())
	})
})
