package fabric

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Arbiter", func() {
	var (
		ctrl   *gomock.Controller
		policy *MockArbitrationPolicy
		clk    *steppingClock
		xbar   *Crossbar
	)

	step := func() {
		xbar.Eval()
		xbar.Sync()
		clk.now++
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		policy = NewMockArbitrationPolicy(ctrl)
		clk = &steppingClock{}
		xbar = MakeBuilder().
			WithInitiatorCount(2).
			WithRegions([]Region{{Base: 0, Mask: 0xFFFF_0000}}).
			WithPolicyFactory(func() ArbitrationPolicy { return policy }).
			WithTimeTeller(clk).
			Build("XBar")
	})

	present := func(i int, addr uint32) {
		xbar.InitiatorPort(i).Req = RequestPins{
			Cyc: true, Stb: true, Addr: addr, Sel: 0xF,
		}
	}

	It("forwards the policy's pick and stalls the losers", func() {
		present(0, 0x0000_0000)
		present(1, 0x0000_0004)

		policy.EXPECT().
			PickWinner([]bool{true, true}).
			Return(1)
		policy.EXPECT().NotifyGranted(1)

		step()

		Expect(xbar.TargetPort(0).Req.Live()).To(BeTrue())
		Expect(xbar.TargetPort(0).Req.Addr).To(Equal(uint32(0x0000_0004)))
		Expect(xbar.InitiatorPort(1).Rsp.Stall).To(BeFalse())
		Expect(xbar.InitiatorPort(0).Rsp.Stall).To(BeTrue())
		Expect(xbar.ActiveInitiator(0)).To(Equal(1))
	})

	It("does not consult the policy while the target is busy", func() {
		present(0, 0x0000_0000)
		present(1, 0x0000_0004)

		policy.EXPECT().
			PickWinner([]bool{true, true}).
			Return(0)
		policy.EXPECT().NotifyGranted(0)

		step()

		// The target never answers, so the arbiter stays busy and no new
		// arbitration round runs.
		step()
		step()

		Expect(xbar.ActiveInitiator(0)).To(Equal(0))
		Expect(xbar.InitiatorPort(0).Rsp.Stall).To(BeTrue())
		Expect(xbar.InitiatorPort(1).Rsp.Stall).To(BeTrue())
	})

	It("does not consult the policy while the target stalls", func() {
		present(0, 0x0000_0000)
		xbar.TargetPort(0).Rsp = ResponsePins{Stall: true}

		xbar.Eval()
		xbar.Sync()

		Expect(xbar.InitiatorPort(0).Rsp.Stall).To(BeTrue())
		Expect(xbar.ActiveInitiator(0)).To(Equal(-1))
	})

	It("re-arbitrates in the completion cycle", func() {
		present(0, 0x0000_0000)

		policy.EXPECT().
			PickWinner([]bool{true, false}).
			Return(0)
		policy.EXPECT().NotifyGranted(0)

		step()

		// The outstanding transaction completes this cycle, so a waiting
		// request is granted in the same cycle.
		xbar.InitiatorPort(0).Req = RequestPins{}
		present(1, 0x0000_0008)
		xbar.TargetPort(0).Rsp = ResponsePins{Ack: true}

		policy.EXPECT().
			PickWinner([]bool{false, true}).
			Return(1)
		policy.EXPECT().NotifyGranted(1)

		xbar.Eval()
		xbar.Sync()

		Expect(xbar.InitiatorPort(0).Rsp.Ack).To(BeTrue())
		Expect(xbar.InitiatorPort(1).Rsp.Stall).To(BeFalse())
		Expect(xbar.ActiveInitiator(0)).To(Equal(1))
	})

	It("releases the target when nothing requests at completion", func() {
		present(0, 0x0000_0000)

		policy.EXPECT().
			PickWinner([]bool{true, false}).
			Return(0)
		policy.EXPECT().NotifyGranted(0)

		step()

		xbar.InitiatorPort(0).Req = RequestPins{}
		xbar.TargetPort(0).Rsp = ResponsePins{Ack: true}

		policy.EXPECT().
			PickWinner([]bool{false, false}).
			Return(-1)

		xbar.Eval()
		xbar.Sync()

		Expect(xbar.ActiveInitiator(0)).To(Equal(-1))
	})
})
