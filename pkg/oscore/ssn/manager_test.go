package ssn_test

import (
	"bytes"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/oscore-edhoc/wire/internal/log"
	"github.com/oscore-edhoc/wire/mocks"
	"github.com/oscore-edhoc/wire/pkg/oscore/ssn"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

var (
	senderID  = []byte{0x01}
	idContext = []byte{0x37, 0xcb, 0xf3, 0x21, 0x00, 0x17, 0xa2, 0xd3}
	errFlash  = errors.New("flash controller timeout")
)

// flakyStore wraps a MemoryStore and fails writes of the listed values.
type flakyStore struct {
	*ssn.MemoryStore
	failures map[uint64]bool
}

func (f *flakyStore) WriteSSN(senderID, idContext []byte, value uint64) error {
	if f.failures[value] {
		return errFlash
	}
	return f.MemoryStore.WriteSSN(senderID, idContext, value)
}

var _ = Describe("Manager", func() {
	var (
		ctrl      *gomock.Controller
		mockStore *mocks.Store
		manager   *ssn.Manager
	)

	BeforeEach(func() {
		var err error
		ctrl = gomock.NewController(GinkgoT())
		mockStore = mocks.NewStore(ctrl)
		manager, err = ssn.NewManager(mockStore, ssn.DefaultPolicy)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() {
			ctrl.Finish()
		})
	})

	Describe("NewManager", func() {
		It("rejects a nil store", func() {
			_, err := ssn.NewManager(nil, ssn.DefaultPolicy)
			Expect(err).To(MatchError(ssn.ErrNilStore))
		})

		DescribeTable("rejects unsafe policies",
			func(policy ssn.Policy) {
				_, err := ssn.NewManager(ssn.NewMemoryStore(), policy)
				Expect(errors.Is(err, ssn.ErrInvalidPolicy)).To(BeTrue())
				Expect(errors.Is(err, protocol.ErrPolicyViolation)).To(BeTrue())
			},
			Entry("zero interval", ssn.Policy{StoreInterval: 0, WriteFailureMargin: 10}),
			Entry("margin below interval", ssn.Policy{StoreInterval: 10, WriteFailureMargin: 9}),
			Entry("offset beyond sequence space", ssn.Policy{StoreInterval: 10, WriteFailureMargin: ssn.MaxSSN}),
		)

		It("warns loudly when persistence is unimplemented", func() {
			var buf bytes.Buffer
			previous := log.SetOutput(&buf)
			log.SetLevel(log.LevelWarning)
			DeferCleanup(func() {
				log.SetOutput(previous)
				log.SetLevel(log.LevelNone)
			})

			_, err := ssn.NewManager(ssn.UnimplementedStore{}, ssn.DefaultPolicy)
			Expect(err).ToNot(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("no persistent store configured"))
		})

		It("doesn't warn about a real store", func() {
			var buf bytes.Buffer
			previous := log.SetOutput(&buf)
			log.SetLevel(log.LevelWarning)
			DeferCleanup(func() {
				log.SetOutput(previous)
				log.SetLevel(log.LevelNone)
			})

			_, err := ssn.NewManager(ssn.NewMemoryStore(), ssn.DefaultPolicy)
			Expect(err).ToNot(HaveOccurred())
			Expect(buf.String()).To(BeEmpty())
		})
	})

	Describe("Init", func() {
		It("starts at zero without persistence", func() {
			value, err := manager.Init(senderID, idContext, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(BeZero())
		})

		It("adds interval and margin to the persisted value", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(40), nil)
			value, err := manager.Init(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(uint64(60)))
		})

		It("treats a missing record as a checkpoint of zero", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(0), ssn.ErrNoRecord)
			value, err := manager.Init(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(uint64(20)))
		})

		It("fails when storage can't be read", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(0), errFlash)
			_, err := manager.Init(senderID, idContext, true)
			Expect(errors.Is(err, ssn.ErrRecoveryFailed)).To(BeTrue())
			Expect(errors.Is(err, errFlash)).To(BeTrue())
			Expect(errors.Is(err, protocol.ErrStorageUnavailable)).To(BeTrue())
		})

		It("fails when the unimplemented store is used with persistence", func() {
			m, err := ssn.NewManager(ssn.UnimplementedStore{}, ssn.DefaultPolicy)
			Expect(err).ToNot(HaveOccurred())
			_, err = m.Init(senderID, idContext, true)
			Expect(errors.Is(err, ssn.ErrRecoveryFailed)).To(BeTrue())
			Expect(errors.Is(err, ssn.ErrNotImplemented)).To(BeTrue())
		})

		It("rejects a checkpoint too close to the end of the sequence space", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(ssn.MaxSSN-19), nil)
			_, err := manager.Init(senderID, idContext, true)
			Expect(errors.Is(err, ssn.ErrExhausted)).To(BeTrue())
			Expect(errors.Is(err, protocol.ErrPolicyViolation)).To(BeTrue())
		})

		It("accepts a checkpoint that leaves exactly one sequence number", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(ssn.MaxSSN-20), nil)
			value, err := manager.Init(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(uint64(ssn.MaxSSN)))
		})
	})

	Describe("StoreInNVM", func() {
		It("doesn't write without persistence", func() {
			Expect(manager.StoreInNVM(senderID, idContext, 20, false)).To(Succeed())
		})

		It("only writes on interval boundaries", func() {
			mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(30)).Return(nil)
			for value := uint64(21); value < 40; value++ {
				Expect(manager.StoreInNVM(senderID, idContext, value, true)).To(Succeed())
			}
		})

		It("surfaces write failures as recoverable", func() {
			mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(50)).Return(errFlash)
			err := manager.StoreInNVM(senderID, idContext, 50, true)
			Expect(errors.Is(err, ssn.ErrCheckpointFailed)).To(BeTrue())
			Expect(errors.Is(err, errFlash)).To(BeTrue())
			Expect(protocol.Recoverable(err)).To(BeTrue())
		})
	})

	Describe("Counter", func() {
		It("checkpoints its starting value", func() {
			gomock.InOrder(
				mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(40), nil),
				mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(60)).Return(nil),
			)
			counter, err := manager.NewCounter(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(counter.Peek()).To(Equal(uint64(60)))
		})

		It("refuses to start if the starting value can't be persisted", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(40), nil)
			mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(60)).Return(errFlash)
			_, err := manager.NewCounter(senderID, idContext, true)
			Expect(errors.Is(err, ssn.ErrCheckpointFailed)).To(BeTrue())
		})

		It("hands out consecutive values and checkpoints boundaries", func() {
			gomock.InOrder(
				mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(0), ssn.ErrNoRecord),
				mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(20)).Return(nil),
				mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(20)).Return(nil),
				mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(30)).Return(nil),
			)
			counter, err := manager.NewCounter(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			for expected := uint64(20); expected < 35; expected++ {
				value, err := counter.Next()
				Expect(err).ToNot(HaveOccurred())
				Expect(value).To(Equal(expected))
			}
		})

		It("returns the consumed value alongside a checkpoint failure", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(0), ssn.ErrNoRecord)
			mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(20)).Return(nil)
			mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(20)).Return(errFlash)
			counter, err := manager.NewCounter(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			value, err := counter.Next()
			Expect(value).To(Equal(uint64(20)))
			Expect(errors.Is(err, ssn.ErrCheckpointFailed)).To(BeTrue())
			Expect(counter.Peek()).To(Equal(uint64(21)))
		})

		It("stops at the end of the sequence space", func() {
			mockStore.EXPECT().ReadSSN(senderID, idContext).Return(uint64(ssn.MaxSSN-20), nil)
			mockStore.EXPECT().WriteSSN(senderID, idContext, uint64(ssn.MaxSSN)).Return(nil).AnyTimes()
			counter, err := manager.NewCounter(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			value, err := counter.Next()
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(uint64(ssn.MaxSSN)))
			_, err = counter.Next()
			Expect(errors.Is(err, ssn.ErrExhausted)).To(BeTrue())
		})

		It("keeps ID copies independent of the caller's buffers", func() {
			id := []byte{0xaa}
			m, err := ssn.NewManager(ssn.NewMemoryStore(), ssn.DefaultPolicy)
			Expect(err).ToNot(HaveOccurred())
			counter, err := m.NewCounter(id, nil, false)
			Expect(err).ToNot(HaveOccurred())
			id[0] = 0xbb
			Expect(counter.SenderID()).To(Equal([]byte{0xaa}))
			Expect(counter.Peek()).To(BeZero())
		})
	})

	Describe("recovery after a crash", func() {
		// Run a counter for uses values, drop it without shutdown, then recover.
		crashAndRecover := func(store ssn.Store, policy ssn.Policy, uses int) (lastUsed, recovered uint64) {
			m, err := ssn.NewManager(store, policy)
			Expect(err).ToNot(HaveOccurred())
			counter, err := m.NewCounter(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			for i := 0; i < uses; i++ {
				lastUsed, err = counter.Next()
				if err != nil {
					Expect(errors.Is(err, ssn.ErrCheckpointFailed)).To(BeTrue())
				}
			}
			restarted, err := m.NewCounter(senderID, idContext, true)
			Expect(err).ToNot(HaveOccurred())
			return lastUsed, restarted.Peek()
		}

		for _, policy := range []ssn.Policy{ssn.DefaultPolicy, {StoreInterval: 10, WriteFailureMargin: 15}, {StoreInterval: 1, WriteFailureMargin: 1}, {StoreInterval: 7, WriteFailureMargin: 30}} {
			policy := policy
			It(fmt.Sprintf("never reuses a value with interval %d and margin %d", policy.StoreInterval, policy.WriteFailureMargin), func() {
				for uses := 1; uses <= int(4*policy.StoreInterval); uses++ {
					lastUsed, recovered := crashAndRecover(ssn.NewMemoryStore(), policy, uses)
					Expect(recovered).To(BeNumerically(">", lastUsed), "after %d uses", uses)
				}
			})

			It(fmt.Sprintf("tolerates a failed checkpoint with interval %d and margin %d", policy.StoreInterval, policy.WriteFailureMargin), func() {
				start := policy.StoreInterval + policy.WriteFailureMargin
				firstBoundary := (start/policy.StoreInterval + 1) * policy.StoreInterval
				for uses := 1; uses <= int(4*policy.StoreInterval); uses++ {
					store := &flakyStore{MemoryStore: ssn.NewMemoryStore(), failures: map[uint64]bool{firstBoundary: true}}
					lastUsed, recovered := crashAndRecover(store, policy, uses)
					Expect(recovered).To(BeNumerically(">", lastUsed), "after %d uses", uses)
				}
			})
		}
	})
})
