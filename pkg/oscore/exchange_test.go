package oscore_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/oscore-edhoc/wire/mocks"
	"github.com/oscore-edhoc/wire/pkg/cose"
	"github.com/oscore-edhoc/wire/pkg/oscore"
	"github.com/oscore-edhoc/wire/pkg/oscore/option"
	"github.com/oscore-edhoc/wire/pkg/oscore/ssn"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

var (
	senderID  = []byte{0x42}
	idContext = []byte{0x37, 0xcb}
)

func oscoreOption(value []byte) []option.CoapOption {
	return []option.CoapOption{
		{Number: 3, Value: []byte("example.com")},
		{Number: option.NumberOSCORE, Value: value},
		{Number: 11, Value: []byte("temp")},
	}
}

var _ = Describe("Sender", func() {
	var (
		store   *ssn.MemoryStore
		manager *ssn.Manager
	)

	BeforeEach(func() {
		var err error
		store = ssn.NewMemoryStore()
		manager, err = ssn.NewManager(store, ssn.DefaultPolicy)
		Expect(err).ToNot(HaveOccurred())
	})

	It("encodes consecutive Partial IVs with the sender ID as kid", func() {
		counter, err := manager.NewCounter(senderID, idContext, false)
		Expect(err).ToNot(HaveOccurred())
		sender := oscore.Sender{Counter: counter}

		out := make([]byte, 16)
		n, seq, err := sender.NextOption(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(seq).To(BeZero())
		Expect(out[:n]).To(Equal([]byte{0x09, 0x00, 0x42}))

		n, seq, err = sender.NextOption(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(seq).To(Equal(uint64(1)))
		Expect(out[:n]).To(Equal([]byte{0x09, 0x01, 0x42}))
	})

	It("includes the ID context when asked to", func() {
		counter, err := manager.NewCounter(senderID, idContext, false)
		Expect(err).ToNot(HaveOccurred())
		sender := oscore.Sender{Counter: counter, IncludeIDContext: true}

		out := make([]byte, 16)
		n, _, err := sender.NextOption(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(out[:n]).To(Equal([]byte{0x19, 0x00, 0x02, 0x37, 0xcb, 0x42}))
	})

	It("doesn't consume a sequence number when the buffer is too small", func() {
		counter, err := manager.NewCounter(senderID, idContext, false)
		Expect(err).ToNot(HaveOccurred())
		sender := oscore.Sender{Counter: counter}

		_, _, err = sender.NextOption(make([]byte, 2))
		Expect(errors.Is(err, protocol.ErrBufferTooSmall)).To(BeTrue())
		Expect(counter.Peek()).To(BeZero())
	})

	It("resumes past the checkpoint after a restart", func() {
		counter, err := manager.NewCounter(senderID, idContext, true)
		Expect(err).ToNot(HaveOccurred())
		sender := oscore.Sender{Counter: counter}
		out := make([]byte, 16)
		var last uint64
		for i := 0; i < 15; i++ {
			_, last, err = sender.NextOption(out)
			Expect(err).ToNot(HaveOccurred())
		}

		restarted, err := manager.NewCounter(senderID, idContext, true)
		Expect(err).ToNot(HaveOccurred())
		sender = oscore.Sender{Counter: restarted}
		_, seq, err := sender.NextOption(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(seq).To(BeNumerically(">", last))
	})
})

var _ = Describe("Recipient", func() {
	var (
		ctrl      *gomock.Controller
		reporter  *mocks.Reporter
		recipient *oscore.Recipient
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		reporter = mocks.NewReporter(ctrl)
		recipient = &oscore.Recipient{Reporter: reporter}
		DeferCleanup(func() {
			ctrl.Finish()
		})
	})

	It("accepts a fresh request once", func() {
		value := []byte{0x09, 0x14}
		opt, seq, err := recipient.Receive(oscoreOption(value))
		Expect(err).ToNot(HaveOccurred())
		Expect(seq).To(Equal(uint64(0x14)))
		Expect(opt.KID).ToNot(BeNil())
		Expect(opt.KID).To(BeEmpty())
		Expect(recipient.Commit(seq)).To(Succeed())

		reporter.EXPECT().SecurityEvent(oscore.ErrReplay, value)
		_, _, err = recipient.Receive(oscoreOption(value))
		Expect(err).To(MatchError(oscore.ErrReplay))
	})

	It("doesn't record a request that wasn't committed", func() {
		value := []byte{0x09, 0x14}
		_, _, err := recipient.Receive(oscoreOption(value))
		Expect(err).ToNot(HaveOccurred())
		_, _, err = recipient.Receive(oscoreOption(value))
		Expect(err).ToNot(HaveOccurred())
	})

	It("reports a reserved Partial IV length", func() {
		value := []byte{0x06}
		reporter.EXPECT().SecurityEvent(gomock.Any(), value).Do(func(err error, _ []byte) {
			Expect(errors.Is(err, option.ErrInvalidPIVLength)).To(BeTrue())
		})
		_, _, err := recipient.Receive(oscoreOption(value))
		Expect(errors.Is(err, protocol.ErrPolicyViolation)).To(BeTrue())
	})

	It("reports a truncated option", func() {
		value := []byte{0x13, 0x01, 0x05, 0xaa}
		reporter.EXPECT().SecurityEvent(gomock.Any(), value)
		_, _, err := recipient.Receive(oscoreOption(value))
		Expect(errors.Is(err, protocol.ErrMalformedInput)).To(BeTrue())
	})

	It("reports a repeated option", func() {
		opts := append(oscoreOption([]byte{0x09, 0x01}), option.CoapOption{Number: option.NumberOSCORE, Value: []byte{0x09, 0x02}})
		reporter.EXPECT().SecurityEvent(option.ErrDuplicateOption, nil)
		_, _, err := recipient.Receive(opts)
		Expect(err).To(MatchError(option.ErrDuplicateOption))
	})

	It("reports a request without Partial IV", func() {
		value := []byte{0x08, 0x01}
		reporter.EXPECT().SecurityEvent(oscore.ErrMissingPIV, value)
		_, _, err := recipient.Receive(oscoreOption(value))
		Expect(err).To(MatchError(oscore.ErrMissingPIV))
	})

	It("rejects unprotected messages without reporting them", func() {
		_, _, err := recipient.Receive([]option.CoapOption{{Number: 11, Value: []byte("temp")}})
		Expect(err).To(MatchError(oscore.ErrNoOption))
	})

	It("logs when no reporter is configured", func() {
		r := oscore.Recipient{}
		_, _, err := r.Receive(oscoreOption([]byte{0x07}))
		Expect(errors.Is(err, option.ErrInvalidPIVLength)).To(BeTrue())
	})
})

var _ = Describe("Request round trip", func() {
	It("protects with the sender's option and verifies with the recipient's", func() {
		key := make([]byte, 16)
		commonIV := make([]byte, 13)
		for i := range key {
			key[i] = byte(i)
		}
		ctx, err := oscore.NewContext(cose.AlgAESCCM16_64_128, key, commonIV)
		Expect(err).ToNot(HaveOccurred())

		manager, err := ssn.NewManager(ssn.NewMemoryStore(), ssn.DefaultPolicy)
		Expect(err).ToNot(HaveOccurred())
		counter, err := manager.NewCounter(senderID, nil, true)
		Expect(err).ToNot(HaveOccurred())
		sender := oscore.Sender{Counter: counter}

		value := make([]byte, 16)
		n, _, err := sender.NextOption(value)
		Expect(err).ToNot(HaveOccurred())
		sent, err := option.Decode(value[:n])
		Expect(err).ToNot(HaveOccurred())

		scratch := make([]byte, 64)
		ciphertext, err := ctx.SealRequest(nil, sent.KID, sent.PIV, []byte("GET /temp"), scratch)
		Expect(err).ToNot(HaveOccurred())

		recipient := oscore.Recipient{}
		received, seq, err := recipient.Receive(oscoreOption(value[:n]))
		Expect(err).ToNot(HaveOccurred())
		plaintext, err := ctx.OpenRequest(nil, received.KID, received.PIV, ciphertext, scratch)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(plaintext)).To(Equal("GET /temp"))
		Expect(recipient.Commit(seq)).To(Succeed())
	})
})
