package oscore

import (
	"github.com/oscore-edhoc/wire/internal/log"
	"github.com/oscore-edhoc/wire/pkg/oscore/option"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

//go:generate mockgen -destination ../../mocks/reporter.go -package mocks -mock_names Reporter=Reporter github.com/oscore-edhoc/wire/pkg/oscore Reporter

var (
	// ErrNoOption indicates a message without an OSCORE option.
	ErrNoOption = protocol.NewError(protocol.KindPolicyViolation, "oscore: message isn't protected")
	// ErrMissingPIV indicates a request without a Partial IV.
	ErrMissingPIV = protocol.NewError(protocol.KindMalformedInput, "oscore: request has no Partial IV")
)

// Reporter receives inbound traffic that was rejected because it was malformed or violated the
// protocol. Such traffic may be an attack and shouldn't be dropped silently.
type Reporter interface {
	SecurityEvent(err error, value []byte)
}

// LogReporter writes security events to the security log.
type LogReporter struct{}

func (LogReporter) SecurityEvent(err error, value []byte) {
	log.Security("oscore: rejected inbound option %x: %s", value, err)
}

func reporterOrDefault(r Reporter) Reporter {
	if r == nil {
		return LogReporter{}
	}
	return r
}

// ParseInbound extracts and decodes the OSCORE option from a received message. Security-relevant
// failures are passed to reporter (or logged if reporter is nil) before being returned.
func ParseInbound(opts []option.CoapOption, reporter Reporter) (opt option.CompressedOption, found bool, err error) {
	opt, found, err = option.Parse(opts)
	if err != nil && protocol.SecurityRelevant(err) {
		value, _, _ := option.Find(opts)
		reporterOrDefault(reporter).SecurityEvent(err, value)
	}
	return opt, found, err
}

// Recipient tracks the inbound state of one security context.
type Recipient struct {
	Window   ReplayWindow
	Reporter Reporter
}

// Receive parses the OSCORE option of a request and checks its sequence number against the replay
// window. The sequence number isn't recorded until Commit is called.
func (r *Recipient) Receive(opts []option.CoapOption) (option.CompressedOption, uint64, error) {
	opt, found, err := ParseInbound(opts, r.Reporter)
	if err != nil {
		return option.CompressedOption{}, 0, err
	}
	if !found {
		return option.CompressedOption{}, 0, ErrNoOption
	}
	value, _, _ := option.Find(opts)
	if !opt.HasPIV() {
		reporterOrDefault(r.Reporter).SecurityEvent(ErrMissingPIV, value)
		return option.CompressedOption{}, 0, ErrMissingPIV
	}
	seq, err := option.SSNFromPIV(opt.PIV)
	if err != nil {
		return option.CompressedOption{}, 0, err
	}
	if err := r.Window.Check(seq); err != nil {
		reporterOrDefault(r.Reporter).SecurityEvent(err, value)
		return option.CompressedOption{}, 0, err
	}
	return opt, seq, nil
}

// Commit records seq in the replay window once the request carrying it has been verified.
func (r *Recipient) Commit(seq uint64) error {
	return r.Window.Accept(seq)
}
