// Package ssn manages the OSCORE sender sequence number across restarts.
//
// A sender must never reuse a sequence number with the same key. The Manager checkpoints the
// counter to non-volatile storage every Policy.StoreInterval values and, after a restart, resumes
// from the last checkpoint plus the interval plus a safety margin. The margin covers checkpoints
// that failed before the crash, so Policy.Validate requires it to be at least the interval.
package ssn

import (
	"errors"
	"fmt"

	"github.com/oscore-edhoc/wire/internal/log"
	"github.com/oscore-edhoc/wire/pkg/oscore/option"
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// MaxSSN is the largest usable sequence number.
const MaxSSN = option.MaxSSN

var (
	// ErrNilStore indicates a Manager was constructed without a Store.
	ErrNilStore = protocol.NewError(protocol.KindPolicyViolation, "ssn: nil store, use UnimplementedStore to run without persistence")
	// ErrInvalidPolicy indicates a Policy that can't guarantee sequence numbers aren't reused.
	ErrInvalidPolicy = protocol.NewError(protocol.KindPolicyViolation, "ssn: invalid persistence policy")
	// ErrRecoveryFailed indicates the persisted value couldn't be read. The security context must
	// not be established.
	ErrRecoveryFailed = protocol.NewError(protocol.KindStorageUnavailable, "ssn: can't recover sequence number")
	// ErrCheckpointFailed indicates a checkpoint write failed. The caller may continue with degraded
	// persistence.
	ErrCheckpointFailed = protocol.NewError(protocol.KindStorageUnavailable, "ssn: checkpoint failed")
	// ErrExhausted indicates the sequence number space is used up. The context must be rekeyed.
	ErrExhausted = protocol.NewError(protocol.KindPolicyViolation, "ssn: sequence number space exhausted")
)

// Policy controls how often the counter is checkpointed and how far it jumps on recovery.
type Policy struct {
	// StoreInterval is the number of sequence numbers between checkpoints.
	StoreInterval uint64
	// WriteFailureMargin is added on recovery on top of StoreInterval. Must be at least
	// StoreInterval.
	WriteFailureMargin uint64
}

// DefaultPolicy checkpoints every 10 sequence numbers and tolerates one failed checkpoint.
var DefaultPolicy = Policy{StoreInterval: 10, WriteFailureMargin: 10}

// Validate returns an error if p can't guarantee that a recovered counter exceeds every value used
// before a crash.
func (p Policy) Validate() error {
	if p.StoreInterval == 0 {
		return fmt.Errorf("%w: store interval must be positive", ErrInvalidPolicy)
	}
	if p.WriteFailureMargin < p.StoreInterval {
		return fmt.Errorf("%w: write failure margin %d is less than store interval %d",
			ErrInvalidPolicy, p.WriteFailureMargin, p.StoreInterval)
	}
	if p.WriteFailureMargin > MaxSSN-p.StoreInterval {
		return fmt.Errorf("%w: recovery offset exceeds sequence number space", ErrInvalidPolicy)
	}
	return nil
}

// recoveryOffset is the distance between a persisted value and the value resumed after restart.
func (p Policy) recoveryOffset() uint64 {
	return p.StoreInterval + p.WriteFailureMargin
}

// Manager implements sequence number initialization and checkpointing for any number of security
// contexts sharing a Store. The Manager itself holds no per-context state.
type Manager struct {
	store  Store
	policy Policy
}

// NewManager returns a Manager that persists counters to store according to policy.
//
// Pass UnimplementedStore to run without persistence. Doing so is logged as a warning, since every
// persistent context will then fail to initialize.
func NewManager(store Store, policy Policy) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if isUnimplemented(store) {
		log.Warning("ssn: no persistent store configured; sequence numbers can't be recovered after restart")
	}
	return &Manager{store: store, policy: policy}, nil
}

// Policy returns the Manager's persistence policy.
func (m *Manager) Policy() Policy {
	return m.policy
}

// Init returns the first sequence number to use for the context identified by senderID and
// idContext.
//
// Without persistence the counter starts at zero. Otherwise Init reads the last checkpoint and
// returns it plus the recovery offset. A missing record is treated as a checkpoint of zero, since
// values below the first checkpoint may have been used before a crash. A read failure wraps
// ErrRecoveryFailed and is fatal for the context.
func (m *Manager) Init(senderID, idContext []byte, persistent bool) (uint64, error) {
	if !persistent {
		return 0, nil
	}
	persisted, err := m.store.ReadSSN(senderID, idContext)
	if errors.Is(err, ErrNoRecord) {
		log.Info("ssn: no checkpoint for sender %x context %x, starting fresh", senderID, idContext)
		persisted, err = 0, nil
	}
	if err != nil {
		log.Error("ssn: reading checkpoint for sender %x context %x: %s", senderID, idContext, err)
		return 0, fmt.Errorf("%w: %w", ErrRecoveryFailed, err)
	}
	if persisted > MaxSSN-m.policy.recoveryOffset() {
		log.Security("ssn: checkpoint %d for sender %x context %x leaves no usable sequence numbers", persisted, senderID, idContext)
		return 0, fmt.Errorf("%w: checkpoint %d", ErrExhausted, persisted)
	}
	ssn := persisted + m.policy.recoveryOffset()
	log.Info("ssn: recovered sender %x context %x at %d (checkpoint %d)", senderID, idContext, ssn, persisted)
	return ssn, nil
}

// StoreInNVM checkpoints ssn if persistence is enabled and ssn is a multiple of the store
// interval. Other values are ignored. A write failure wraps ErrCheckpointFailed; the caller decides
// whether to keep sending.
func (m *Manager) StoreInNVM(senderID, idContext []byte, ssn uint64, persistent bool) error {
	if !persistent || ssn%m.policy.StoreInterval != 0 {
		return nil
	}
	return m.checkpoint(senderID, idContext, ssn)
}

func (m *Manager) checkpoint(senderID, idContext []byte, ssn uint64) error {
	if err := m.store.WriteSSN(senderID, idContext, ssn); err != nil {
		log.Warning("ssn: checkpoint %d for sender %x context %x failed: %s", ssn, senderID, idContext, err)
		return fmt.Errorf("%w: %w", ErrCheckpointFailed, err)
	}
	log.Debug("ssn: checkpointed sender %x context %x at %d", senderID, idContext, ssn)
	return nil
}
