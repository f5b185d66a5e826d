package admission

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies an admission event.
type EventKind uint8

const (
	EventAggregatorRegistered EventKind = iota + 1
	EventAggregatorDeactivated
	EventProofVerified
	EventProofRejected
)

func (k EventKind) String() string {
	switch k {
	case EventAggregatorRegistered:
		return "AggregatorRegistered"
	case EventAggregatorDeactivated:
		return "AggregatorDeactivated"
	case EventProofVerified:
		return "ProofVerified"
	case EventProofRejected:
		return "ProofRejected"
	default:
		return "Unknown"
	}
}

// RejectReason classifies a rejected submission.
type RejectReason uint8

const (
	ReasonNone RejectReason = iota
	ReasonInvalidProofFormat
	ReasonInvalidVKeyHash
	ReasonInvalidPublicValues
	ReasonBatchAlreadyVerified
	ReasonProofAlreadyUsed
	ReasonProofVerificationFailed
	ReasonInvalidMerkleRoot
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonInvalidProofFormat:
		return "InvalidProofFormat"
	case ReasonInvalidVKeyHash:
		return "InvalidVKeyHash"
	case ReasonInvalidPublicValues:
		return "InvalidPublicValues"
	case ReasonBatchAlreadyVerified:
		return "BatchAlreadyVerified"
	case ReasonProofAlreadyUsed:
		return "ProofAlreadyUsed"
	case ReasonProofVerificationFailed:
		return "ProofVerificationFailed"
	case ReasonInvalidMerkleRoot:
		return "InvalidMerkleRoot"
	default:
		return "Unknown"
	}
}

// Event is emitted by state transitions. Fields not relevant to Kind are
// zero.
type Event struct {
	Kind           EventKind
	Block          uint64
	Aggregator     common.Address
	BatchID        uint64
	SignatureCount uint32
	RequestsRoot   common.Hash
	Reason         RejectReason
}

// EventSink receives admission events in emission order.
type EventSink interface {
	Emit(Event)
}

type discardSink struct{}

func (discardSink) Emit(Event) {}

// EventLog is an in-memory EventSink.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Emit appends ev to the log.
func (l *EventLog) Emit(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Last returns the most recent event.
func (l *EventLog) Last() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
