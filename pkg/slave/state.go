package slave

// State is the protocol state of the engine.
type State int

// States of a transmit-only slave.
const (
	StateIdle           State = iota // waiting for a start condition
	StateAddress                     // start seen, arm 8 bits for the address
	StateProcessAddress              // address received, send (N)ACK
	StateRxCheck                     // address mismatch, prepare for next start
	StateTxData                      // send a data byte
	StateAckNack                     // receive the master's (N)ACK
	StateTxCheck                     // process the master's (N)ACK
)

var stateNames = []string{
	"idle",
	"address",
	"process-address",
	"rx-check",
	"tx-data",
	"ack-nack",
	"tx-check",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Outcome is how a transaction ended.
type Outcome int

// Transaction outcomes.
const (
	// OutcomeCompleted means all bytes of the buffer were sent and ACKed.
	OutcomeCompleted Outcome = iota
	// OutcomeNACKed means the master NACKed a byte, ending the read.
	OutcomeNACKed
	// OutcomeMismatch means the address was not ours.
	OutcomeMismatch
	// OutcomePreempted means a new start condition interrupted it.
	OutcomePreempted
)

var outcomeNames = []string{"completed", "nacked", "mismatch", "preempted"}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Transaction summarizes one ended transaction.
type Transaction struct {
	Outcome   Outcome
	Received  byte // address byte as received, R/W bit included
	BytesSent int
}

// Observer is notified from the interrupt handler when a transaction ends.
// It must not block.
type Observer interface {
	TransactionDone(Transaction)
}

// ObserverFunc is the func form of Observer.
type ObserverFunc func(Transaction)

// TransactionDone implements Observer.
func (f ObserverFunc) TransactionDone(t Transaction) {
	f(t)
}
