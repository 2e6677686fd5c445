package network

import (
	"gonum.org/v1/gonum/spatial/r2"
)

const defaultPredictionBufferSize = 256

// InputRecord stores an input alongside the predicted position after applying it.
type InputRecord struct {
	Input     r2.Vec // Normalised direction actually integrated (zero while stunned)
	Predicted r2.Vec
	Sequence  uint32
	StunStart bool // A stun began on the tick that consumed this input
	Frozen    bool // Integrated under the predicted stun view
}

// PredictionBuffer is a ring buffer of unacknowledged inputs and their
// predicted outcomes, indexed by sequence number. Records are contiguous in
// sequence from head to tail; trimming only advances the head cursor.
type PredictionBuffer struct {
	history []InputRecord
	mask    uint32
	head    uint32 // Sequence of the oldest retained record
	count   int
	nextSeq uint32
	dropped uint64
}

// NewPredictionBuffer creates a buffer holding at least capacity records.
// Capacity is rounded up to a power of two; sequences start at 1.
func NewPredictionBuffer(capacity int) *PredictionBuffer {
	if capacity < 2 {
		capacity = defaultPredictionBufferSize
	}
	size := uint32(1)
	for size < uint32(capacity) {
		size <<= 1
	}
	return &PredictionBuffer{
		history: make([]InputRecord, size),
		mask:    size - 1,
		head:    1,
		nextSeq: 1,
	}
}

// Append stores a record under the next sequence number and returns it. When
// the ring is full the oldest record is overwritten.
func (pb *PredictionBuffer) Append(input, predicted r2.Vec, stunStart, frozen bool) uint32 {
	seq := pb.nextSeq
	if pb.count == len(pb.history) {
		pb.head++
		pb.count--
		pb.dropped++
	}
	if pb.count == 0 {
		pb.head = seq
	}
	pb.history[seq&pb.mask] = InputRecord{
		Input:     input,
		Predicted: predicted,
		Sequence:  seq,
		StunStart: stunStart,
		Frozen:    frozen,
	}
	pb.count++
	pb.nextSeq = seq + 1
	return seq
}

// Get retrieves a retained record by sequence number.
func (pb *PredictionBuffer) Get(seq uint32) (InputRecord, bool) {
	if pb.count == 0 || seq < pb.head || seq >= pb.head+uint32(pb.count) {
		return InputRecord{}, false
	}
	return pb.history[seq&pb.mask], true
}

// At returns a pointer to the i-th retained record, oldest first. The
// pointer is valid until the next Append.
func (pb *PredictionBuffer) At(i int) *InputRecord {
	if i < 0 || i >= pb.count {
		return nil
	}
	return &pb.history[(pb.head+uint32(i))&pb.mask]
}

// Head returns the oldest retained record.
func (pb *PredictionBuffer) Head() (InputRecord, bool) {
	if pb.count == 0 {
		return InputRecord{}, false
	}
	return *pb.At(0), true
}

// Tail returns the newest record.
func (pb *PredictionBuffer) Tail() (InputRecord, bool) {
	if pb.count == 0 {
		return InputRecord{}, false
	}
	return *pb.At(pb.count - 1), true
}

// Trim drops records acknowledged before ack, always keeping at least one.
// It returns the number of records dropped and is idempotent for a given ack.
func (pb *PredictionBuffer) Trim(ack uint32) int {
	if pb.count <= 1 || ack <= pb.head {
		return 0
	}
	n := int(ack - pb.head)
	if n > pb.count-1 {
		n = pb.count - 1
	}
	pb.head += uint32(n)
	pb.count -= n
	return n
}

// Len reports the number of retained records.
func (pb *PredictionBuffer) Len() int { return pb.count }

// Capacity reports the ring size.
func (pb *PredictionBuffer) Capacity() int { return len(pb.history) }

// NextSeq returns the sequence number the next Append will use.
func (pb *PredictionBuffer) NextSeq() uint32 { return pb.nextSeq }

// Overwritten reports how many unacknowledged records were lost to a full ring.
func (pb *PredictionBuffer) Overwritten() uint64 { return pb.dropped }

// Records copies the retained records, oldest first.
func (pb *PredictionBuffer) Records() []InputRecord {
	out := make([]InputRecord, pb.count)
	for i := range out {
		out[i] = *pb.At(i)
	}
	return out
}

// PredictionError calculates the distance between predicted and actual server
// position for a given sequence.
func (pb *PredictionBuffer) PredictionError(seq uint32, server r2.Vec) float64 {
	record, ok := pb.Get(seq)
	if !ok {
		return 0
	}
	return r2.Norm(r2.Sub(record.Predicted, server))
}

// MarkStunStart flags the record for seq as the tick a stun began on. It
// reports false when the record is no longer retained.
func (pb *PredictionBuffer) MarkStunStart(seq uint32) bool {
	if _, ok := pb.Get(seq); !ok {
		return false
	}
	pb.history[seq&pb.mask].StunStart = true
	return true
}

// Reset drops every record but keeps the sequence counter, so sequences are
// never reused.
func (pb *PredictionBuffer) Reset() {
	pb.count = 0
	pb.head = pb.nextSeq
}
