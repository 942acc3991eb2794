package circbuff

import (
	"fmt"

	"github.com/pkg/errors"
)

// ------|----------------|--------------------|
//     head             tail               capacity
// head, tail < capacity. The live region is the size bytes starting at head,
// wrapping at capacity, so tail == (head + size) % capacity at all times.

type State int

const (
	StateEmpty State = iota
	StatePartial
	StateFull
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateFull:
		return "full"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// CircBuff is a fixed-capacity byte ring with a byte-stream mode and a
// length-prefixed message mode on top of it. It is not safe for concurrent
// use; callers sharing one across goroutines must serialize access.
type CircBuff struct {
	buff     []byte
	capacity int
	head     int
	tail     int
	size     int

	msgCount int
}

// New allocates a buffer that holds at most capacity bytes.
func New(capacity int) (*CircBuff, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrCapacity, "capacity %d", capacity)
	}
	return &CircBuff{
		buff:     make([]byte, capacity),
		capacity: capacity,
	}, nil
}

func (cb *CircBuff) Capacity() int {
	return cb.capacity
}

// Gets the number of bytes held
func (cb *CircBuff) UsedSpace() int {
	return cb.size
}

// Gets the available write space
func (cb *CircBuff) FreeSpace() int {
	return cb.capacity - cb.size
}

func (cb *CircBuff) IsEmpty() bool {
	return cb.size == 0
}

func (cb *CircBuff) IsFull() bool {
	return cb.size == cb.capacity
}

func (cb *CircBuff) State() State {
	switch cb.size {
	case 0:
		return StateEmpty
	case cb.capacity:
		return StateFull
	}
	return StatePartial
}

func (cb *CircBuff) String() string {
	return fmt.Sprintf("capacity=%d used=%d free=%d", cb.capacity, cb.size, cb.capacity-cb.size)
}

// copyIn copies exactly n bytes of src to the tail and advances it.
// The caller must make sure n <= FreeSpace().
func (cb *CircBuff) copyIn(src []byte, n int) {
	if n == 0 {
		return
	}
	tailSpace := cb.capacity - cb.tail
	if tailSpace >= n { // enough room between tail and the end
		copy(cb.buff[cb.tail:], src[:n])
	} else { // split in two
		copy(cb.buff[cb.tail:], src[:tailSpace])
		copy(cb.buff[0:], src[tailSpace:n])
	}
	cb.advanceTail(n)
}

// copyOut copies n bytes of the live region, starting off bytes after head,
// into dst. It never moves head or tail.
// The caller must make sure off+n <= UsedSpace().
func (cb *CircBuff) copyOut(dst []byte, n int, off int) {
	if n == 0 {
		return
	}
	start := cb.head + off
	if start >= cb.capacity {
		start -= cb.capacity
	}
	end := start + n
	if end <= cb.capacity {
		copy(dst, cb.buff[start:end])
		return
	}
	first := cb.capacity - start
	copy(dst, cb.buff[start:cb.capacity])
	copy(dst[first:n], cb.buff[:end-cb.capacity])
}

func (cb *CircBuff) advanceHead(n int) {
	cb.head = (cb.head + n) % cb.capacity
	cb.size -= n
}

func (cb *CircBuff) advanceTail(n int) {
	cb.tail = (cb.tail + n) % cb.capacity
	cb.size += n
}

// Stale bytes are left in place; nothing outside the live region is ever read.
func (cb *CircBuff) reset() {
	cb.head = 0
	cb.tail = 0
	cb.size = 0
	cb.msgCount = 0
}
