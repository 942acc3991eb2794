package circbuff

import "github.com/pkg/errors"

// Write copies as much of data as fits and returns the number of bytes
// written. A short count is the only backpressure signal; it is not an error.
func (cb *CircBuff) Write(data []byte) int {
	n := min(len(data), cb.FreeSpace())
	cb.copyIn(data, n)
	return n
}

// Read consumes up to n bytes. The result is empty, never nil, when nothing
// is held.
func (cb *CircBuff) Read(n int) []byte {
	buf := cb.Peek(n)
	cb.advanceHead(len(buf))
	return buf
}

// Peek returns up to n bytes from the head without consuming them.
func (cb *CircBuff) Peek(n int) []byte {
	k := cb.clamp(n)
	buf := make([]byte, k)
	cb.copyOut(buf, k, 0)
	return buf
}

// ReadInto consumes up to len(dst) bytes into dst and returns the count.
func (cb *CircBuff) ReadInto(dst []byte) int {
	k := cb.clamp(len(dst))
	cb.copyOut(dst, k, 0)
	cb.advanceHead(k)
	return k
}

// Drop discards up to n bytes from the head and returns how many went.
func (cb *CircBuff) Drop(n int) int {
	k := cb.clamp(n)
	cb.advanceHead(k)
	return k
}

func (cb *CircBuff) Clear() {
	cb.reset()
}

// At returns byte i of the live region. Negative i counts back from the
// newest byte.
func (cb *CircBuff) At(i int) (byte, error) {
	if i < 0 {
		i += cb.size
	}
	if i < 0 || i >= cb.size {
		return 0, errors.Wrapf(ErrIndex, "index %d with %d bytes held", i, cb.size)
	}
	return cb.buff[(cb.head+i)%cb.capacity], nil
}

// Slice returns a copy of bytes [start, stop) of the live region. Negative
// bounds count back from the newest byte. An empty or inverted range is
// ErrIndex.
func (cb *CircBuff) Slice(start, stop int) ([]byte, error) {
	if start < 0 {
		start += cb.size
	}
	if stop < 0 {
		stop += cb.size
	}
	if start < 0 || stop > cb.size || stop <= start {
		return nil, errors.Wrapf(ErrIndex, "range [%d:%d] with %d bytes held", start, stop, cb.size)
	}
	buf := make([]byte, stop-start)
	cb.copyOut(buf, stop-start, start)
	return buf, nil
}

// Bytes returns a copy of the whole live region, or nil when empty.
func (cb *CircBuff) Bytes() []byte {
	if cb.size == 0 {
		return nil
	}
	buf := make([]byte, cb.size)
	cb.copyOut(buf, cb.size, 0)
	return buf
}

func (cb *CircBuff) clamp(n int) int {
	if n <= 0 {
		return 0
	}
	return min(n, cb.size)
}
