package circbuff

import "github.com/pkg/errors"

var (
	// ErrCapacity is returned by New for a capacity that is not positive.
	ErrCapacity = errors.New("capacity must be a positive integer")

	// ErrInsufficientSpace is returned by WriteMsg when header and payload do
	// not fit. The buffer is left untouched.
	ErrInsufficientSpace = errors.New("not enough free space for message")

	// ErrBufferTooSmall is returned by ReadMsgInto when the destination is
	// shorter than the pending payload. The message stays queued.
	ErrBufferTooSmall = errors.New("buffer is too small for message")

	ErrIndex      = errors.New("index out of range")
	ErrShortFrame = errors.New("malformed frame")

	// ErrFrameTooLarge is returned for a payload longer than a header can
	// describe.
	ErrFrameTooLarge = errors.New("payload exceeds the header range")
)
