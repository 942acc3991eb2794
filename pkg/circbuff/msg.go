package circbuff

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// A message is a HeaderLen-byte little-endian payload length followed by the
// payload. Anything exchanging frames with this package must agree on it.
const HeaderLen = 4

var byteOrder = binary.LittleEndian

// WriteMsg appends data as one frame. Either the whole frame is written or,
// with ErrInsufficientSpace, nothing is.
func (cb *CircBuff) WriteMsg(data []byte) (int, error) {
	if err := checkPayloadLen(len(data)); err != nil {
		return 0, errors.Wrap(ErrInsufficientSpace, err.Error())
	}
	required := HeaderLen + len(data)
	if required > cb.FreeSpace() {
		return 0, errors.Wrapf(ErrInsufficientSpace, "need %d bytes, %d free", required, cb.FreeSpace())
	}

	var hdr [HeaderLen]byte
	byteOrder.PutUint32(hdr[:], uint32(len(data)))
	cb.Write(hdr[:])
	cb.Write(data)
	cb.msgCount++
	return len(data), nil
}

// ReadMsg consumes the next frame and returns its payload. ok is false, and
// nothing is consumed, while the frame is absent or still incomplete.
func (cb *CircBuff) ReadMsg() (payload []byte, ok bool) {
	msgLen, ok := cb.NextMsgLen()
	if !ok {
		return nil, false
	}
	cb.Drop(HeaderLen)
	payload = cb.Read(msgLen)
	cb.msgConsumed()
	return payload, true
}

// PeekMsg is ReadMsg without consuming anything.
func (cb *CircBuff) PeekMsg() (payload []byte, ok bool) {
	msgLen, ok := cb.NextMsgLen()
	if !ok {
		return nil, false
	}
	payload = make([]byte, msgLen)
	cb.copyOut(payload, msgLen, HeaderLen)
	return payload, true
}

// ReadMsgInto copies the next frame's payload into dst[:n] and consumes the
// frame. If dst is too short it returns ErrBufferTooSmall and the frame stays
// in place for a later call.
func (cb *CircBuff) ReadMsgInto(dst []byte) (n int, ok bool, err error) {
	msgLen, ok := cb.NextMsgLen()
	if !ok {
		return 0, false, nil
	}
	if len(dst) < msgLen {
		return 0, true, errors.Wrapf(ErrBufferTooSmall, "message is %d bytes, buffer is %d", msgLen, len(dst))
	}
	cb.copyOut(dst, msgLen, HeaderLen)
	cb.Drop(HeaderLen)
	cb.Drop(msgLen)
	cb.msgConsumed()
	return msgLen, true, nil
}

// DropMsg discards the next complete frame. It reports whether one was there.
func (cb *CircBuff) DropMsg() bool {
	msgLen, ok := cb.NextMsgLen()
	if !ok {
		return false
	}
	cb.Drop(HeaderLen + msgLen)
	cb.msgConsumed()
	return true
}

// NextMsgLen decodes the pending header and returns the payload length if the
// whole frame is held.
func (cb *CircBuff) NextMsgLen() (int, bool) {
	if cb.size < HeaderLen {
		return 0, false
	}
	var hdr [HeaderLen]byte
	cb.copyOut(hdr[:], HeaderLen, 0)
	msgLen := uint64(byteOrder.Uint32(hdr[:]))
	if uint64(cb.size-HeaderLen) < msgLen {
		return 0, false
	}
	return int(msgLen), true
}

// MsgCount is the number of frames written with WriteMsg that no message read
// has consumed yet. Byte-mode reads do not adjust it.
func (cb *CircBuff) MsgCount() int {
	return cb.msgCount
}

func (cb *CircBuff) msgConsumed() {
	if cb.msgCount > 0 {
		cb.msgCount--
	}
}

// AppendFrame appends the framed form of payload to dst. Payloads the header
// cannot describe are ErrFrameTooLarge and leave dst as it was.
func AppendFrame(dst []byte, payload []byte) ([]byte, error) {
	if err := checkPayloadLen(len(payload)); err != nil {
		return dst, err
	}
	dst = byteOrder.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

func checkPayloadLen(n int) error {
	if uint64(n) > math.MaxUint32 {
		return errors.Wrapf(ErrFrameTooLarge, "payload of %d bytes", n)
	}
	return nil
}

// ParseFrame decodes b as exactly one frame and returns its payload, which
// aliases b.
func ParseFrame(b []byte) ([]byte, error) {
	if len(b) < HeaderLen {
		return nil, errors.Wrapf(ErrShortFrame, "%d bytes is shorter than the header", len(b))
	}
	msgLen := uint64(byteOrder.Uint32(b[:HeaderLen]))
	if msgLen != uint64(len(b)-HeaderLen) {
		return nil, errors.Wrapf(ErrShortFrame, "header says %d bytes, %d follow", msgLen, len(b)-HeaderLen)
	}
	return b[HeaderLen:], nil
}
