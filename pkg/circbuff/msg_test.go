package circbuff_test

import (
	"bytes"
	"circularbuffer/pkg/circbuff"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestMsg_HelloScenario(t *testing.T) {
	rb := newBuff(t, 48)

	n, err := rb.WriteMsg([]byte("Hello"))
	if err != nil {
		t.Fatalf("writemsg failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("expect 5 payload bytes but got %d", n)
	}
	if rb.UsedSpace() != 9 {
		t.Fatalf("expect len 9 bytes but got %d", rb.UsedSpace())
	}
	if hdr := rb.Peek(4); !bytes.Equal(hdr, []byte{5, 0, 0, 0}) {
		t.Fatalf("expect little endian header but got %v", hdr)
	}

	msg, ok := rb.PeekMsg()
	if !ok || string(msg) != "Hello" {
		t.Fatalf("expect Hello but got %q (ok=%v)", msg, ok)
	}
	if rb.UsedSpace() != 9 {
		t.Fatalf("expect len 9 bytes after peekmsg but got %d", rb.UsedSpace())
	}

	msg, ok = rb.ReadMsg()
	if !ok || string(msg) != "Hello" {
		t.Fatalf("expect Hello but got %q (ok=%v)", msg, ok)
	}
	if rb.UsedSpace() != 0 {
		t.Fatalf("expect len 0 bytes but got %d", rb.UsedSpace())
	}
	if _, ok = rb.ReadMsg(); ok {
		t.Fatalf("expect no message on an empty buffer")
	}
}

func TestMsg_RoundTripWraparound(t *testing.T) {
	rb := newBuff(t, 32)
	for i := 0; i < 100; i++ {
		m := []byte(fmt.Sprintf("Hello%d", i))
		if _, err := rb.WriteMsg(m); err != nil {
			t.Fatalf("writemsg %d failed: %v", i, err)
		}
		got, ok := rb.ReadMsg()
		if !ok || !bytes.Equal(got, m) {
			t.Fatalf("expect %s but got %q (ok=%v)", m, got, ok)
		}
		if !rb.IsEmpty() {
			t.Fatalf("expect empty after round trip but got %v", rb)
		}
	}
}

func TestMsg_Largest(t *testing.T) {
	rb := newBuff(t, 16)
	rb.Write([]byte("0123456789"))
	rb.Drop(10) // head in the middle so the frame wraps

	m := []byte(strings.Repeat("m", 12))
	if _, err := rb.WriteMsg(m); err != nil {
		t.Fatalf("writemsg failed: %v", err)
	}
	if !rb.IsFull() {
		t.Fatalf("expect IsFull is true but got false. %v", rb)
	}
	got, ok := rb.ReadMsg()
	if !ok || !bytes.Equal(got, m) {
		t.Fatalf("expect %s but got %q", m, got)
	}
}

func TestMsg_InsufficientSpace(t *testing.T) {
	rb := newBuff(t, 16)
	rb.Write([]byte("abcdefgh"))

	// 4 + 5 > 8 free
	_, err := rb.WriteMsg([]byte("12345"))
	if !errors.Is(err, circbuff.ErrInsufficientSpace) {
		t.Fatalf("expect ErrInsufficientSpace but got %v", err)
	}
	if rb.UsedSpace() != 8 || string(rb.Bytes()) != "abcdefgh" {
		t.Fatalf("expect buffer untouched but got %q", rb.Bytes())
	}
	if rb.MsgCount() != 0 {
		t.Fatalf("expect msg count 0 but got %d", rb.MsgCount())
	}

	// 4 + 4 fits exactly
	if _, err = rb.WriteMsg([]byte("1234")); err != nil {
		t.Fatalf("writemsg failed: %v", err)
	}
	if rb.FreeSpace() != 0 {
		t.Fatalf("expect free 0 bytes but got %d", rb.FreeSpace())
	}
}

func TestMsg_PartialFrame(t *testing.T) {
	rb := newBuff(t, 32)

	// only part of the header has arrived
	rb.Write([]byte{6, 0})
	if _, ok := rb.ReadMsg(); ok {
		t.Fatalf("expect no message with a partial header")
	}
	rb.Write([]byte{0, 0, 'a', 'b', 'c'})
	if _, ok := rb.PeekMsg(); ok {
		t.Fatalf("expect no message with a partial payload")
	}
	if _, ok, err := rb.ReadMsgInto(make([]byte, 16)); ok || err != nil {
		t.Fatalf("expect no message with a partial payload but got ok=%v err=%v", ok, err)
	}
	if rb.DropMsg() {
		t.Fatalf("expect dropmsg to leave a partial frame alone")
	}
	if rb.UsedSpace() != 7 {
		t.Fatalf("expect header left in place, len 7 but got %d", rb.UsedSpace())
	}

	rb.Write([]byte("def"))
	got, ok := rb.ReadMsg()
	if !ok || string(got) != "abcdef" {
		t.Fatalf("expect abcdef but got %q (ok=%v)", got, ok)
	}
}

func TestMsg_ReadMsgInto(t *testing.T) {
	rb := newBuff(t, 48)
	rb.WriteMsg([]byte("Hello"))

	small := make([]byte, 3)
	_, ok, err := rb.ReadMsgInto(small)
	if !ok || !errors.Is(err, circbuff.ErrBufferTooSmall) {
		t.Fatalf("expect ErrBufferTooSmall but got ok=%v err=%v", ok, err)
	}
	if rb.UsedSpace() != 9 {
		t.Fatalf("expect frame intact, len 9 but got %d", rb.UsedSpace())
	}
	got, ok := rb.ReadMsg()
	if !ok || string(got) != "Hello" {
		t.Fatalf("expect Hello but got %q", got)
	}

	rb.WriteMsg([]byte("Hello"))
	dst := bytes.Repeat([]byte{'.'}, 10)
	n, ok, err := rb.ReadMsgInto(dst)
	if err != nil || !ok {
		t.Fatalf("readmsg_into failed: ok=%v err=%v", ok, err)
	}
	if n != 5 || string(dst) != "Hello....." {
		t.Fatalf("expect Hello..... but got %q (n=%d)", dst, n)
	}
	if !rb.IsEmpty() {
		t.Fatalf("expect empty but got %v", rb)
	}
}

func TestMsg_ZeroLength(t *testing.T) {
	rb := newBuff(t, 8)
	n, err := rb.WriteMsg(nil)
	if err != nil || n != 0 {
		t.Fatalf("expect empty message accepted but got n=%d err=%v", n, err)
	}
	if rb.UsedSpace() != circbuff.HeaderLen {
		t.Fatalf("expect len %d bytes but got %d", circbuff.HeaderLen, rb.UsedSpace())
	}
	l, ok := rb.NextMsgLen()
	if !ok || l != 0 {
		t.Fatalf("expect a complete empty message but got %d (ok=%v)", l, ok)
	}
	got, ok := rb.ReadMsg()
	if !ok || got == nil || len(got) != 0 {
		t.Fatalf("expect empty payload but got %v (ok=%v)", got, ok)
	}
}

func TestMsg_DropMsgAndCount(t *testing.T) {
	rb := newBuff(t, 64)
	for _, m := range []string{"one", "two", "three"} {
		rb.WriteMsg([]byte(m))
	}
	if rb.MsgCount() != 3 {
		t.Fatalf("expect 3 messages but got %d", rb.MsgCount())
	}
	if !rb.DropMsg() {
		t.Fatalf("expect dropmsg to succeed")
	}
	got, _ := rb.ReadMsg()
	if string(got) != "two" || rb.MsgCount() != 1 {
		t.Fatalf("expect two with 1 left but got %s with %d", got, rb.MsgCount())
	}
	rb.Clear()
	if rb.MsgCount() != 0 {
		t.Fatalf("expect 0 messages after clear but got %d", rb.MsgCount())
	}
}

func TestFrameCodec(t *testing.T) {
	frame, err := circbuff.AppendFrame(nil, []byte("ping"))
	if err != nil {
		t.Fatalf("appendframe failed: %v", err)
	}
	if !bytes.Equal(frame, []byte{4, 0, 0, 0, 'p', 'i', 'n', 'g'}) {
		t.Fatalf("unexpected frame %v", frame)
	}
	payload, err := circbuff.ParseFrame(frame)
	if err != nil || string(payload) != "ping" {
		t.Fatalf("expect ping but got %q (%v)", payload, err)
	}

	rb := newBuff(t, 16)
	rb.Write(frame)
	got, ok := rb.ReadMsg()
	if !ok || string(got) != "ping" {
		t.Fatalf("expect a buffer to read an encoded frame but got %q", got)
	}

	for _, bad := range [][]byte{{1, 0}, frame[:6], append(frame, 'x')} {
		if _, err := circbuff.ParseFrame(bad); !errors.Is(err, circbuff.ErrShortFrame) {
			t.Fatalf("expect ErrShortFrame for %v but got %v", bad, err)
		}
	}
}

func TestFrameCodec_HeaderRange(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("payload lengths above the header range need 64-bit ints")
	}
	limit := uint64(math.MaxUint32)
	if err := circbuff.CheckPayloadLen(int(limit)); err != nil {
		t.Fatalf("expect the largest header value accepted but got %v", err)
	}
	if err := circbuff.CheckPayloadLen(int(limit + 1)); !errors.Is(err, circbuff.ErrFrameTooLarge) {
		t.Fatalf("expect ErrFrameTooLarge but got %v", err)
	}
}
