package proto

import (
	"net/netip"

	"circularbuffer/pkg/circbuff"

	ipv4header "github.com/brown-csci1680/iptcp-headers"
	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"
)

const (
	MTU                = 1400 // maximum-transmission-unit, default 1400 bytes
	DefaultIpHeaderLen = ipv4header.HeaderLen

	ProtoNumFrame uint8 = 201

	// Largest payload a single frame packet can carry.
	MaxFramePayload = MTU - DefaultIpHeaderLen - circbuff.HeaderLen
)

var (
	ErrChecksum  = errors.New("checksum mismatch")
	ErrNotFrame  = errors.New("not a frame packet")
	ErrTooLarge  = errors.New("payload exceeds MTU")
	ErrTruncated = errors.New("packet shorter than its total length")
)

// FramePacket carries exactly one frame behind an IPv4 header.
type FramePacket struct {
	Header  *ipv4header.IPv4Header
	Payload []byte
}

// Create a new frame packet. Payloads larger than MaxFramePayload are rejected
// rather than truncated, since a cut frame would no longer parse.
func NewFramePacket(srcIP netip.Addr, destIP netip.Addr, payload []byte) (*FramePacket, error) {
	if len(payload) > MaxFramePayload {
		return nil, errors.Wrapf(ErrTooLarge, "%d > %d bytes", len(payload), MaxFramePayload)
	}
	return &FramePacket{
		Header:  newHeader(srcIP, destIP, circbuff.HeaderLen+len(payload)),
		Payload: payload,
	}, nil
}

// Marshal fills in the header checksum and returns header || frame.
func (p *FramePacket) Marshal() ([]byte, error) {
	p.Header.Checksum = 0
	headerBytes, err := p.Header.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling header")
	}
	p.Header.Checksum = int(ComputeChecksum(headerBytes))
	headerBytes, err = p.Header.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling header")
	}

	bytesToSend := make([]byte, 0, len(headerBytes)+circbuff.HeaderLen+len(p.Payload))
	bytesToSend = append(bytesToSend, headerBytes...)
	return circbuff.AppendFrame(bytesToSend, p.Payload)
}

// Unmarshal parses and validates a datagram. Payload aliases data.
func (p *FramePacket) Unmarshal(data []byte) error {
	hdr, err := ipv4header.ParseHeader(data)
	if err != nil {
		return errors.Wrap(err, "error parsing header")
	}
	if hdr.TotalLen > len(data) || hdr.TotalLen < hdr.Len {
		return errors.Wrapf(ErrTruncated, "total length %d, got %d bytes", hdr.TotalLen, len(data))
	}

	checksumFromHeader := uint16(hdr.Checksum)
	if checksumFromHeader != ValidateIPChecksum(data[:hdr.Len], checksumFromHeader) {
		return ErrChecksum
	}
	if uint8(hdr.Protocol) != ProtoNumFrame {
		return errors.Wrapf(ErrNotFrame, "protocol %d", hdr.Protocol)
	}

	payload, err := circbuff.ParseFrame(data[hdr.Len:hdr.TotalLen])
	if err != nil {
		return err
	}
	p.Header = hdr
	p.Payload = payload
	return nil
}

func ComputeChecksum(b []byte) uint16 {
	checksum := header.Checksum(b, 0)

	// header.Checksum returns the one's complement sum; the field stores its
	// inverse so that the receiver can fold the stored value back in.
	checksumInv := checksum ^ 0xffff

	return checksumInv
}

// ValidateIPChecksum returns fromHeader when b (a header whose checksum field
// is still set) is intact.
func ValidateIPChecksum(b []byte, fromHeader uint16) uint16 {
	checksum := header.Checksum(b, fromHeader)

	return checksum
}

func newHeader(srcIP netip.Addr, destIP netip.Addr, frameLen int) *ipv4header.IPv4Header {
	return &ipv4header.IPv4Header{
		Version:  4,
		Len:      DefaultIpHeaderLen, // Header length is always 20 when no IP option is provided
		TOS:      0,
		TotalLen: DefaultIpHeaderLen + frameLen,
		ID:       0,
		Flags:    0,
		FragOff:  0,
		TTL:      32,
		Protocol: int(ProtoNumFrame),
		Checksum: 0, // Should be 0 until checksum is computed
		Src:      srcIP,
		Dst:      destIP,
		Options:  []byte{},
	}
}
