package framelink

import (
	"net"

	"circularbuffer/pkg/proto"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Listen on the link socket until it is closed, handing datagrams to Deliver
func (l *Link) Serve() error {
	if l.conn == nil {
		return ErrNotOpen
	}
	buf := make([]byte, proto.MTU)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.logger.Error("error reading from UDP socket", zap.Error(err))
			return err
		}
		if err := l.Deliver(buf[:n]); err != nil {
			l.logger.Debug("dropping datagram", zap.Error(err))
		}
	}
}

// The link should be locked on entry.
func (l *Link) transmit(payload []byte) error {
	packet, err := proto.NewFramePacket(l.cfg.LocalVIP, l.cfg.PeerVIP, payload)
	if err != nil {
		return err
	}
	bytesToSend, err := packet.Marshal()
	if err != nil {
		return errors.Wrap(err, "error marshalling packet")
	}
	if _, err = l.conn.WriteToUDP(bytesToSend, l.peer); err != nil {
		return errors.Wrap(err, "error writing to socket")
	}
	return nil
}

// The link should be locked on entry.
func (l *Link) pump() int {
	moved := 0
	for l.backlog.Len() > 0 {
		if _, err := l.recv.WriteMsg(l.backlog.Front()); err != nil {
			break
		}
		l.backlog.PopFront()
		moved++
	}
	l.metrics.BacklogDepth.WithLabelValues(l.cfg.Name).Set(float64(l.backlog.Len()))
	return moved
}

// The payload aliases the read buffer, so the backlog keeps its own copy.
// The link should be locked on entry.
func (l *Link) park(payload []byte) {
	if l.backlogLimit < 1 {
		l.dropped(ReasonBacklogFull)
		return
	}
	for l.backlog.Len() >= l.backlogLimit {
		l.backlog.PopFront()
		l.dropped(ReasonBacklogFull)
	}
	l.backlog.PushBack(append([]byte(nil), payload...))
	l.metrics.BacklogDepth.WithLabelValues(l.cfg.Name).Set(float64(l.backlog.Len()))
}

func (l *Link) dropped(reason string) {
	l.metrics.FramesDropped.WithLabelValues(l.cfg.Name, reason).Inc()
}
