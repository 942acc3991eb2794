package framelink

import (
	"net"
	"net/netip"
	"sync"

	"circularbuffer/pkg/cbconfig"
	"circularbuffer/pkg/circbuff"
	"circularbuffer/pkg/proto"
	"circularbuffer/pkg/util"

	deque "github.com/gammazero/deque"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Received frames kept waiting for room in the receive buffer before the
// oldest ones are dropped.
const DefaultBacklogLimit = 1024

var (
	ErrNotOpen   = errors.New("link is not open")
	ErrMisrouted = errors.New("packet is not addressed to this link")
	ErrOversize  = errors.New("frame is larger than the receive buffer")
)

// Link pairs a send buffer and a receive buffer with a peer over UDP. Every
// complete frame flushed from send travels as one datagram and lands in the
// peer's receive buffer as the same frame.
type Link struct {
	cfg     cbconfig.LinkConfig
	send    *circbuff.CircBuff
	recv    *circbuff.CircBuff
	logger  *zap.Logger
	metrics *Metrics

	// guards send, recv, and backlog; may be shared with other links that use
	// the same buffers
	mu           sync.Locker
	backlog      *deque.Deque[[]byte]
	backlogLimit int
	scratch      []byte

	conn *net.UDPConn
	peer *net.UDPAddr
}

// New creates a link. A nil mu gives the link a lock of its own; nil logger
// and metrics fall back to no-op and unregistered ones.
func New(cfg cbconfig.LinkConfig, send, recv *circbuff.CircBuff, mu sync.Locker, logger *zap.Logger, metrics *Metrics) *Link {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Link{
		cfg:          cfg,
		send:         send,
		recv:         recv,
		logger:       logger.With(zap.String("link", cfg.Name)),
		metrics:      metrics,
		mu:           mu,
		backlog:      deque.New[[]byte](),
		backlogLimit: DefaultBacklogLimit,
		scratch:      make([]byte, proto.MaxFramePayload),
		peer:         net.UDPAddrFromAddrPort(cfg.PeerAddr),
	}
}

func (l *Link) Name() string {
	return l.cfg.Name
}

// Config returns a copy of the link config, including any peer set since.
func (l *Link) Config() cbconfig.LinkConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// Bind the link's UDP socket
func (l *Link) Open() error {
	conn, err := util.BindUDP(l.cfg.BindAddr)
	if err != nil {
		return errors.Wrapf(err, "link %s: could not bind to %s", l.cfg.Name, l.cfg.BindAddr)
	}
	l.conn = conn
	l.logger.Info("link bound", zap.Stringer("udp", util.LocalAddrPort(conn)))
	return nil
}

// LocalAddr is the bound UDP address, valid after Open.
func (l *Link) LocalAddr() netip.AddrPort {
	if l.conn == nil {
		return netip.AddrPort{}
	}
	return util.LocalAddrPort(l.conn)
}

// SetPeerAddr redirects future datagrams to addr.
func (l *Link) SetPeerAddr(addr netip.AddrPort) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.PeerAddr = addr
	l.peer = net.UDPAddrFromAddrPort(addr)
}

func (l *Link) Close() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}

// Do runs fn with the link's buffers while holding its lock.
func (l *Link) Do(fn func(send, recv *circbuff.CircBuff)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.send, l.recv)
}

// Flush sends every complete frame held in the send buffer and returns the
// number of datagrams written. Frames too large for one packet are dropped.
func (l *Link) Flush() (int, error) {
	if l.conn == nil {
		return 0, ErrNotOpen
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sent := 0
	for {
		msgLen, ok := l.send.NextMsgLen()
		if !ok {
			return sent, nil
		}
		if msgLen > proto.MaxFramePayload {
			l.send.DropMsg()
			l.dropped(ReasonOversize)
			l.logger.Warn("dropping frame larger than one packet",
				zap.Int("len", msgLen), zap.Int("max", proto.MaxFramePayload))
			continue
		}

		n, _, err := l.send.ReadMsgInto(l.scratch)
		if err != nil {
			return sent, err
		}
		if err := l.transmit(l.scratch[:n]); err != nil {
			l.dropped(ReasonSendError)
			return sent, err
		}
		sent++
		l.metrics.FramesSent.WithLabelValues(l.cfg.Name).Inc()
	}
}

// Deliver validates one datagram from the peer and queues its frame into the
// receive buffer. Frames that do not fit wait in the backlog, so arrival order
// is kept.
func (l *Link) Deliver(datagram []byte) error {
	p := new(proto.FramePacket)
	if err := p.Unmarshal(datagram); err != nil {
		l.dropped(ReasonMalformed)
		return err
	}
	if p.Header.Dst != l.cfg.LocalVIP {
		l.dropped(ReasonMisrouted)
		return errors.Wrapf(ErrMisrouted, "dst %s, link vip %s", p.Header.Dst, l.cfg.LocalVIP)
	}

	// A frame the receive buffer can never hold would block the backlog.
	if frameLen := circbuff.HeaderLen + len(p.Payload); frameLen > l.recv.Capacity() {
		l.dropped(ReasonOversize)
		l.logger.Warn("dropping frame larger than the receive buffer",
			zap.Int("len", frameLen), zap.Int("capacity", l.recv.Capacity()))
		return errors.Wrapf(ErrOversize, "%d > %d bytes", frameLen, l.recv.Capacity())
	}
	l.metrics.FramesReceived.WithLabelValues(l.cfg.Name).Inc()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pump()
	if l.backlog.Len() == 0 {
		_, err := l.recv.WriteMsg(p.Payload)
		if err == nil {
			return nil
		}
		if !errors.Is(err, circbuff.ErrInsufficientSpace) {
			return err
		}
	}
	l.park(p.Payload)
	return nil
}

// Pump moves backlogged frames into the receive buffer while they fit and
// returns how many moved.
func (l *Link) Pump() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pump()
}

func (l *Link) BacklogLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backlog.Len()
}

// SetBacklogLimit caps the backlog; values below one disable it.
func (l *Link) SetBacklogLimit(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backlogLimit = n
}
