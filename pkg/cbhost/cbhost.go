package cbhost

import (
	"net/http"
	"sync"
	"time"

	"circularbuffer/pkg/cbconfig"
	"circularbuffer/pkg/circbuff"
	"circularbuffer/pkg/framelink"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Host owns the named buffers and links declared in a config. Buffers are
// single-owner structures, so every access from the shell or from a link's
// receive goroutine goes through mu.
type Host struct {
	mu      sync.Mutex
	Buffers map[string]*circbuff.CircBuff
	Links   map[string]*framelink.Link

	config   *cbconfig.HostConfig
	registry *prometheus.Registry
	metrics  *framelink.Metrics
	server   *http.Server
	logger   *zap.Logger
	serveWG  sync.WaitGroup
}

func New(config *cbconfig.HostConfig, logger *zap.Logger) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		Buffers:  make(map[string]*circbuff.CircBuff),
		Links:    make(map[string]*framelink.Link),
		config:   config,
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	h.metrics = framelink.NewMetrics(h.registry)

	for _, bcfg := range config.Buffers {
		cb, err := circbuff.New(bcfg.Capacity)
		if err != nil {
			return nil, errors.Wrapf(err, "buffer %s", bcfg.Name)
		}
		h.Buffers[bcfg.Name] = cb
		h.registerBufferGauges(bcfg.Name, cb)
	}

	for _, lcfg := range config.Links {
		send, ok := h.Buffers[lcfg.SendBuffer]
		if !ok {
			return nil, errors.Errorf("link %s: unknown send buffer %s", lcfg.Name, lcfg.SendBuffer)
		}
		recv, ok := h.Buffers[lcfg.RecvBuffer]
		if !ok {
			return nil, errors.Errorf("link %s: unknown recv buffer %s", lcfg.Name, lcfg.RecvBuffer)
		}
		h.Links[lcfg.Name] = framelink.New(lcfg, send, recv, &h.mu, logger, h.metrics)
	}
	return h, nil
}

// Start binds every link, starts its receive loop, and serves /metrics when
// an address is configured.
func (h *Host) Start() error {
	for name, l := range h.Links {
		if err := l.Open(); err != nil {
			return err
		}
		h.serveWG.Add(1)
		go func(name string, l *framelink.Link) {
			defer h.serveWG.Done()
			if err := l.Serve(); err != nil {
				h.logger.Error("link stopped", zap.String("link", name), zap.Error(err))
			}
		}(name, l)
	}

	if h.config.MetricsAddr.IsValid() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
		h.server = &http.Server{
			Addr:              h.config.MetricsAddr.String(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				h.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		h.logger.Info("serving metrics", zap.Stringer("addr", h.config.MetricsAddr))
	}
	return nil
}

func (h *Host) Close() error {
	var firstErr error
	for _, l := range h.Links {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.serveWG.Wait()
	if h.server != nil {
		if err := h.server.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *Host) Registry() *prometheus.Registry {
	return h.registry
}

// WithBuffer runs fn on the named buffer under the host lock.
func (h *Host) WithBuffer(name string, fn func(cb *circbuff.CircBuff) error) error {
	cb, ok := h.Buffers[name]
	if !ok {
		return errors.Errorf("buffer %s does not exist", name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(cb)
}

func (h *Host) link(name string) (*framelink.Link, error) {
	l, ok := h.Links[name]
	if !ok {
		return nil, errors.Errorf("link %s does not exist", name)
	}
	return l, nil
}

func (h *Host) registerBufferGauges(name string, cb *circbuff.CircBuff) {
	labels := prometheus.Labels{"buffer": name}
	h.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "cbuf",
			Subsystem:   "buffer",
			Name:        "used_bytes",
			Help:        "Bytes currently held",
			ConstLabels: labels,
		}, func() float64 {
			h.mu.Lock()
			defer h.mu.Unlock()
			return float64(cb.UsedSpace())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "cbuf",
			Subsystem:   "buffer",
			Name:        "capacity_bytes",
			Help:        "Fixed capacity",
			ConstLabels: labels,
		}, func() float64 {
			return float64(cb.Capacity())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "cbuf",
			Subsystem:   "buffer",
			Name:        "messages",
			Help:        "Frames written and not yet read as messages",
			ConstLabels: labels,
		}, func() float64 {
			h.mu.Lock()
			defer h.mu.Unlock()
			return float64(cb.MsgCount())
		}),
	)
}
