package bench

import (
	"fmt"
	"time"

	"circularbuffer/pkg/circbuff"

	"github.com/pkg/errors"
)

type Config struct {
	Capacity   int
	Iterations int
	Payload    []byte
}

type Result struct {
	Name       string
	Iterations int
	Elapsed    time.Duration
}

func (r Result) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Iterations) / r.Elapsed.Seconds()
}

func (r Result) String() string {
	return fmt.Sprintf("%-22s %10d iterations %12v %14.0f ops/s", r.Name, r.Iterations, r.Elapsed, r.OpsPerSec())
}

type loop struct {
	name string
	step func(cb *circbuff.CircBuff, payload, scratch []byte) error
}

var loops = []loop{
	{"write/read", func(cb *circbuff.CircBuff, payload, _ []byte) error {
		cb.Write(payload)
		if got := cb.Read(cb.Capacity()); len(got) != len(payload) {
			return errors.Errorf("read %d bytes, wrote %d", len(got), len(payload))
		}
		return nil
	}},
	{"write/read_into", func(cb *circbuff.CircBuff, payload, scratch []byte) error {
		cb.Write(payload)
		if n := cb.ReadInto(scratch); n != len(payload) {
			return errors.Errorf("read %d bytes, wrote %d", n, len(payload))
		}
		return nil
	}},
	{"writemsg/readmsg", func(cb *circbuff.CircBuff, payload, _ []byte) error {
		if _, err := cb.WriteMsg(payload); err != nil {
			return err
		}
		if got, ok := cb.ReadMsg(); !ok || len(got) != len(payload) {
			return errors.New("message did not round trip")
		}
		return nil
	}},
	{"writemsg/readmsg_into", func(cb *circbuff.CircBuff, payload, scratch []byte) error {
		if _, err := cb.WriteMsg(payload); err != nil {
			return err
		}
		n, ok, err := cb.ReadMsgInto(scratch)
		if err != nil {
			return err
		}
		if !ok || n != len(payload) {
			return errors.New("message did not round trip")
		}
		return nil
	}},
}

// Run times each write/read pairing for cfg.Iterations rounds on one buffer.
// Every round leaves the buffer empty again.
func Run(cfg Config) ([]Result, error) {
	if cfg.Iterations <= 0 {
		return nil, errors.Errorf("iterations must be positive, got %d", cfg.Iterations)
	}
	if circbuff.HeaderLen+len(cfg.Payload) > cfg.Capacity {
		return nil, errors.Errorf("a %d-byte message does not fit a %d-byte buffer", len(cfg.Payload), cfg.Capacity)
	}
	cb, err := circbuff.New(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	scratch := make([]byte, cfg.Capacity)

	results := make([]Result, 0, len(loops))
	for _, l := range loops {
		cb.Clear()
		start := time.Now()
		for i := 0; i < cfg.Iterations; i++ {
			if err := l.step(cb, cfg.Payload, scratch); err != nil {
				return results, errors.Wrapf(err, "%s iteration %d", l.name, i)
			}
		}
		results = append(results, Result{Name: l.name, Iterations: cfg.Iterations, Elapsed: time.Since(start)})
	}
	return results, nil
}
