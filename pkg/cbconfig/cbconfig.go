package cbconfig

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/pkg/errors"
)

/*
 * These structs only represent the things in the config file. The host
 * builds its buffers and links from them at startup.
 *
 *   # two buffers and a link shipping frames from out to a peer
 *   buffer out capacity 4096
 *   buffer in capacity 4096
 *   link l0 10.0.0.1 127.0.0.1:5000 to 10.0.0.2 at 127.0.0.1:5001 send out recv in
 *   metrics 127.0.0.1:9100
 */
type HostConfig struct {
	Buffers []BufferConfig
	Links   []LinkConfig

	// Address to serve /metrics on. Invalid (zero) when not configured.
	MetricsAddr netip.AddrPort
}

type BufferConfig struct {
	Name     string
	Capacity int
}

type LinkConfig struct {
	Name     string
	LocalVIP netip.Addr
	BindAddr netip.AddrPort
	PeerVIP  netip.Addr
	PeerAddr netip.AddrPort

	SendBuffer string
	RecvBuffer string
}

// Find a buffer by name
func (c *HostConfig) Buffer(name string) (BufferConfig, bool) {
	for _, b := range c.Buffers {
		if b.Name == name {
			return b, true
		}
	}
	return BufferConfig{}, false
}

type ParseFunc func(int, string, *HostConfig) error

var parseCommands = map[string]ParseFunc{
	"buffer":  parseBuffer,
	"link":    parseLink,
	"metrics": parseMetrics,
}

func parseBuffer(ln int, line string, config *HostConfig) error {
	var sName string
	var capacity int

	format := "buffer <name> capacity <bytes>"

	r := strings.NewReader(line)
	n, err := fmt.Fscanf(r, "buffer %s capacity %d", &sName, &capacity)
	if err != nil || n != 2 {
		return newErrString(ln, "buffer directive must have format:  %s", format)
	}
	if capacity <= 0 {
		return newErrString(ln, "buffer %s: capacity must be positive, got %d", sName, capacity)
	}
	if _, dup := config.Buffer(sName); dup {
		return newErrString(ln, "buffer %s declared twice", sName)
	}

	config.Buffers = append(config.Buffers, BufferConfig{Name: sName, Capacity: capacity})
	return nil
}

func parseLink(ln int, line string, config *HostConfig) error {
	var sName, sLocalVIP, sBindAddr, sPeerVIP, sPeerAddr, sSend, sRecv string

	format := "link <name> <vip> <bindAddr> to <peer vip> at <peerAddr> send <buffer> recv <buffer>"

	r := strings.NewReader(line)
	n, err := fmt.Fscanf(r, "link %s %s %s to %s at %s send %s recv %s",
		&sName, &sLocalVIP, &sBindAddr, &sPeerVIP, &sPeerAddr, &sSend, &sRecv)
	if err != nil || n != 7 {
		return newErrString(ln, "link directive must have format:  %s", format)
	}

	link := LinkConfig{Name: sName, SendBuffer: sSend, RecvBuffer: sRecv}
	if link.LocalVIP, err = netip.ParseAddr(sLocalVIP); err != nil {
		return newErr(ln, err)
	}
	if link.PeerVIP, err = netip.ParseAddr(sPeerVIP); err != nil {
		return newErr(ln, err)
	}
	if !link.LocalVIP.Is4() || !link.PeerVIP.Is4() {
		return newErrString(ln, "link %s: virtual addresses must be IPv4", sName)
	}
	if link.BindAddr, err = netip.ParseAddrPort(sBindAddr); err != nil {
		return newErr(ln, err)
	}
	if link.PeerAddr, err = netip.ParseAddrPort(sPeerAddr); err != nil {
		return newErr(ln, err)
	}
	for _, l := range config.Links {
		if l.Name == sName {
			return newErrString(ln, "link %s declared twice", sName)
		}
	}

	config.Links = append(config.Links, link)
	return nil
}

func parseMetrics(ln int, line string, config *HostConfig) error {
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return newErrString(ln, "metrics directive must have format:  metrics <addr:port>")
	}
	addr, err := netip.ParseAddrPort(tokens[1])
	if err != nil {
		return newErr(ln, err)
	}
	config.MetricsAddr = addr
	return nil
}

// Links may be declared before the buffers they name, so references are
// checked once the whole file is read.
func validate(config *HostConfig) error {
	for _, l := range config.Links {
		for _, name := range []string{l.SendBuffer, l.RecvBuffer} {
			if _, ok := config.Buffer(name); !ok {
				return errors.Errorf("link %s references unknown buffer %s", l.Name, name)
			}
		}
		if l.SendBuffer == l.RecvBuffer {
			return errors.Errorf("link %s sends and receives on the same buffer %s", l.Name, l.SendBuffer)
		}
	}
	return nil
}

func newErrString(line int, msg string, args ...any) error {
	return errors.Errorf("Parse error on line %d:  %s", line, fmt.Sprintf(msg, args...))
}

func newErr(line int, err error) error {
	return errors.Wrapf(err, "Parse error on line %d", line)
}

// Parse a configuration file
func ParseConfig(configFile string) (*HostConfig, error) {
	fd, err := os.Open(configFile)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to open file")
	}
	defer fd.Close()

	return Parse(fd)
}

// Parse reads directives from r
func Parse(r io.Reader) (*HostConfig, error) {
	config := &HostConfig{
		Buffers: make([]BufferConfig, 0, 2),
		Links:   make([]LinkConfig, 0, 1),
	}

	scanner := bufio.NewScanner(r)
	ln := 0
	for scanner.Scan() {
		ln++

		line := strings.TrimSpace(scanner.Text())
		tokens := strings.Fields(line)

		// Skip blanks and comments
		if len(tokens) == 0 || tokens[0][0] == '#' {
			continue
		}

		head := tokens[0]
		pf, found := parseCommands[head]
		if !found {
			return nil, newErrString(ln, "Unrecognized token %s", head)
		}
		if err := pf(ln, strings.Join(tokens, " "), config); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}
