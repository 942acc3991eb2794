package util

import (
	"net"
	"net/netip"
)

// Bind a UDP socket on the given local addr:port
func BindUDP(bindAddr netip.AddrPort) (*net.UDPConn, error) {
	// Turn the address into a UDPAddr for the connection
	bindLocalAddr := net.UDPAddrFromAddrPort(bindAddr)

	// Bind on the local UDP port:  this sets the source port
	// and creates a conn
	conn, err := net.ListenUDP("udp4", bindLocalAddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// LocalAddrPort reports the address a bound socket actually listens on, which
// differs from the requested one when port 0 was asked for.
func LocalAddrPort(conn *net.UDPConn) netip.AddrPort {
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	return addr.AddrPort()
}
