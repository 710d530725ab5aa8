package udp

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

const (
	DSCPMax = 63
)

var (
	errInvalidDSCP     = errors.New("DSCP value out of range")
	errUnexpectedLocal = errors.New("unexpected local address type")
)

// SetDSCP marks outgoing packets with the given Differentiated Services
// Codepoint. A value of zero leaves the socket untouched.
func SetDSCP(conn *net.UDPConn, dscp uint8) error {
	if dscp > DSCPMax {
		return errInvalidDSCP
	}
	if dscp == 0 {
		return nil
	}
	laddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return errUnexpectedLocal
	}
	sconn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var res struct {
		err error
	}
	tos := int(dscp) << 2
	err = sconn.Control(func(fd uintptr) {
		if laddr.IP.To4() != nil {
			res.err = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, tos)
		} else {
			res.err = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
		}
	})
	if err != nil {
		return err
	}
	return res.err
}

// DSCP returns the codepoint currently set on the socket.
func DSCP(conn *net.UDPConn) (uint8, error) {
	laddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return 0, errUnexpectedLocal
	}
	sconn, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var res struct {
		tos int
		err error
	}
	err = sconn.Control(func(fd uintptr) {
		if laddr.IP.To4() != nil {
			res.tos, res.err = unix.GetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS)
		} else {
			res.tos, res.err = unix.GetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_TCLASS)
		}
	})
	if err != nil {
		return 0, err
	}
	if res.err != nil {
		return 0, res.err
	}
	return uint8(res.tos >> 2), nil
}
