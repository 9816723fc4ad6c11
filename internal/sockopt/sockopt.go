// Package sockopt applies the per-endpoint socket tuning of §6 (IP
// QoS/DSCP, TCP keep-alive, SO_LINGER, Nagle) that net.Dialer and
// net.ListenConfig don't expose. It reaches the raw file descriptor via
// syscall.Conn.SyscallConn, the same idiom HydraDNS's listenReusePort uses
// for SO_REUSEPORT, and issues the setsockopt calls with
// golang.org/x/sys/unix.
package sockopt

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/someipd/internal/collab"
)

// Apply configures netConn per opts. Unsupported combinations (e.g. a
// non-TCP conn with keep-alive or linger set) are silently skipped rather
// than treated as errors, since callers apply the same opts to both TCP
// and UDP endpoints.
func Apply(netConn net.Conn, opts collab.SocketOptions) error {
	if opts.DSCP > 0 {
		if err := control(netConn, func(fd int) error {
			return setDSCP(fd, netConn, opts.DSCP)
		}); err != nil {
			return err
		}
	}

	if tcp, ok := netConn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(opts.DisableNagle); err != nil {
			return err
		}

		if opts.KeepAliveEnabled {
			if err := tcp.SetKeepAlive(true); err != nil {
				return err
			}
			if opts.KeepAliveIdle > 0 {
				if err := tcp.SetKeepAlivePeriod(opts.KeepAliveIdle); err != nil {
					return err
				}
			}
			if err := control(netConn, func(fd int) error {
				return setKeepAliveProbes(fd, opts.KeepAliveInterval, opts.KeepAliveCount)
			}); err != nil {
				return err
			}
		}

		if opts.LingerSeconds != 0 {
			linger := opts.LingerSeconds
			if linger < 0 {
				linger = 0
			}
			if err := tcp.SetLinger(linger); err != nil {
				return err
			}
		}
	}

	return nil
}

// control runs fn against netConn's raw file descriptor via
// syscall.Conn.SyscallConn, the standard way to reach setsockopt options
// net.Conn's typed API doesn't expose.
func control(netConn net.Conn, fn func(fd int) error) error {
	sc, ok := netConn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	err = raw.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	})
	if err != nil {
		return err
	}
	return opErr
}

func setDSCP(fd int, netConn net.Conn, dscp int) error {
	tos := dscp << 2
	if isIPv6(netConn) {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos)
}

// setKeepAliveProbes sets the probe interval and retry count that follow
// net.TCPConn.SetKeepAlivePeriod's idle time, neither of which the
// standard library exposes.
func setKeepAliveProbes(fd int, interval time.Duration, count int) error {
	if interval > 0 {
		// Round up to whole seconds: the kernel rejects an interval of 0.
		secs := int((interval + time.Second - 1) / time.Second)
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs); err != nil {
			return err
		}
	}
	if count > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, count); err != nil {
			return err
		}
	}
	return nil
}

func isIPv6(netConn net.Conn) bool {
	addr := netConn.LocalAddr()
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.To4() == nil
	}
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP.To4() == nil
	}
	return false
}
