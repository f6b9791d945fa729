package discovery

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// openSAPSocket binds a UDP socket to the SAP port on all interfaces
// with address reuse enabled, then joins the multicast group on ifi
// (nil = system default interface). On any failure the socket is
// closed before the error is returned, so a failed start never leaks a
// descriptor or a group membership.
func openSAPSocket(port int, group net.IP, ifi *net.Interface, readBuffer int) (*ipv4.PacketConn, net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddrAndPort}

	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind sap port %d: %w", port, err)
	}

	conn := ipv4.NewPacketConn(pc)
	if err := conn.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
		pc.Close()
		return nil, nil, fmt.Errorf("join multicast group %s: %w", group, err)
	}

	if readBuffer > 0 {
		if udp, ok := pc.(*net.UDPConn); ok {
			_ = udp.SetReadBuffer(readBuffer)
		}
	}

	return conn, pc, nil
}

// reuseAddrAndPort sets SO_REUSEADDR and SO_REUSEPORT so the agent can
// share the well-known SAP port with other listeners on the host.
func reuseAddrAndPort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			sockErr = err
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
