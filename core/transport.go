package core

import (
	"errors"
	"fmt"
	"net"

	"github.com/solred/ripd/protocol"
	"github.com/solred/ripd/state"
)

// Transport owns the loopback UDP sockets, one per configured input port.
// Reader goroutines only decode and hand off to the main loop; all table
// access stays on that single goroutine. Sends are fire and forget, the
// protocol's refresh cycle tolerates loss.
type Transport struct {
	env   *state.Env
	socks []*net.UDPConn
}

func (t *Transport) Init(s *state.State) error {
	t.env = s.Env
	for _, port := range s.Cfg.InputPorts {
		sock, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(port)})
		if err != nil {
			// fatal, the router must not enter the loop half-bound
			return fmt.Errorf("bind udp port %d: %w", port, err)
		}
		t.socks = append(t.socks, sock)
		go t.readLoop(sock)
	}
	s.Log.Debug("transport bound", "ports", s.Cfg.InputPorts)
	return nil
}

func (t *Transport) readLoop(sock *net.UDPConn) {
	buf := make([]byte, 2048)
	for {
		n, addr, err := sock.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || t.env.Context.Err() != nil {
				return
			}
			t.env.Log.Debug("receive failed", "err", err)
			continue
		}
		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			// dropped silently at the decode boundary, not fatal
			packetsMalformed.Inc()
			t.env.Log.Debug("dropping malformed datagram", "from", addr, "err", err)
			continue
		}
		packetsReceived.Inc()
		t.env.Dispatch(func(s *state.State) error {
			return handleInbound(s, pkt)
		})
	}
}

// Send transmits one datagram to a neighbour's loopback port. No retry, no
// backpressure.
func (t *Transport) Send(payload []byte, port uint16) {
	if len(t.socks) == 0 {
		return
	}
	_, err := t.socks[0].WriteToUDP(payload, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(port)})
	if err != nil {
		t.env.Log.Debug("send failed", "port", port, "err", err)
	}
}

func (t *Transport) Cleanup(s *state.State) error {
	for _, sock := range t.socks {
		_ = sock.Close()
	}
	return nil
}
