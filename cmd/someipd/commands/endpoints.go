package commands

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/someipd/internal/collab"
	"github.com/marmos91/someipd/internal/conn"
	"github.com/marmos91/someipd/internal/endpointmgr"
	"github.com/marmos91/someipd/internal/ifmonitor"
	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/internal/reactor"
	"github.com/marmos91/someipd/internal/sockopt"
	"github.com/marmos91/someipd/internal/udpendpoint"
)

// linkPollInterval is how often the ifmonitor.Monitor backing
// startEndpoints' link-state supervision re-polls interface flags.
const linkPollInterval = 5 * time.Second

// startEndpoints opens every configured local endpoint against loop and
// returns one release function per endpoint, to be called in reverse on
// shutdown. Endpoints bound to a single identifiable interface are also
// placed under link-state supervision per spec §4.11: the endpoint closes
// on link down and reopens on link up.
func startEndpoints(
	ctx context.Context,
	loop *reactor.Loop,
	specs []collab.EndpointSpec,
	threshold conn.ErrorThreshold,
	bulkPolicy udpendpoint.BulkReadPolicy,
	maxReassemblyKeys int,
) ([]func(), error) {
	monitor := ifmonitor.New(linkPollInterval)
	closers := make([]func(), 0, len(specs))

	for _, spec := range specs {
		spec := spec
		start := func() (func(), error) {
			switch spec.Protocol {
			case "tcp":
				return startTCPEndpoint(ctx, loop, spec, threshold)
			case "udp":
				return startUDPEndpoint(ctx, loop, spec, bulkPolicy, maxReassemblyKeys)
			default:
				return nil, fmt.Errorf("unknown protocol %q for endpoint %s:%d", spec.Protocol, spec.Address, spec.Port)
			}
		}

		managed, err := newManagedEndpoint(start)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, err
		}
		closers = append(closers, managed.Close)

		iface, err := interfaceForAddress(spec.Address)
		if err != nil {
			logger.Debug("could not resolve interface for endpoint", "address", spec.Address, "error", err)
			continue
		}
		if iface != "" {
			monitor.Observe(iface, managed.onLinkChange)
		}
	}

	go monitor.Run(ctx)

	return closers, nil
}

// managedEndpoint re-runs start whenever its interface transitions back to
// link-up after having been torn down on link-down.
type managedEndpoint struct {
	start func() (func(), error)

	mu      sync.Mutex
	closeFn func()
}

func newManagedEndpoint(start func() (func(), error)) (*managedEndpoint, error) {
	closeFn, err := start()
	if err != nil {
		return nil, err
	}
	return &managedEndpoint{start: start, closeFn: closeFn}, nil
}

func (m *managedEndpoint) onLinkChange(iface string, state ifmonitor.LinkState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch state {
	case ifmonitor.LinkDown:
		if m.closeFn != nil {
			logger.Info("interface down, closing endpoint", "interface", iface)
			m.closeFn()
			m.closeFn = nil
		}
	case ifmonitor.LinkUp:
		if m.closeFn == nil {
			closeFn, err := m.start()
			if err != nil {
				logger.Error("failed to reopen endpoint after link up", "interface", iface, "error", err)
				return
			}
			logger.Info("interface up, endpoint reopened", "interface", iface)
			m.closeFn = closeFn
		}
	}
}

func (m *managedEndpoint) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeFn != nil {
		m.closeFn()
		m.closeFn = nil
	}
}

// interfaceForAddress returns the name of the network interface configured
// with address, or "" if address is unspecified (0.0.0.0/::) or owned by no
// local interface — link supervision is skipped in both cases, since an
// unspecified bind isn't tied to any single interface's link state.
func interfaceForAddress(address string) (string, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.IsUnspecified() {
		return "", nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if ok && ipNet.IP.Equal(ip) {
				return iface.Name, nil
			}
		}
	}
	return "", nil
}

// startTCPEndpoint binds a passive TCP listener and adopts every accepted
// connection into loop, per spec §4.1's passive-unicast endpoint variant.
func startTCPEndpoint(ctx context.Context, loop *reactor.Loop, spec collab.EndpointSpec, threshold conn.ErrorThreshold) (func(), error) {
	addr := fmt.Sprintf("%s:%d", spec.Address, spec.Port)
	key := endpointmgr.Key{Address: spec.Address, Port: spec.Port, Protocol: endpointmgr.ProtocolTCP, Secured: spec.SecureName != ""}

	ep, err := loop.Endpoints.Create(key, endpointmgr.VariantPassiveUnicast, func() (any, error) {
		return net.Listen("tcp", addr)
	})
	if err != nil {
		return nil, fmt.Errorf("tcp listen on %s: %w", addr, err)
	}
	listener := ep.Handle.(net.Listener)

	maxPayloadSize := spec.MTU
	if maxPayloadSize <= 0 {
		maxPayloadSize = 1500
	}

	events := loop.TCPEvents()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	go func() {
		for {
			netConn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					logger.Debug("tcp accept error", "addr", addr, "error", err)
					continue
				}
			}
			if err := sockopt.Apply(netConn, spec.SocketOptions); err != nil {
				logger.Debug("failed to apply socket options", "addr", addr, "error", err)
			}
			c := conn.New(netConn, conn.RolePassive, threshold, maxPayloadSize, events)
			loop.AdoptTCP(c)
		}
	}()

	logger.Info("tcp endpoint listening", "addr", addr)

	return func() {
		_ = loop.Endpoints.Release(key, func(h any) error {
			return h.(net.Listener).Close()
		})
	}, nil
}

// startUDPEndpoint binds a UDP socket and drains its event channel into
// loop via PostUDP, since udpendpoint.New needs an events channel before
// the Endpoint it tags exists.
func startUDPEndpoint(ctx context.Context, loop *reactor.Loop, spec collab.EndpointSpec, policy udpendpoint.BulkReadPolicy, maxReassemblyKeys int) (func(), error) {
	udpAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", spec.Address, spec.Port))
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr %s:%d: %w", spec.Address, spec.Port, err)
	}
	key := endpointmgr.Key{Address: spec.Address, Port: spec.Port, Protocol: endpointmgr.ProtocolUDP, Secured: spec.SecureName != ""}

	maxReassemblySize := spec.MTU
	if maxReassemblySize <= 0 {
		maxReassemblySize = 64 * 1024
	}

	rawEvents := make(chan udpendpoint.Event, 64)

	ep, err := loop.Endpoints.Create(key, endpointmgr.VariantActiveUnicast, func() (any, error) {
		return udpendpoint.New(udpAddr, policy, maxReassemblyKeys, maxReassemblySize, maxReassemblySize, rawEvents)
	})
	if err != nil {
		return nil, fmt.Errorf("udp listen on %s: %w", udpAddr, err)
	}
	udpEP := ep.Handle.(*udpendpoint.Endpoint)
	if err := udpEP.ApplySocketOptions(spec.SocketOptions); err != nil {
		logger.Debug("failed to apply socket options", "addr", udpAddr.String(), "error", err)
	}

	go func() {
		for ev := range rawEvents {
			loop.PostUDP(udpEP, ev)
		}
	}()

	go udpEP.Serve(ctx)

	logger.Info("udp endpoint listening", "addr", udpAddr.String())

	return func() {
		_ = loop.Endpoints.Release(key, func(h any) error {
			h.(*udpendpoint.Endpoint).Close()
			return nil
		})
	}, nil
}
