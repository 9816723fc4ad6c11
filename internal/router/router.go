// Package router dispatches a decoded SOME/IP message to its sink(s) based
// on (ServiceId, MethodOrEventId) and direction, per §4.9.
package router

import (
	"errors"
	"sync"

	"github.com/marmos91/someipd/internal/wire"
)

// InstanceKey identifies a locally-provided service instance.
type InstanceKey struct {
	ServiceID    uint16
	MajorVersion uint8 // wire.MajorVersionAny (0xFF) matches any lookup
}

// RemoteKey identifies a remotely-required instance, scoped to the peer
// that offered it.
type RemoteKey struct {
	Peer      string
	ServiceID uint16
}

// Sink receives a message routed to one local application.
type Sink interface {
	Deliver(instanceID uint16, header wire.Header, payload []byte)
}

// RoutingError reports why a message could not be routed. Per §4.9 only
// method-type messages (Request/RequestNoReturn) get an error response;
// notifications are silently dropped by the caller instead of erroring.
type RoutingError struct {
	ReturnCode uint8
}

func (e *RoutingError) Error() string {
	switch e.ReturnCode {
	case wire.ReturnCodeUnknownService:
		return "router: unknown service"
	case wire.ReturnCodeUnknownMethod:
		return "router: unknown method"
	case wire.ReturnCodeWrongInterfaceVer:
		return "router: wrong interface version"
	default:
		return "router: routing failed"
	}
}

// ErrNotificationDropped indicates a notification had no matching
// registration and was silently discarded rather than erroring.
var ErrNotificationDropped = errors.New("router: notification dropped, no subscriber")

// registration is one locally-provided service instance's binding.
type registration struct {
	instanceID uint16
	sink       Sink
}

// Router holds the locally_provided_instances and remotely_required_instances
// tables of §4.9. Every method takes an internal sync.RWMutex (read lock
// for lookups and snapshots, write lock for registration), so callers such
// as the control API can read the tables from a goroutine other than the
// reactor's.
type Router struct {
	mu sync.RWMutex

	locallyProvided  map[InstanceKey]registration
	remotelyRequired map[RemoteKey]uint16
}

// New constructs an empty Router.
func New() *Router {
	return &Router{
		locallyProvided:  make(map[InstanceKey]registration),
		remotelyRequired: make(map[RemoteKey]uint16),
	}
}

// RegisterLocal binds (serviceID, majorVersion) to instanceID and sink.
// majorVersion may be wire.MajorVersionAny to match any lookup version.
func (r *Router) RegisterLocal(serviceID uint16, majorVersion uint8, instanceID uint16, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locallyProvided[InstanceKey{ServiceID: serviceID, MajorVersion: majorVersion}] = registration{instanceID: instanceID, sink: sink}
}

// DeregisterLocal removes a local registration.
func (r *Router) DeregisterLocal(serviceID uint16, majorVersion uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locallyProvided, InstanceKey{ServiceID: serviceID, MajorVersion: majorVersion})
}

// RegisterRemote records that peer offers serviceID as instanceID, for
// messages originating locally that need the peer-side instance label.
func (r *Router) RegisterRemote(peer string, serviceID uint16, instanceID uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remotelyRequired[RemoteKey{Peer: peer, ServiceID: serviceID}] = instanceID
}

// lookupLocal finds the registration for serviceID at majorVersion,
// preferring an exact-version match and falling back to one registered
// with MajorVersionAny. When neither matches, otherVersion reports whether
// serviceID is registered under some other specific MajorVersion, so the
// caller can distinguish "wrong interface version" from "unknown service".
func (r *Router) lookupLocal(serviceID uint16, majorVersion uint8) (reg registration, ok bool, otherVersion bool) {
	if reg, ok := r.locallyProvided[InstanceKey{ServiceID: serviceID, MajorVersion: majorVersion}]; ok {
		return reg, true, false
	}
	if reg, ok := r.locallyProvided[InstanceKey{ServiceID: serviceID, MajorVersion: wire.MajorVersionAny}]; ok {
		return reg, true, false
	}
	for key := range r.locallyProvided {
		if key.ServiceID == serviceID {
			return registration{}, false, true
		}
	}
	return registration{}, false, false
}

// LocalRegistration is a read-only view of one locally-provided service
// instance's binding, for introspection (e.g. internal/controlapi).
type LocalRegistration struct {
	ServiceID    uint16
	MajorVersion uint8
	InstanceID   uint16
}

// Snapshot returns every current local registration.
func (r *Router) Snapshot() []LocalRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LocalRegistration, 0, len(r.locallyProvided))
	for key, reg := range r.locallyProvided {
		out = append(out, LocalRegistration{
			ServiceID:    key.ServiceID,
			MajorVersion: key.MajorVersion,
			InstanceID:   reg.instanceID,
		})
	}
	return out
}

// RouteInbound routes a message arriving from the network. It returns the
// authoritative InstanceId (from the lookup, never the wire) on success.
// A method-type message with no match returns a *RoutingError with the
// appropriate ReturnCode; a notification with no match returns
// ErrNotificationDropped.
func (r *Router) RouteInbound(header wire.Header, payload []byte) (instanceID uint16, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	isNotification := header.MessageType&^wire.MessageTypeTPFlag == wire.MessageTypeNotification

	reg, ok, otherVersion := r.lookupLocal(header.ServiceID, header.InterfaceVersion)
	if !ok {
		if isNotification {
			return 0, ErrNotificationDropped
		}
		if otherVersion {
			return 0, &RoutingError{ReturnCode: wire.ReturnCodeWrongInterfaceVer}
		}
		return 0, &RoutingError{ReturnCode: wire.ReturnCodeUnknownService}
	}

	reg.sink.Deliver(reg.instanceID, header, payload)
	return reg.instanceID, nil
}
