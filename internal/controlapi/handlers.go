package controlapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/someipd/internal/endpointmgr"
	"github.com/marmos91/someipd/internal/reactor"
	"github.com/marmos91/someipd/internal/udpendpoint"
)

// Handlers serves the introspection/control routes against a running
// reactor.Loop. All reads go through the snapshot methods those packages
// expose for exactly this purpose (Router.Snapshot, Endpoints.All,
// Loop.Connections) rather than touching reactor-owned state directly.
type Handlers struct {
	loop      *reactor.Loop
	startedAt time.Time
}

// NewHandlers constructs a Handlers bound to loop.
func NewHandlers(loop *reactor.Loop) *Handlers {
	return &Handlers{loop: loop, startedAt: time.Now()}
}

// healthView is the liveness probe payload.
type healthView struct {
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
}

// Liveness handles GET /health.
func (h *Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(healthView{
		StartedAt: h.startedAt.UTC(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	}))
}

// endpointView is one interned endpoint, for GET /api/v1/endpoints.
type endpointView struct {
	Address       string `json:"address"`
	Port          int    `json:"port"`
	Protocol      string `json:"protocol"`
	Secured       bool   `json:"secured"`
	Variant       string `json:"variant"`
	PeerCount     int    `json:"peer_count,omitempty"`
	ReassemblyKey int    `json:"reassembly_keys,omitempty"`
}

func variantString(v endpointmgr.Variant) string {
	switch v {
	case endpointmgr.VariantPassiveUnicast:
		return "passive_unicast"
	case endpointmgr.VariantMulticast:
		return "multicast"
	default:
		return "active_unicast"
	}
}

// ListEndpoints handles GET /api/v1/endpoints.
func (h *Handlers) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints := h.loop.Endpoints.All()
	views := make([]endpointView, 0, len(endpoints))
	for _, ep := range endpoints {
		view := endpointView{
			Address:  ep.Key.Address,
			Port:     ep.Key.Port,
			Protocol: ep.Key.Protocol.String(),
			Secured:  ep.Key.Secured,
			Variant:  variantString(ep.Variant),
		}
		if udpEP, ok := ep.Handle.(*udpendpoint.Endpoint); ok {
			view.PeerCount = udpEP.PeerCount()
			view.ReassemblyKey = udpEP.ReassemblyKeyCount()
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, okResponse(views))
}

// connectionView is one TCP connection, for GET /api/v1/connections.
type connectionView struct {
	LocalAddr     string `json:"local_addr"`
	RemoteAddr    string `json:"remote_addr"`
	Role          string `json:"role"`
	State         string `json:"state"`
	Users         int64  `json:"users"`
	CorrelationID string `json:"correlation_id"`
}

// ListConnections handles GET /api/v1/connections.
func (h *Handlers) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns := h.loop.Connections()
	views := make([]connectionView, 0, len(conns))
	for _, c := range conns {
		views = append(views, connectionView{
			LocalAddr:     c.LocalAddr,
			RemoteAddr:    c.RemoteAddr,
			Role:          c.Role.String(),
			State:         c.State().String(),
			Users:         c.Users(),
			CorrelationID: c.CorrelationID,
		})
	}
	writeJSON(w, http.StatusOK, okResponse(views))
}

// registrationView is one routing table entry, for GET /api/v1/router.
type registrationView struct {
	ServiceID    uint16 `json:"service_id"`
	MajorVersion uint8  `json:"major_version"`
	InstanceID   uint16 `json:"instance_id"`
}

// ListRouterTable handles GET /api/v1/router.
func (h *Handlers) ListRouterTable(w http.ResponseWriter, r *http.Request) {
	regs := h.loop.Router.Snapshot()
	views := make([]registrationView, 0, len(regs))
	for _, reg := range regs {
		views = append(views, registrationView{
			ServiceID:    reg.ServiceID,
			MajorVersion: reg.MajorVersion,
			InstanceID:   reg.InstanceID,
		})
	}
	writeJSON(w, http.StatusOK, okResponse(views))
}

// disconnectResult reports the outcome of a force-disconnect request.
type disconnectResult struct {
	RemoteAddr string `json:"remote_addr"`
	Found      bool   `json:"found"`
}

// ForceDisconnect handles POST /api/v1/connections/{addr}/disconnect. The
// addr path parameter must match a Connection.RemoteAddr exactly (host:port).
func (h *Handlers) ForceDisconnect(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	found := h.loop.DisconnectByAddr(addr)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse("no connection with that remote address"))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(disconnectResult{RemoteAddr: addr, Found: found}))
}
