package config

import (
	"github.com/marmos91/someipd/internal/collab"
	"github.com/marmos91/someipd/internal/tp"
)

// Provider adapts a loaded Config to collab.ConfigurationProvider, the
// narrow interface the reactor and transport layers are programmed
// against.
type Provider struct {
	cfg *Config
}

// NewProvider wraps cfg as a collab.ConfigurationProvider.
func NewProvider(cfg *Config) *Provider {
	return &Provider{cfg: cfg}
}

// Endpoints implements collab.ConfigurationProvider.
func (p *Provider) Endpoints() []collab.EndpointSpec {
	out := make([]collab.EndpointSpec, 0, len(p.cfg.Network.Endpoints))
	for _, ep := range p.cfg.Network.Endpoints {
		out = append(out, collab.EndpointSpec{
			Address:    ep.Address,
			Port:       ep.Port,
			Protocol:   ep.Protocol,
			MTU:        ep.MTU,
			SecureName: ep.SecureName,
			SocketOptions: collab.SocketOptions{
				DSCP:              ep.SocketOptions.DSCP,
				KeepAliveEnabled:  ep.SocketOptions.KeepAliveEnabled,
				KeepAliveIdle:     ep.SocketOptions.KeepAliveIdle,
				KeepAliveInterval: ep.SocketOptions.KeepAliveInterval,
				KeepAliveCount:    ep.SocketOptions.KeepAliveCount,
				LingerSeconds:     ep.SocketOptions.LingerSeconds,
				DisableNagle:      ep.SocketOptions.DisableNagle,
			},
		})
	}
	return out
}

// defaultTPParams are applied when no configured entry, specific or
// network-wide, covers a given (serviceID, methodOrEventID): a 1400-byte
// segment (fits a standard Ethernet MTU under IP/UDP/SOME/IP overhead),
// a 64 KiB message cap, and unbounded, unpaced bursts.
var defaultTPParams = tp.Params{
	SegmentLength:    1400,
	MaxMessageLength: 64 * 1024,
}

// TPParams implements collab.ConfigurationProvider, returning the most
// specific configured entry for (serviceID, methodOrEventID), falling
// back to a network-wide entry keyed (0, 0), then to defaultTPParams.
func (p *Provider) TPParams(serviceID, methodOrEventID uint16) tp.Params {
	var fallback *TPConfig
	for i := range p.cfg.Network.TP {
		entry := &p.cfg.Network.TP[i]
		if entry.ServiceID == serviceID && entry.MethodOrEventID == methodOrEventID {
			return tpConfigToParams(entry)
		}
		if entry.ServiceID == 0 && entry.MethodOrEventID == 0 {
			fallback = entry
		}
	}
	if fallback != nil {
		return tpConfigToParams(fallback)
	}
	return defaultTPParams
}

func tpConfigToParams(entry *TPConfig) tp.Params {
	params := defaultTPParams
	if entry.SegmentLength != 0 {
		params.SegmentLength = entry.SegmentLength
	}
	if entry.MaxMessageLength != 0 {
		params.MaxMessageLength = entry.MaxMessageLength
	}
	if entry.BurstSize != 0 {
		params.BurstSize = entry.BurstSize
	}
	if entry.SeparationTime != 0 {
		params.SeparationTime = entry.SeparationTime.Nanoseconds()
	}
	return params
}

// BulkReadParams implements collab.ConfigurationProvider.
func (p *Provider) BulkReadParams() collab.BulkReadParams {
	b := p.cfg.Network.BulkRead
	return collab.BulkReadParams{
		BulkReadCount:          b.BulkReadCount,
		MinDatagramsToContinue: b.MinDatagramsToContinue,
		MaxConsecutiveCalls:    b.MaxConsecutiveCalls,
		ReceivePeriod:          b.ReceivePeriod,
	}
}

// ErrorThreshold implements collab.ConfigurationProvider.
func (p *Provider) ErrorThreshold() collab.ErrorThresholdParams {
	e := p.cfg.Network.ErrorThreshold
	return collab.ErrorThresholdParams{
		InvalidCountLimit: e.InvalidCountLimit,
		ValidRunToReset:   e.ValidRunToReset,
	}
}
