// Package fabric decodes fat-tree switch identities from datapath ids.
package fabric

import (
	"fmt"
	"strconv"
	"strings"
)

// DPID is an OpenFlow datapath id. The low 24 bits encode the switch's
// position in the fabric: bits 16-23 layer, bits 8-15 pod, bits 0-7 index.
type DPID uint64

// Layer is the fabric tier of a switch.
type Layer uint8

const (
	LayerCore        Layer = 0
	LayerAggregation Layer = 1
	LayerEdge        Layer = 2
	LayerInternet    Layer = 3
)

func (l Layer) String() string {
	switch l {
	case LayerCore:
		return "core"
	case LayerAggregation:
		return "aggregation"
	case LayerEdge:
		return "edge"
	case LayerInternet:
		return "internet"
	default:
		return "unknown"
	}
}

// Identity is the decoded position of a switch.
type Identity struct {
	DPID  DPID
	Layer Layer
	Pod   uint8
	Index uint8
}

// Fields splits a dpid into its layer, pod and index bit-fields.
func (d DPID) Fields() (layer, pod, index uint8) {
	return uint8(d >> 16), uint8(d >> 8), uint8(d)
}

// Decode returns the identity of dpid. ok is false when the layer field does
// not name a known tier.
func Decode(d DPID) (id Identity, ok bool) {
	layer, pod, index := d.Fields()
	id = Identity{DPID: d, Layer: Layer(layer), Pod: pod, Index: index}
	return id, layer <= uint8(LayerInternet)
}

// Label returns the display name of the switch.
func (id Identity) Label() string {
	switch id.Layer {
	case LayerCore:
		return fmt.Sprintf("Core Switch %d", int(id.Index)-1)
	case LayerAggregation:
		return fmt.Sprintf("Aggregation Switch, pod: %d switch: %d", id.Pod, id.Index)
	case LayerEdge:
		return fmt.Sprintf("Edge Switch, pod: %d switch: %d", id.Pod, id.Index)
	case LayerInternet:
		return "Internet"
	default:
		return ""
	}
}

// Name returns the display name for dpid, or ok=false for an unknown layer.
func Name(d DPID) (string, bool) {
	id, ok := Decode(d)
	if !ok {
		return "", false
	}
	return id.Label(), true
}

// ParseDPID parses a string-encoded decimal datapath id.
func ParseDPID(s string) (DPID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fabric.ParseDPID: invalid dpid %q: %w", s, err)
	}
	return DPID(n), nil
}

func (d DPID) String() string {
	return strconv.FormatUint(uint64(d), 10)
}
