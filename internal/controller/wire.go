// Package controller talks to the OpenFlow controller's port-stats service:
// the bulk snapshot endpoint and the live WebSocket stream.
package controller

import (
	"fmt"
	"strconv"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// OFPPMax is the highest physical OpenFlow 1.3 port number; ports at or above
// it are reserved logical ports (LOCAL, CONTROLLER, ...) and are ignored.
const OFPPMax = 0xffffff00

// PortStat is one port's counters as published by the controller.
type PortStat struct {
	RxPackets uint64 `json:"rx_packets" yaml:"rx_packets"`
	TxPackets uint64 `json:"tx_packets" yaml:"tx_packets"`
	RxBytes   uint64 `json:"rx_bytes" yaml:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes" yaml:"tx_bytes"`
	RxErrors  uint64 `json:"rx_errors" yaml:"rx_errors"`
	TxErrors  uint64 `json:"tx_errors" yaml:"tx_errors"`
}

func (p PortStat) counters() telemetry.PortCounters {
	return telemetry.PortCounters{
		RxBytes:   p.RxBytes,
		TxBytes:   p.TxBytes,
		RxPackets: p.RxPackets,
		TxPackets: p.TxPackets,
	}
}

// SwitchStats is one switch entry of the snapshot document.
type SwitchStats struct {
	Time []float64            `json:"time" yaml:"time"`
	Data map[string][]PortStat `json:"data" yaml:"data"`
}

// StatsDocument is the snapshot document keyed by string-encoded dpid.
type StatsDocument map[string]SwitchStats

// StatsMessage is one live stream frame.
type StatsMessage struct {
	DPID fabric.DPID         `json:"dpid"`
	Time float64             `json:"time"`
	Data map[string]PortStat `json:"data"`
}

// parsePort parses a port key and reports whether it names a physical port.
func parsePort(key string) (telemetry.PortID, bool, error) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("invalid port %q: %w", key, err)
	}
	if n >= OFPPMax {
		return 0, false, nil
	}
	return telemetry.PortID(n), true, nil
}

// ToSnapshot converts the wire document into a telemetry snapshot. Shape
// checks (alignment of time and data) are left to telemetry.Bootstrap.
func (d StatsDocument) ToSnapshot() (telemetry.Snapshot, error) {
	snap := make(telemetry.Snapshot, len(d))
	for key, sw := range d {
		dpid, err := fabric.ParseDPID(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", telemetry.ErrMalformedSnapshot, err)
		}
		hist := telemetry.SwitchHistory{Time: sw.Time}
		if sw.Data != nil {
			hist.Data = make(map[telemetry.PortID][]telemetry.PortCounters, len(sw.Data))
		}
		for portKey, stats := range sw.Data {
			port, physical, err := parsePort(portKey)
			if err != nil {
				return nil, &telemetry.MalformedSnapshotError{DPID: dpid, Reason: err.Error()}
			}
			if !physical {
				continue
			}
			counters := make([]telemetry.PortCounters, len(stats))
			for i, st := range stats {
				counters[i] = st.counters()
			}
			hist.Data[port] = counters
		}
		snap[dpid] = hist
	}
	return snap, nil
}

// ToEvent converts a stream frame into a telemetry event.
func (m StatsMessage) ToEvent() (telemetry.Event, error) {
	ev := telemetry.Event{
		DPID:  m.DPID,
		Time:  m.Time,
		Ports: make(map[telemetry.PortID]telemetry.PortCounters, len(m.Data)),
	}
	for portKey, st := range m.Data {
		port, physical, err := parsePort(portKey)
		if err != nil {
			return telemetry.Event{}, fmt.Errorf("switch %d: %w", m.DPID, err)
		}
		if !physical {
			continue
		}
		ev.Ports[port] = st.counters()
	}
	return ev, nil
}
