package state

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// ArchiveFilename is the archive database name inside the state directory.
const ArchiveFilename = "archive.db"

// ArchiveRepo stores raw counter samples per switch and port.
// All writes are serialized by an internal mutex.
type ArchiveRepo struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenArchive opens (or creates) the archive database in dir and applies
// migrations.
func OpenArchive(dir string) (*ArchiveRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, ArchiveFilename)
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := MigrateArchiveDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ArchiveRepo{db: db, path: path}, nil
}

// Path returns the database file path.
func (r *ArchiveRepo) Path() string { return r.path }

// Close closes the database.
func (r *ArchiveRepo) Close() error {
	return r.db.Close()
}

// InsertBatch stores every port sample of the given events in one
// transaction. Samples already stored for the same (switch, port, time) are
// replaced. It returns the number of port samples written.
func (r *ArchiveRepo) InsertBatch(events []telemetry.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("archive begin: %w", err)
	}
	defer tx.Rollback()

	switchStmt, err := tx.Prepare(`INSERT OR IGNORE INTO switch_samples (dpid, ts) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("archive prepare switch insert: %w", err)
	}
	defer switchStmt.Close()

	portStmt, err := tx.Prepare(`INSERT OR REPLACE INTO port_samples
		(dpid, port, ts, rx_bytes, tx_bytes, rx_packets, tx_packets)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("archive prepare port insert: %w", err)
	}
	defer portStmt.Close()

	n := 0
	for _, ev := range events {
		if _, err := switchStmt.Exec(int64(ev.DPID), ev.Time); err != nil {
			return 0, fmt.Errorf("archive insert switch %d: %w", ev.DPID, err)
		}
		for port, c := range ev.Ports {
			if _, err := portStmt.Exec(
				int64(ev.DPID), int64(port), ev.Time,
				int64(c.RxBytes), int64(c.TxBytes), int64(c.RxPackets), int64(c.TxPackets),
			); err != nil {
				return 0, fmt.Errorf("archive insert %d/%d: %w", ev.DPID, port, err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("archive commit: %w", err)
	}
	return n, nil
}

// LoadSnapshot rebuilds a snapshot from the most recent maxSamples times of
// every switch. Ports lacking a sample at any of those times are left out so
// that every port sequence stays aligned with the switch's time sequence.
// It returns ErrNotFound when the archive is empty.
func (r *ArchiveRepo) LoadSnapshot(maxSamples int) (telemetry.Snapshot, error) {
	if maxSamples <= 0 {
		maxSamples = telemetry.DefaultSeriesCapacity
	}

	times, err := r.recentTimes(maxSamples)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, ErrNotFound
	}

	snap := make(telemetry.Snapshot, len(times))
	for dpid, ts := range times {
		data, err := r.alignedPorts(dpid, ts)
		if err != nil {
			return nil, err
		}
		snap[dpid] = telemetry.SwitchHistory{Time: ts, Data: data}
	}
	return snap, nil
}

// recentTimes returns, per switch, its latest maxSamples sample times in
// ascending order.
func (r *ArchiveRepo) recentTimes(maxSamples int) (map[fabric.DPID][]float64, error) {
	rows, err := r.db.Query(`
		SELECT dpid, ts FROM (
			SELECT dpid, ts, ROW_NUMBER() OVER (PARTITION BY dpid ORDER BY ts DESC) AS rn
			FROM switch_samples
		) WHERE rn <= ? ORDER BY dpid, ts`, maxSamples)
	if err != nil {
		return nil, fmt.Errorf("archive query times: %w", err)
	}
	defer rows.Close()

	out := make(map[fabric.DPID][]float64)
	for rows.Next() {
		var dpid int64
		var ts float64
		if err := rows.Scan(&dpid, &ts); err != nil {
			return nil, fmt.Errorf("archive scan times: %w", err)
		}
		d := fabric.DPID(uint64(dpid))
		out[d] = append(out[d], ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive iterate times: %w", err)
	}
	return out, nil
}

func (r *ArchiveRepo) alignedPorts(dpid fabric.DPID, times []float64) (map[telemetry.PortID][]telemetry.PortCounters, error) {
	index := make(map[float64]int, len(times))
	for i, ts := range times {
		index[ts] = i
	}

	rows, err := r.db.Query(`
		SELECT port, ts, rx_bytes, tx_bytes, rx_packets, tx_packets
		FROM port_samples WHERE dpid = ? AND ts >= ? AND ts <= ?`,
		int64(dpid), times[0], times[len(times)-1])
	if err != nil {
		return nil, fmt.Errorf("archive query ports of %d: %w", dpid, err)
	}
	defer rows.Close()

	seqs := make(map[telemetry.PortID][]telemetry.PortCounters)
	filled := make(map[telemetry.PortID]int)
	for rows.Next() {
		var port int64
		var ts float64
		var rxB, txB, rxP, txP int64
		if err := rows.Scan(&port, &ts, &rxB, &txB, &rxP, &txP); err != nil {
			return nil, fmt.Errorf("archive scan ports of %d: %w", dpid, err)
		}
		i, ok := index[ts]
		if !ok {
			continue
		}
		p := telemetry.PortID(port)
		seq, ok := seqs[p]
		if !ok {
			seq = make([]telemetry.PortCounters, len(times))
			seqs[p] = seq
		}
		seq[i] = telemetry.PortCounters{
			RxBytes:   uint64(rxB),
			TxBytes:   uint64(txB),
			RxPackets: uint64(rxP),
			TxPackets: uint64(txP),
		}
		filled[p]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive iterate ports of %d: %w", dpid, err)
	}

	var partial []telemetry.PortID
	for p, n := range filled {
		if n != len(times) {
			partial = append(partial, p)
			delete(seqs, p)
		}
	}
	if len(partial) > 0 {
		sort.Slice(partial, func(i, j int) bool { return partial[i] < partial[j] })
		log.Printf("[state] switch %d: skipping ports %v with gaps in the archived window", dpid, partial)
	}
	return seqs, nil
}

// Prune keeps the latest retain sample times per switch and deletes the
// rest. It returns the number of port samples removed.
func (r *ArchiveRepo) Prune(retain int) (int64, error) {
	if retain <= 0 {
		return 0, fmt.Errorf("archive prune: retain must be positive, got %d", retain)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("archive prune begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM switch_samples WHERE (dpid, ts) IN (
			SELECT dpid, ts FROM (
				SELECT dpid, ts, ROW_NUMBER() OVER (PARTITION BY dpid ORDER BY ts DESC) AS rn
				FROM switch_samples
			) WHERE rn > ?
		)`, retain); err != nil {
		return 0, fmt.Errorf("archive prune switch samples: %w", err)
	}
	res, err := tx.Exec(`
		DELETE FROM port_samples WHERE NOT EXISTS (
			SELECT 1 FROM switch_samples s
			WHERE s.dpid = port_samples.dpid AND s.ts = port_samples.ts
		)`)
	if err != nil {
		return 0, fmt.Errorf("archive prune port samples: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive prune rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("archive prune commit: %w", err)
	}
	return removed, nil
}

// Counts returns the number of stored switch times and port samples.
func (r *ArchiveRepo) Counts() (switchTimes, portSamples int64, err error) {
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM switch_samples`).Scan(&switchTimes); err != nil {
		return 0, 0, fmt.Errorf("archive count switch samples: %w", err)
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM port_samples`).Scan(&portSamples); err != nil {
		return 0, 0, fmt.Errorf("archive count port samples: %w", err)
	}
	return switchTimes, portSamples, nil
}
