package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/crt.report/internal/crt/l5tracks"
	"github.com/banshee-data/crt.report/internal/crt/pipeline"
	"github.com/banshee-data/crt.report/internal/timeutil"
)

// DefaultListLimit caps ListEvents when no positive limit is given.
const DefaultListLimit = 100

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("not found")

// Store persists reconstruction results.
type Store struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// EventRecord is one row of crt_events.
type EventRecord struct {
	EventID      string    `json:"event_id"`
	SourceEvent  string    `json:"source_event"`
	ProcessedAt  time.Time `json:"processed_at"`
	NHits        int       `json:"n_hits"`
	NClusters    int       `json:"n_clusters"`
	NAveraged    int       `json:"n_averaged"`
	NTracks      int       `json:"n_tracks"`
	ProcessingMs float64   `json:"processing_ms"`
}

// TrackRecord is one row of crt_tracks.
type TrackRecord struct {
	ID           int64          `json:"id"`
	EventID      string         `json:"event_id"`
	ClusterIndex int            `json:"cluster_index"`
	Track        l5tracks.Track `json:"track"`
	NHits        int            `json:"n_hits"`
	DepthFactor  float64        `json:"depth_factor"`
	HitIDs       []int          `json:"hit_ids"`
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path must not be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the per-connection PRAGMAs in force and
	// serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	s := &Store{DB: db, path: path, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SetClock replaces the clock used to stamp processed_at.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// SaveEvent writes an event and all of its tracks in one transaction and
// returns the generated event id.
func (s *Store) SaveEvent(ctx context.Context, res *pipeline.EventResult) (string, error) {
	if res == nil {
		return "", errors.New("nil event result")
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	eventID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO crt_events (
			event_id, source_event, processed_at,
			n_hits, n_clusters, n_averaged, n_tracks, processing_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		eventID,
		res.EventID,
		s.clock.Now().UnixNano(),
		res.NHits,
		len(res.Clusters),
		res.NAveraged,
		res.NTracks,
		float64(res.ProcessingTime)/float64(time.Millisecond),
	)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crt_tracks (
			event_id, cluster_index,
			ts0_s, ts0_s_err, ts0_ns_h1, ts0_ns_err_h1, ts0_ns_h2, ts0_ns_err_h2,
			ts0_ns, ts0_ns_err, ts1_ns, ts1_ns_err, peshit,
			x1_pos, x1_err, y1_pos, y1_err, z1_pos, z1_err,
			x2_pos, x2_err, y2_pos, y2_err, z2_pos, z2_err,
			length, thetaxy, phizy, plane1, plane2, complete,
			n_hits, depth_factor, hit_ids
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare track insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range res.Clusters {
		for _, tr := range c.Tracks {
			ids, err := json.Marshal(nonNilInts(tr.IDs))
			if err != nil {
				return "", fmt.Errorf("encode hit ids: %w", err)
			}
			t := tr.Track
			_, err = stmt.ExecContext(ctx,
				eventID, c.Index,
				t.Ts0Sec, t.Ts0SecErr, t.Ts0NsH1, t.Ts0NsErrH1, t.Ts0NsH2, t.Ts0NsErrH2,
				t.Ts0Ns, t.Ts0NsErr, t.Ts1Ns, t.Ts1NsErr, t.PESHit,
				t.X1, t.X1Err, t.Y1, t.Y1Err, t.Z1, t.Z1Err,
				t.X2, t.X2Err, t.Y2, t.Y2Err, t.Z2, t.Z2Err,
				t.Length, t.ThetaXY, t.PhiZY, t.Plane1, t.Plane2, t.Complete,
				tr.NHits, tr.DepthFactor, string(ids),
			)
			if err != nil {
				return "", fmt.Errorf("insert track: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit event: %w", err)
	}
	return eventID, nil
}

// ListEvents returns the most recently processed events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.QueryContext(ctx, `
		SELECT event_id, source_event, processed_at,
			n_hits, n_clusters, n_averaged, n_tracks, processing_ms
		FROM crt_events
		ORDER BY processed_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEvent returns one event by id, or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, eventID string) (*EventRecord, error) {
	row := s.QueryRowContext(ctx, `
		SELECT event_id, source_event, processed_at,
			n_hits, n_clusters, n_averaged, n_tracks, processing_ms
		FROM crt_events
		WHERE event_id = ?
	`, eventID)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListTracks returns the tracks of one event in insertion order.
func (s *Store) ListTracks(ctx context.Context, eventID string) ([]TrackRecord, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, event_id, cluster_index,
			ts0_s, ts0_s_err, ts0_ns_h1, ts0_ns_err_h1, ts0_ns_h2, ts0_ns_err_h2,
			ts0_ns, ts0_ns_err, ts1_ns, ts1_ns_err, peshit,
			x1_pos, x1_err, y1_pos, y1_err, z1_pos, z1_err,
			x2_pos, x2_err, y2_pos, y2_err, z2_pos, z2_err,
			length, thetaxy, phizy, plane1, plane2, complete,
			n_hits, depth_factor, hit_ids
		FROM crt_tracks
		WHERE event_id = ?
		ORDER BY id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []TrackRecord
	for rows.Next() {
		var (
			r      TrackRecord
			hitIDs string
		)
		t := &r.Track
		err := rows.Scan(
			&r.ID, &r.EventID, &r.ClusterIndex,
			&t.Ts0Sec, &t.Ts0SecErr, &t.Ts0NsH1, &t.Ts0NsErrH1, &t.Ts0NsH2, &t.Ts0NsErrH2,
			&t.Ts0Ns, &t.Ts0NsErr, &t.Ts1Ns, &t.Ts1NsErr, &t.PESHit,
			&t.X1, &t.X1Err, &t.Y1, &t.Y1Err, &t.Z1, &t.Z1Err,
			&t.X2, &t.X2Err, &t.Y2, &t.Y2Err, &t.Z2, &t.Z2Err,
			&t.Length, &t.ThetaXY, &t.PhiZY, &t.Plane1, &t.Plane2, &t.Complete,
			&r.NHits, &r.DepthFactor, &hitIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		if err := json.Unmarshal([]byte(hitIDs), &r.HitIDs); err != nil {
			return nil, fmt.Errorf("decode hit ids of track %d: %w", r.ID, err)
		}
		tracks = append(tracks, r)
	}
	return tracks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (EventRecord, error) {
	var (
		e         EventRecord
		processed int64
	)
	err := row.Scan(
		&e.EventID, &e.SourceEvent, &processed,
		&e.NHits, &e.NClusters, &e.NAveraged, &e.NTracks, &e.ProcessingMs,
	)
	if err != nil {
		return EventRecord{}, err
	}
	e.ProcessedAt = time.Unix(0, processed).UTC()
	return e, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
