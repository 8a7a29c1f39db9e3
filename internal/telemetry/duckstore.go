// Package telemetry persists loaded telemetry frames in a per-session DuckDB
// file so laps are fetched from the provider at most once.
package telemetry

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/f1-visualizer/backend/internal/log"
	"github.com/f1-visualizer/backend/internal/models"
)

// Errors returned by the store.
var (
	// ErrLapNotStored is returned when a requested lap has not been saved yet.
	ErrLapNotStored = errors.New("lap not stored")
	// ErrStoreClosed is returned for any operation after Close. Session
	// eviction can close the store while a request still holds it.
	ErrStoreClosed = errors.New("telemetry store closed")
)

// Store is a DuckDB-backed cache of telemetry frames keyed by driver number
// and lap number. One store backs one analysis session.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// handle returns the database handle, or ErrStoreClosed after Close.
func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	return s.db, nil
}

// NewStore creates the session database file under dir.
func NewStore(dir, sessionID string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating telemetry dir: %w", err)
	}
	dbPath := filepath.Join(dir, fmt.Sprintf("session_%s.duckdb", sessionID))
	os.Remove(dbPath)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='512MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE samples (
			driver_number INTEGER NOT NULL,
			lap_number    INTEGER NOT NULL,
			idx           INTEGER NOT NULL,
			time          DOUBLE NOT NULL,
			distance      DOUBLE NOT NULL,
			speed         DOUBLE NOT NULL,
			throttle      DOUBLE NOT NULL,
			brake         DOUBLE NOT NULL,
			rpm           DOUBLE NOT NULL,
			gear          INTEGER NOT NULL,
			drs           INTEGER NOT NULL,
			x             DOUBLE NOT NULL,
			y             DOUBLE NOT NULL,
			z             DOUBLE NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("creating samples table: %w", err)
	}

	log.L().Debug("telemetry store created", zap.String("path", dbPath))
	return &Store{db: db, dbPath: dbPath}, nil
}

// SaveLap inserts a frame for a driver/lap, replacing any previous copy.
func (s *Store) SaveLap(ctx context.Context, driverNumber, lapNumber int, frame models.TelemetryFrame) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM samples WHERE driver_number = ? AND lap_number = ?",
		driverNumber, lapNumber); err != nil {
		return fmt.Errorf("clearing previous lap: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (driver_number, lap_number, idx, time, distance,
			speed, throttle, brake, rpm, gear, drs, x, y, z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, sample := range frame {
		if _, err := stmt.ExecContext(ctx, driverNumber, lapNumber, i,
			sample.Time, sample.Distance, sample.Speed, sample.Throttle,
			sample.Brake, sample.RPM, sample.Gear, sample.DRS,
			sample.X, sample.Y, sample.Z); err != nil {
			return fmt.Errorf("inserting sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing lap save: %w", err)
	}
	log.L().Debug("lap saved",
		zap.Int("driver", driverNumber),
		zap.Int("lap", lapNumber),
		zap.Int("samples", len(frame)))
	return nil
}

// HasLap reports whether a driver/lap frame is stored.
func (s *Store) HasLap(ctx context.Context, driverNumber, lapNumber int) (bool, error) {
	db, err := s.handle()
	if err != nil {
		return false, err
	}
	var count int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM samples WHERE driver_number = ? AND lap_number = ?",
		driverNumber, lapNumber).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting samples: %w", err)
	}
	return count > 0, nil
}

// LoadLap reads back a stored frame in sample order.
func (s *Store) LoadLap(ctx context.Context, driverNumber, lapNumber int) (models.TelemetryFrame, error) {
	frame, err := s.query(ctx, `
		SELECT time, distance, speed, throttle, brake, rpm, gear, drs, x, y, z
		FROM samples
		WHERE driver_number = ? AND lap_number = ?
		ORDER BY idx`, driverNumber, lapNumber)
	if err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, ErrLapNotStored
	}
	return frame, nil
}

// QueryRange reads the stored samples of a lap within [minDist, maxDist].
func (s *Store) QueryRange(ctx context.Context, driverNumber, lapNumber int, minDist, maxDist float64) (models.TelemetryFrame, error) {
	return s.query(ctx, `
		SELECT time, distance, speed, throttle, brake, rpm, gear, drs, x, y, z
		FROM samples
		WHERE driver_number = ? AND lap_number = ? AND distance >= ? AND distance <= ?
		ORDER BY idx`, driverNumber, lapNumber, minDist, maxDist)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (models.TelemetryFrame, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	frame := make(models.TelemetryFrame, 0, 1024)
	for rows.Next() {
		var sample models.TelemetrySample
		if err := rows.Scan(&sample.Time, &sample.Distance, &sample.Speed,
			&sample.Throttle, &sample.Brake, &sample.RPM, &sample.Gear,
			&sample.DRS, &sample.X, &sample.Y, &sample.Z); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		frame = append(frame, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	return frame, nil
}

// Close shuts the database down and removes the session file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if rmErr := os.Remove(s.dbPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}
