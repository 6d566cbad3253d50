// Package storage persists sampling sessions and their distance readings in
// per-run SQLite databases.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

// Session represents a single recorded sampling run with a specific sensor
type Session struct {
	ID         int64     `json:"id"`               // Unique identifier for the session
	StartTime  time.Time `json:"startTime"`        // When the sampling run began
	DeviceType string    `json:"deviceType"`       // Sensor type (e.g. "hc-sr04")
	DeviceID   string    `json:"deviceID"`         // Identifier of the specific sensor
	Config     *string   `json:"config,omitempty"` // Optional sampler configuration in JSON format
}

// Store handles database operations. Connections are opened lazily: a write
// connection with WAL journaling for the recorder, a read-only connection for
// session queries.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a store for the database at dbPath. The schema is initialized
// on first write access.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.dbPath))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = initSchema(db); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.dbPath))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession creates a new session and returns its ID. The config may be
// a string, []byte or any JSON-serializable value, and is stored verbatim
// alongside the session for later inspection.
func (s *Store) CreateSession(deviceType, deviceID string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	switch v := config.(type) {
	case nil:
	case string:
		configData = sql.NullString{String: v, Valid: true}

	case []byte:
		configData = sql.NullString{String: string(v), Valid: true}

	default:
		var p []byte
		if p, err = json.Marshal(config); err != nil {
			return 0, fmt.Errorf("marshaling config: %w", err)
		}
		configData = sql.NullString{String: string(p), Valid: true}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.Prepare(insertSessionSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.Exec(deviceType, deviceID, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	return result.LastInsertId()
}

// BatchInsertReadings stores a batch of readings for the session in a single
// transaction. Timestamps are stored in UTC, echo durations in microseconds.
func (s *Store) BatchInsertReadings(sessionID int64, readings []sonar.Reading) (err error) {
	if len(readings) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(insertReadingSQL)
	if err != nil {
		rollbackWithError(tx, &err)
		return fmt.Errorf("preparing statement: %w", err)
	}

	for _, r := range readings {
		if _, err = stmt.Exec(sessionID, r.Timestamp.UTC(), r.Distance, r.EchoDuration.Microseconds()); err != nil {
			_ = stmt.Close()
			rollbackWithError(tx, &err)
			return fmt.Errorf("inserting reading: %w", err)
		}
	}

	if err = stmt.Close(); err != nil {
		rollbackWithError(tx, &err)
		return fmt.Errorf("closing statement: %w", err)
	}

	return tx.Commit()
}

// Close releases all database connections. It is safe to call Close multiple
// times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil {
		*err = cErr
	}
}
