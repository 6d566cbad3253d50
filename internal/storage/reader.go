package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

// ErrSessionNotFound is returned when the requested session does not exist
var ErrSessionNotFound = errors.New("session not found")

// ReadingsOption narrows the range of readings an iterator visits
type ReadingsOption func(*ReadingIterator)

// WithStartTime skips readings taken before startTime
func WithStartTime(startTime time.Time) ReadingsOption {
	return func(i *ReadingIterator) {
		i.startTime = &startTime
	}
}

// WithEndTime skips readings taken after endTime
func WithEndTime(endTime time.Time) ReadingsOption {
	return func(i *ReadingIterator) {
		i.endTime = &endTime
	}
}

// WithTimeRange restricts the iterator to readings within [startTime, endTime]
func WithTimeRange(startTime, endTime time.Time) ReadingsOption {
	return func(i *ReadingIterator) {
		i.startTime = &startTime
		i.endTime = &endTime
	}
}

// Session returns a session by its ID
func (s *Store) Session(id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	stmt, err := db.Prepare(selectSessionSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	if err = stmt.QueryRow(id).Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &config); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

// Sessions returns all sessions in the database, ordered by start time
func (s *Store) Sessions() (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.Query(selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &config); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Readings returns an iterator over the session's readings in timestamp
// order. The caller must Close the iterator when done.
func (s *Store) Readings(ctx context.Context, sessionID int64, opts ...ReadingsOption) (*ReadingIterator, error) {
	if _, err := s.Session(sessionID); err != nil {
		return nil, err
	}

	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	iter := ReadingIterator{sessionID: sessionID}
	for _, opt := range opts {
		opt(&iter)
	}

	var sb strings.Builder
	sb.WriteString(selectReadingsSQL)

	args := []any{sessionID}
	if iter.startTime != nil {
		sb.WriteString(" AND timestamp >= ?")
		args = append(args, iter.startTime.UTC())
	}
	if iter.endTime != nil {
		sb.WriteString(" AND timestamp <= ?")
		args = append(args, iter.endTime.UTC())
	}
	sb.WriteString(" ORDER BY timestamp")

	if iter.rows, err = db.QueryContext(ctx, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}

	return &iter, nil
}

// ReadingIterator provides streaming iteration over stored readings
type ReadingIterator struct {
	sessionID int64
	startTime *time.Time
	endTime   *time.Time

	rows    *sql.Rows
	current sonar.Reading
	err     error
}

// Next advances to the next reading
func (i *ReadingIterator) Next() bool {
	if i.err != nil || !i.rows.Next() {
		return false
	}

	var echoMicros int64
	if err := i.rows.Scan(&i.current.Timestamp, &i.current.Distance, &echoMicros); err != nil {
		i.err = err
		return false
	}

	i.current.EchoDuration = time.Duration(echoMicros) * time.Microsecond
	return true
}

// Current returns the reading the iterator is positioned on
func (i *ReadingIterator) Current() sonar.Reading {
	return i.current
}

// Error returns any error that occurred during iteration
func (i *ReadingIterator) Error() error {
	if i.err != nil {
		return i.err
	}
	return i.rows.Err()
}

// Close releases the database resources
func (i *ReadingIterator) Close() error {
	return i.rows.Close()
}
