package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      device_type,
                      device_id,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
ORDER BY start_time`

	insertReadingSQL = `
INSERT INTO readings (session_id,
                      timestamp,
                      distance,
                      echo_us)
VALUES (?, ?, ?, ?)`

	selectReadingsSQL = `
SELECT
    timestamp,
    distance,
    echo_us
FROM readings
WHERE
    session_id = ?`
)

//go:embed schema.sql
var schemaSQL string
