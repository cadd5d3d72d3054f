package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Adapter names used when recording calls.
const (
	AdapterAirtable = "airtable"
	AdapterTelegram = "telegram"
)

// CallMetric records the outcome of a single call to an external service.
type CallMetric struct {
	Adapter   string
	Operation string
	Success   bool
	LatencyMS int64
	Timestamp time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m CallMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	success := 0
	if m.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO adapter_calls (adapter, operation, success, latency_ms, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		m.Adapter, m.Operation, success, m.LatencyMS, ts.Unix())
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// Since builds a metric for a call that started at start.
func Since(adapter, operation string, start time.Time, err error) CallMetric {
	return CallMetric{
		Adapter:   adapter,
		Operation: operation,
		Success:   err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
}

// DailyUsage represents call totals for one adapter on a single day.
type DailyUsage struct {
	Date         string  `json:"date"`
	Adapter      string  `json:"adapter"`
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// GetDailyUsage retrieves usage for the last N days, most recent day first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(recorded_at, 'unixepoch') AS day,
		       adapter,
		       COUNT(*),
		       SUM(1 - success),
		       AVG(latency_ms)
		FROM adapter_calls
		WHERE recorded_at >= ?
		GROUP BY day, adapter
		ORDER BY day DESC, adapter`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Adapter, &u.Calls, &u.Failures, &u.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -olderThanDays).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM adapter_calls WHERE recorded_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}
