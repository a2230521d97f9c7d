package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"sitepulse/api/database"
	"sitepulse/api/models"
)

// Row caps keep worst-case latency and memory bounded; reports re-scan raw
// windows on every execution, so the caps are the only backstop.
const (
	rangeQueryCap    = 10000
	filteredQueryCap = 1000
)

// EventFilters narrows a filtered query. String zero values and nil bool
// pointers mean "no constraint".
type EventFilters struct {
	EventType     string
	Device        string
	Browser       string
	OS            string
	Country       string
	Referrer      string
	TrafficSource string
	PageContains  string
	VisitorID     string
	IsBot         *bool
	IsInternal    *bool
	IsServer      *bool
}

// EventStore is the append-only persistence contract the pipeline and the
// reporting engines consume. The only index callers may assume is "by
// project and time"; dimensional grouping happens in memory on the result.
type EventStore interface {
	Insert(ctx context.Context, events []models.Event) error
	RangeQuery(ctx context.Context, projectID string, from, to time.Time) ([]models.Event, error)
	FilteredQuery(ctx context.Context, projectID string, filters EventFilters, limit int) ([]models.Event, error)
	DeleteBefore(ctx context.Context, projectID string, cutoff time.Time) error
	DeleteProject(ctx context.Context, projectID string) error
}

// ClickHouseEventStore persists events in the append-only ClickHouse table.
type ClickHouseEventStore struct {
	DB *database.ClickHouseClient
}

func NewClickHouseEventStore(chClient *database.ClickHouseClient) *ClickHouseEventStore {
	return &ClickHouseEventStore{DB: chClient}
}

const eventColumns = `event_id, project_id, visitor_id, session_id, event_type, page_path,
	referrer, device, browser, os, country, region, city, ip_address,
	is_bot, is_internal, is_server, traffic_source, metadata, timestamp`

func (s *ClickHouseEventStore) Insert(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO events (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, eventColumns))
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.ProjectID,
			event.VisitorID,
			event.SessionID,
			event.EventType,
			event.PagePath,
			event.Referrer,
			event.Device,
			event.Browser,
			event.OS,
			event.Country,
			event.Region,
			event.City,
			event.IPAddress,
			boolToUint8(event.IsBot),
			boolToUint8(event.IsInternal),
			boolToUint8(event.IsServer),
			event.TrafficSource,
			string(event.Metadata),
			event.Timestamp,
		)
		if err != nil {
			log.Printf("Error appending event to batch (EventID: %s): %v", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseEventStore) RangeQuery(ctx context.Context, projectID string, from, to time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE project_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
		LIMIT ?
	`, eventColumns)

	rows, err := s.DB.Conn.Query(ctx, query, projectID, from, to, uint64(rangeQueryCap))
	if err != nil {
		return nil, fmt.Errorf("failed to query event range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *ClickHouseEventStore) FilteredQuery(ctx context.Context, projectID string, filters EventFilters, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > filteredQueryCap {
		limit = filteredQueryCap
	}

	where := []string{"project_id = ?"}
	args := []interface{}{projectID}

	addEq := func(col, val string) {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}
	addEq("event_type", filters.EventType)
	addEq("device", filters.Device)
	addEq("browser", filters.Browser)
	addEq("os", filters.OS)
	addEq("country", filters.Country)
	addEq("referrer", filters.Referrer)
	addEq("traffic_source", filters.TrafficSource)
	addEq("visitor_id", filters.VisitorID)

	if filters.PageContains != "" {
		where = append(where, "positionCaseInsensitive(page_path, ?) > 0")
		args = append(args, filters.PageContains)
	}
	addFlag := func(col string, val *bool) {
		if val != nil {
			where = append(where, col+" = ?")
			args = append(args, boolToUint8(*val))
		}
	}
	addFlag("is_bot", filters.IsBot)
	addFlag("is_internal", filters.IsInternal)
	addFlag("is_server", filters.IsServer)

	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE %s
		ORDER BY timestamp DESC
		LIMIT ?
	`, eventColumns, strings.Join(where, " AND "))
	args = append(args, uint64(limit))

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run filtered event query: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteBefore purges a project's events older than cutoff (retention).
func (s *ClickHouseEventStore) DeleteBefore(ctx context.Context, projectID string, cutoff time.Time) error {
	err := s.DB.Conn.Exec(ctx, `
		ALTER TABLE events DELETE WHERE project_id = ? AND timestamp < ?
	`, projectID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return nil
}

// DeleteProject erases every event of a project.
func (s *ClickHouseEventStore) DeleteProject(ctx context.Context, projectID string) error {
	err := s.DB.Conn.Exec(ctx, `ALTER TABLE events DELETE WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("failed to erase events for project %s: %w", projectID, err)
	}
	return nil
}

type eventRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvents(rows eventRows) ([]models.Event, error) {
	events := make([]models.Event, 0)
	for rows.Next() {
		var (
			e        models.Event
			isBot    uint8
			isInt    uint8
			isSrv    uint8
			metadata string
		)
		err := rows.Scan(
			&e.EventID,
			&e.ProjectID,
			&e.VisitorID,
			&e.SessionID,
			&e.EventType,
			&e.PagePath,
			&e.Referrer,
			&e.Device,
			&e.Browser,
			&e.OS,
			&e.Country,
			&e.Region,
			&e.City,
			&e.IPAddress,
			&isBot,
			&isInt,
			&isSrv,
			&e.TrafficSource,
			&metadata,
			&e.Timestamp,
		)
		if err != nil {
			log.Printf("Error scanning event row: %v", err)
			continue
		}
		e.IsBot = isBot != 0
		e.IsInternal = isInt != 0
		e.IsServer = isSrv != 0
		if metadata != "" {
			e.Metadata = json.RawMessage(metadata)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event scan: %w", err)
	}
	return events, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
