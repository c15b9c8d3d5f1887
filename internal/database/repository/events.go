package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jask/routepulse/internal/database"
	"github.com/jask/routepulse/internal/tracking"
)

// EventRepo persists telemetry events. It is a tracking.Sink.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Record(ctx context.Context, ev tracking.Event) error {
	if ev.ID == "" {
		return errors.New("record event: missing id")
	}
	fields, err := json.Marshal(ev.Fields())
	if err != nil {
		return fmt.Errorf("encode event fields: %w", err)
	}
	var launch sql.NullBool
	if ev.IsAppLaunch != nil {
		launch = sql.NullBool{Bool: *ev.IsAppLaunch, Valid: true}
	}
	var elapsed sql.NullFloat64
	if ev.TimeElapsed != nil {
		elapsed = sql.NullFloat64{Float64: *ev.TimeElapsed, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO telemetry_events(
		id, session_id, event, route_name, destination, page, title,
		lost_visibility, client_time, is_app_launch, time_elapsed_ms, fields_json, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING;
	`, ev.ID, ev.SessionID, ev.Name,
		nullString(ev.RouteName), nullString(ev.Destination), nullString(ev.Page), nullString(ev.Title),
		ev.LostVisibility, ev.ClientTime.UnixMilli(), launch, elapsed, string(fields), database.Now())
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.Name, err)
	}
	return nil
}

// List returns up to limit events, newest first. A non-positive limit
// returns everything.
func (r *EventRepo) List(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, session_id, event, route_name, destination, page, title,
	       lost_visibility, client_time, is_app_launch, time_elapsed_ms, fields_json, recorded_at
	FROM telemetry_events
	ORDER BY client_time DESC, rowid DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredEvent
	for rows.Next() {
		var (
			e                        StoredEvent
			route, dest, page, title sql.NullString
			launch                   sql.NullBool
			elapsed                  sql.NullFloat64
			clientMS                 int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Event, &route, &dest, &page, &title,
			&e.LostVisibility, &clientMS, &launch, &elapsed, &e.FieldsJSON, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.RouteName, e.Destination, e.Page, e.Title = route.String, dest.String, page.String, title.String
		e.ClientTime = time.UnixMilli(clientMS).UTC()
		if launch.Valid {
			v := launch.Bool
			e.IsAppLaunch = &v
		}
		if elapsed.Valid {
			v := elapsed.Float64
			e.TimeElapsedMS = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByEvent returns the number of stored events per event name.
func (r *EventRepo) CountByEvent(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event, COUNT(*) FROM telemetry_events GROUP BY event`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

// LaunchStats aggregates the timeElapsed of app-launch completions across
// sessions. Count is zero when no launch has been recorded.
func (r *EventRepo) LaunchStats(ctx context.Context) (LaunchStats, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(AVG(time_elapsed_ms), 0), COALESCE(MAX(time_elapsed_ms), 0)
	FROM telemetry_events
	WHERE event = ? AND is_app_launch = 1 AND time_elapsed_ms IS NOT NULL`,
		tracking.RouteTransitionCompleted)
	var s LaunchStats
	if err := row.Scan(&s.Count, &s.MeanMS, &s.MaxMS); err != nil {
		return LaunchStats{}, err
	}
	return s, nil
}

// LaunchSeries returns app-launch completions in client time order.
func (r *EventRepo) LaunchSeries(ctx context.Context) ([]LaunchPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT client_time, time_elapsed_ms
	FROM telemetry_events
	WHERE event = ? AND is_app_launch = 1 AND time_elapsed_ms IS NOT NULL
	ORDER BY client_time, rowid`, tracking.RouteTransitionCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LaunchPoint
	for rows.Next() {
		var ms int64
		var p LaunchPoint
		if err := rows.Scan(&ms, &p.MS); err != nil {
			return nil, err
		}
		p.At = time.UnixMilli(ms).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// ByID returns the event with id, or nil when there is none.
func (r *EventRepo) ByID(ctx context.Context, id string) (*StoredEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT fields_json, session_id, event FROM telemetry_events WHERE id = ?`, id)
	e := StoredEvent{ID: id}
	if err := row.Scan(&e.FieldsJSON, &e.SessionID, &e.Event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
