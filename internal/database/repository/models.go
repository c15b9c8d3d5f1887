package repository

import "time"

// StoredEvent is a telemetry_events row.
type StoredEvent struct {
	ID             string
	SessionID      string
	Event          string
	RouteName      string
	Destination    string
	Page           string
	Title          string
	LostVisibility bool
	ClientTime     time.Time
	IsAppLaunch    *bool
	TimeElapsedMS  *float64
	FieldsJSON     string
	RecordedAt     time.Time
}

// LaunchStats summarises the recorded app-launch completions.
type LaunchStats struct {
	Count  int
	MeanMS float64
	MaxMS  float64
}

// LaunchPoint is one app-launch completion.
type LaunchPoint struct {
	At time.Time
	MS float64
}
