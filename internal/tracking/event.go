// Package tracking receives finished telemetry events and fans them out to
// sinks. Delivery is fire-and-forget.
package tracking

import "time"

// Event names.
const (
	RouteTransitionStarted   = "routeTransitionStarted"
	RouteTransitionCompleted = "routeTransitionCompleted"
	PageViewed               = "pageViewed"
)

// Event is one telemetry payload. Fields flattens it into the wire mapping.
type Event struct {
	ID             string
	SessionID      string
	Name           string
	Page           string
	Title          string
	Destination    string
	RouteName      string
	LostVisibility bool
	ClientTime     time.Time
	IsAppLaunch    *bool
	// TimeElapsed is in milliseconds since process start.
	TimeElapsed *float64
	Extra       map[string]any
}

// Fields returns the flat mapping. Optional fields are omitted when unset;
// Extra is merged last and wins on key collisions.
func (e Event) Fields() map[string]any {
	out := map[string]any{
		"event": e.Name,
	}
	if e.ID != "" {
		out["id"] = e.ID
	}
	if e.SessionID != "" {
		out["sessionId"] = e.SessionID
	}
	if e.Page != "" {
		out["page"] = e.Page
	}
	if e.Title != "" {
		out["title"] = e.Title
	}
	if e.Name != PageViewed {
		out["destination"] = e.Destination
		out["routeName"] = e.RouteName
		out["lostVisibility"] = e.LostVisibility
	}
	if !e.ClientTime.IsZero() {
		out["clientTime"] = e.ClientTime.UnixMilli()
	}
	if e.IsAppLaunch != nil {
		out["isAppLaunch"] = *e.IsAppLaunch
	}
	if e.TimeElapsed != nil {
		out["timeElapsed"] = *e.TimeElapsed
	}
	for k, v := range e.Extra {
		out[k] = v
	}
	return out
}
