package visibility

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// flagDoc exposes an arbitrary set of flags, like a browser document with
// vendor-prefixed properties.
type flagDoc struct {
	flags map[string]bool
	subs  map[string]int
}

func (d *flagDoc) Flag(name string) (bool, bool) {
	v, ok := d.flags[name]
	return v, ok
}

func (d *flagDoc) Subscribe(event string, fn func()) func() {
	if d.subs == nil {
		d.subs = map[string]int{}
	}
	d.subs[event]++
	return func() { d.subs[event]-- }
}

func TestDetectAPIPreferenceOrder(t *testing.T) {
	require.Equal(t, Unsupported, DetectAPI(nil))
	require.Equal(t, Unsupported, DetectAPI(&flagDoc{flags: map[string]bool{}}))
	require.Equal(t, Mozilla, DetectAPI(&flagDoc{flags: map[string]bool{"mozHidden": false}}))
	require.Equal(t, Webkit, DetectAPI(&flagDoc{flags: map[string]bool{"mozHidden": false, "webkitHidden": false}}))
	require.Equal(t, Global, DetectAPI(&flagDoc{flags: map[string]bool{"mozHidden": false, "webkitHidden": false, "hidden": true}}))
}

func TestTrackerInitialStateAndSubscription(t *testing.T) {
	doc := &flagDoc{flags: map[string]bool{"webkitHidden": true}}
	tr := NewTracker(doc)

	require.Equal(t, Webkit, tr.API())
	require.False(t, tr.Visible())
	require.True(t, tr.LostVisibility())
	require.Equal(t, 1, doc.subs["webkitvisibilitychange"])

	tr.Close()
	require.Equal(t, 0, doc.subs["webkitvisibilitychange"])
}

func TestLostVisibilityIsSticky(t *testing.T) {
	s := NewSurface(Global)
	tr := NewTracker(s)
	t.Cleanup(tr.Close)

	require.True(t, tr.Visible())
	require.False(t, tr.LostVisibility())

	s.SetHidden(true)
	require.False(t, tr.Visible())
	require.True(t, tr.LostVisibility())

	s.SetHidden(false)
	require.True(t, tr.Visible())
	require.True(t, tr.LostVisibility(), "lostVisibility must never reset")
}

func TestUnsupportedStaysVisible(t *testing.T) {
	s := NewSurface(Unsupported)
	tr := NewTracker(s)

	require.Equal(t, Unsupported, tr.API())
	s.SetHidden(true)
	require.True(t, tr.Visible())
	require.False(t, tr.LostVisibility())
	require.Equal(t, 0, s.Listeners())

	tr.Close()
	tr.Close()
}

func TestNotificationsAfterCloseAreIgnored(t *testing.T) {
	doc := &flagDoc{flags: map[string]bool{"hidden": false}}
	tr := NewTracker(doc)
	tr.Close()
	tr.Close()

	doc.flags["hidden"] = true
	tr.handleChange()
	require.True(t, tr.Visible())
	require.False(t, tr.LostVisibility())
}

func TestSurfaceUnsubscribe(t *testing.T) {
	s := NewSurface(Global)
	tr := NewTracker(s)
	require.Equal(t, 1, s.Listeners())
	tr.Close()
	require.Equal(t, 0, s.Listeners())

	s.SetHidden(true)
	require.False(t, tr.LostVisibility())
}
