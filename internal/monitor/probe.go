package monitor

import "github.com/jask/routepulse/internal/interactivity"

// probe is what a single monitoring attempt hands to the registry. A fresh
// probe per attempt lets the registry tell attempts apart.
type probe struct {
	names []string
}

func (p *probe) CriticalRegionNames() []string { return p.names }

type checkedProbe struct {
	probe
	view interactiveView
}

func (p *checkedProbe) IsInteractive() bool { return p.view.IsInteractive() }

func newProbe(v View) interactivity.Probe {
	names := append([]string(nil), v.CriticalRegionNames()...)
	if iv, ok := v.(interactiveView); ok {
		return &checkedProbe{probe: probe{names: names}, view: iv}
	}
	return &probe{names: names}
}
