// Package routes loads the static route manifest: which views exist, how
// they nest, and which of their panes are critical regions.
package routes

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/agnivade/levenshtein"

	"github.com/jask/routepulse/internal/beacon"
)

//go:embed default.toml
var defaultManifest []byte

var ErrUnknownRoute = errors.New("unknown route")

type Pane struct {
	Name     string   `toml:"name"`
	Title    string   `toml:"title"`
	Load     Duration `toml:"load"`
	Critical bool     `toml:"critical"`
	Body     string   `toml:"body"`
}

// ReportingName is the registry name of the pane's beacon.
func (p Pane) ReportingName() string {
	return beacon.ReportingName(p.Name)
}

type Route struct {
	Name  string `toml:"name"`
	Title string `toml:"title"`
	Path  string `toml:"path"`
	// Regions lists extra critical reporter names that are not panes.
	Regions []string `toml:"regions"`
	Panes   []Pane   `toml:"pane"`
}

func (r Route) FullRouteName() string {
	return r.Name
}

// CriticalRegionNames lists the reporters the route waits for, critical
// panes first in declaration order.
func (r Route) CriticalRegionNames() []string {
	var out []string
	for _, p := range r.Panes {
		if p.Critical {
			out = append(out, p.ReportingName())
		}
	}
	return append(out, r.Regions...)
}

// Ancestors returns the route chain a transition into name passes through,
// outermost first and ending with name itself.
func Ancestors(name string) []string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "."))
	}
	return out
}

type Manifest struct {
	Routes []Route `toml:"route"`
	index  map[string]int
}

func Default() *Manifest {
	m, err := Parse(defaultManifest)
	if err != nil {
		panic(fmt.Sprintf("embedded route manifest: %v", err))
	}
	return m
}

// Load reads the manifest at path; an empty path yields the default.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route manifest: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("decode route manifest: %w", err)
	}
	if len(m.Routes) == 0 {
		return nil, errors.New("route manifest declares no routes")
	}
	m.index = make(map[string]int, len(m.Routes))
	for i, r := range m.Routes {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("route %d: missing name", i+1)
		}
		if _, dup := m.index[name]; dup {
			return nil, fmt.Errorf("route %q declared twice", name)
		}
		m.Routes[i].Name = name
		if m.Routes[i].Title == "" {
			m.Routes[i].Title = name
		}
		seen := make(map[string]bool, len(r.Panes))
		for _, p := range r.Panes {
			if p.Name == "" {
				return nil, fmt.Errorf("route %q: pane without name", name)
			}
			if seen[p.Name] {
				return nil, fmt.Errorf("route %q: pane %q declared twice", name, p.Name)
			}
			seen[p.Name] = true
		}
		m.index[name] = i
	}
	for _, r := range m.Routes {
		for _, a := range Ancestors(r.Name) {
			if _, ok := m.index[a]; !ok {
				return nil, fmt.Errorf("route %q: parent route %q is not declared", r.Name, a)
			}
		}
	}
	return &m, nil
}

func (m *Manifest) Names() []string {
	out := make([]string, len(m.Routes))
	for i, r := range m.Routes {
		out[i] = r.Name
	}
	return out
}

// Lookup returns the named route. Unknown names wrap ErrUnknownRoute and
// suggest the closest declared name.
func (m *Manifest) Lookup(name string) (Route, error) {
	if i, ok := m.index[name]; ok {
		return m.Routes[i], nil
	}
	if s := m.suggest(name); s != "" {
		return Route{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownRoute, name, s)
	}
	return Route{}, fmt.Errorf("%w %q", ErrUnknownRoute, name)
}

func (m *Manifest) suggest(name string) string {
	best, bestDist := "", -1
	for _, r := range m.Routes {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(r.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = r.Name, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return ""
	}
	return best
}
