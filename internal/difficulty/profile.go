// Package difficulty maps the five AI tiers to engine configuration and
// search budgets. The table is validated once at load and immutable after
// that; lookups clamp out-of-range levels instead of failing.
package difficulty

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

// Profile is the tuning for one difficulty level. MoveTimeMillis is both
// the engine's movetime budget and the base of the bridge's request
// timeout; TimeoutMarginMillis is the safety margin on top of it.
type Profile struct {
	Level               int    `yaml:"level"`
	SkillLevel          int    `yaml:"skill_level"`
	Elo                 int    `yaml:"elo"`
	Depth               int    `yaml:"depth"`
	MoveTimeMillis      int    `yaml:"movetime_ms"`
	TimeoutMarginMillis int    `yaml:"timeout_margin_ms"`
	FallbackDepth       int    `yaml:"fallback_depth"`
	Label               string `yaml:"label"`
}

// Budget is the total wall-clock allowance for one engine request.
func (p Profile) Budget() time.Duration {
	return time.Duration(p.MoveTimeMillis+p.TimeoutMarginMillis) * time.Millisecond
}

var defaultProfiles = []Profile{
	{Level: 1, SkillLevel: 0, Elo: 600, Depth: 2, MoveTimeMillis: 300, TimeoutMarginMillis: 1500, FallbackDepth: 1, Label: "beginner"},
	{Level: 2, SkillLevel: 3, Elo: 800, Depth: 4, MoveTimeMillis: 500, TimeoutMarginMillis: 1500, FallbackDepth: 2, Label: "casual"},
	{Level: 3, SkillLevel: 7, Elo: 1100, Depth: 6, MoveTimeMillis: 800, TimeoutMarginMillis: 2000, FallbackDepth: 2, Label: "club"},
	{Level: 4, SkillLevel: 12, Elo: 1500, Depth: 10, MoveTimeMillis: 1200, TimeoutMarginMillis: 2000, FallbackDepth: 3, Label: "strong"},
	{Level: 5, SkillLevel: 18, Elo: 1900, Depth: 14, MoveTimeMillis: 2000, TimeoutMarginMillis: 2500, FallbackDepth: 3, Label: "master"},
}

// Table holds one validated profile per level.
type Table struct {
	profiles map[int]Profile
}

// DefaultTable returns the built-in tiers.
func DefaultTable() *Table {
	t, err := NewTable(defaultProfiles)
	if err != nil {
		// the built-in table is covered by tests; a failure here is a
		// programming error
		panic(err)
	}
	return t
}

// NewTable validates and freezes a profile set. Every level in
// [MinLevel, MaxLevel] must be present exactly once, and depth and time
// budget must be non-decreasing with level.
func NewTable(profiles []Profile) (*Table, error) {
	byLevel := make(map[int]Profile, len(profiles))
	for _, p := range profiles {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := byLevel[p.Level]; dup {
			return nil, fmt.Errorf("duplicate difficulty level %d", p.Level)
		}
		byLevel[p.Level] = p
	}
	for lvl := MinLevel; lvl <= MaxLevel; lvl++ {
		if _, ok := byLevel[lvl]; !ok {
			return nil, fmt.Errorf("missing difficulty level %d", lvl)
		}
	}
	for lvl := MinLevel + 1; lvl <= MaxLevel; lvl++ {
		prev, cur := byLevel[lvl-1], byLevel[lvl]
		if cur.Depth < prev.Depth || cur.MoveTimeMillis < prev.MoveTimeMillis {
			return nil, fmt.Errorf("difficulty level %d weaker than level %d", lvl, lvl-1)
		}
	}
	return &Table{profiles: byLevel}, nil
}

// LoadFile reads a YAML profile table, replacing the defaults wholesale.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read difficulty file: %w", err)
	}
	var doc struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse difficulty file: %w", err)
	}
	return NewTable(doc.Profiles)
}

// Get returns the profile for a level, clamping out-of-range input.
func (t *Table) Get(level int) Profile {
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return t.profiles[level]
}

func validate(p Profile) error {
	switch {
	case p.Level < MinLevel || p.Level > MaxLevel:
		return fmt.Errorf("level %d out of range %d-%d", p.Level, MinLevel, MaxLevel)
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("level %d: skill level %d out of range 0-20", p.Level, p.SkillLevel)
	case p.Elo <= 0:
		return fmt.Errorf("level %d: elo must be > 0: %d", p.Level, p.Elo)
	case p.Depth <= 0:
		return fmt.Errorf("level %d: depth must be > 0: %d", p.Level, p.Depth)
	case p.MoveTimeMillis <= 0:
		return fmt.Errorf("level %d: movetime must be > 0: %d", p.Level, p.MoveTimeMillis)
	case p.TimeoutMarginMillis <= 0:
		return fmt.Errorf("level %d: timeout margin must be > 0: %d", p.Level, p.TimeoutMarginMillis)
	case p.FallbackDepth <= 0:
		return fmt.Errorf("level %d: fallback depth must be > 0: %d", p.Level, p.FallbackDepth)
	}
	return nil
}
