package l1hits

import "fmt"

// PanelRole classifies a tagger for the role-based branches of track
// building. Most taggers have RoleOther.
type PanelRole uint8

const (
	RoleOther PanelRole = iota
	RoleBottom
	RoleTopHigh
	RoleTopLow
)

func (r PanelRole) String() string {
	switch r {
	case RoleBottom:
		return "bottom"
	case RoleTopHigh:
		return "top-high"
	case RoleTopLow:
		return "top-low"
	default:
		return "other"
	}
}

// RoleMap maps physical tagger names to roles. Taggers absent from the map
// have RoleOther.
type RoleMap map[string]PanelRole

// NewRoleMap builds a RoleMap from the three special tagger names.
func NewRoleMap(bottom, topHigh, topLow string) (RoleMap, error) {
	m := RoleMap{}
	for _, e := range []struct {
		name string
		role PanelRole
	}{
		{bottom, RoleBottom},
		{topHigh, RoleTopHigh},
		{topLow, RoleTopLow},
	} {
		if e.name == "" {
			return nil, fmt.Errorf("empty tagger name for role %s", e.role)
		}
		if prev, ok := m[e.name]; ok {
			return nil, fmt.Errorf("tagger %q assigned to both %s and %s", e.name, prev, e.role)
		}
		m[e.name] = e.role
	}
	return m, nil
}

// DefaultRoleMap returns the ICARUS tagger naming.
func DefaultRoleMap() RoleMap {
	return RoleMap{
		"volTaggerBot_0":     RoleBottom,
		"volTaggerTopHigh_0": RoleTopHigh,
		"volTaggerTopLow_0":  RoleTopLow,
	}
}

// Role returns the role of the named tagger.
func (m RoleMap) Role(tagger string) PanelRole {
	return m[tagger]
}
