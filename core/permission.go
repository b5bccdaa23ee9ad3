package core

import (
	"fmt"
	"strings"
)

// Higher levels include lower levels when granted by wiki rules.
type Level int

const (
	None   Level = 1
	View   Level = 100
	Edit   Level = 200
	Delete Level = 400
	Admin  Level = 500 // edit access rules of the wiki, passes every workflow role check
)

func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case View:
		return "view"
	case Edit:
		return "edit"
	case Delete:
		return "delete"
	case Admin:
		return "admin"
	}
	return "unknown"
}

func (l Level) Valid() bool {
	switch l {
	case None, View, Edit, Delete, Admin:
		return true
	default:
		return false
	}
}

func ParseLevel(s string) (Level, error) {
	for _, l := range []Level{None, View, Edit, Delete, Admin} {
		if l.String() == strings.TrimSpace(s) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// Rights is an access-control entry of a document.
type Rights struct {
	Levels []Level
	Groups []string
	Users  []string
	Allow  bool
}

func (r Rights) HasLevel(level Level) bool {
	for _, l := range r.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// Matches returns whether the entry applies to the user or to one of the given groups.
func (r Rights) Matches(username string, groups map[string]struct{}) bool {
	if username != "" {
		for _, u := range r.Users {
			if u == username {
				return true
			}
		}
	}
	for _, g := range r.Groups {
		if _, ok := groups[g]; ok {
			return true
		}
	}
	return false
}

// FormatLevels returns a comma-separated list like "view,edit".
func FormatLevels(levels []Level) string {
	var names = make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.String()
	}
	return strings.Join(names, ",")
}

func ParseLevels(s string) ([]Level, error) {
	var levels []Level
	for _, field := range strings.Split(s, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		l, err := ParseLevel(field)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, nil
}
