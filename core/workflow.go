package core

import (
	"context"
	"strings"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusModerating Status = "moderating"
	StatusValidating Status = "validating"
	StatusValid      Status = "valid"
	StatusPublished  Status = "published"
	StatusArchived   Status = "archived"
)

var AllStatuses = []Status{StatusDraft, StatusModerating, StatusValidating, StatusValid, StatusPublished, StatusArchived}

func (s Status) Valid() bool {
	for _, valid := range AllStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

func (s Status) In(statuses ...Status) bool {
	for _, other := range statuses {
		if s == other {
			return true
		}
	}
	return false
}

// Workflow is the workflow metadata of a document.
type Workflow struct {
	ConfigRef string // name of the Config
	Target    Ref    // draft: address of the published copy, published copy: its own address
	Status    Status
	IsTarget  bool // false for the draft, true for the published copy
}

// Principals is a list of groups and users.
type Principals struct {
	Groups []string `json:"groups" yaml:"groups"`
	Users  []string `json:"users" yaml:"users"`
}

func (p Principals) IsEmpty() bool {
	return len(p.Groups) == 0 && len(p.Users) == 0
}

// Union returns the principals of the receiver and the others, without duplicates.
func (p Principals) Union(others ...Principals) Principals {
	var result Principals
	var seenGroups = make(map[string]struct{})
	var seenUsers = make(map[string]struct{})
	for _, principals := range append([]Principals{p}, others...) {
		for _, g := range principals.Groups {
			if _, ok := seenGroups[g]; !ok {
				seenGroups[g] = struct{}{}
				result.Groups = append(result.Groups, g)
			}
		}
		for _, u := range principals.Users {
			if _, ok := seenUsers[u]; !ok {
				seenUsers[u] = struct{}{}
				result.Users = append(result.Users, u)
			}
		}
	}
	return result
}

// ParsePrincipals splits a comma-separated list like "Editors,user:alice" into groups and users.
func ParsePrincipals(s string) Principals {
	var p Principals
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		switch {
		case field == "":
		case strings.HasPrefix(field, "user:"):
			p.Users = append(p.Users, strings.TrimPrefix(field, "user:"))
		default:
			p.Groups = append(p.Groups, field)
		}
	}
	return p
}

// A Config assigns principals to the workflow roles.
type Config struct {
	Name         string     `yaml:"name"`
	Contributors Principals `yaml:"contributors"`
	Moderators   Principals `yaml:"moderators"`
	Validators   Principals `yaml:"validators"`
	DraftSpace   Ref        `yaml:"-"` // default space for new drafts
}

// AllRoles returns the union of contributors, moderators and validators.
func (c *Config) AllRoles() Principals {
	return c.Contributors.Union(c.Moderators, c.Validators)
}

// A ConfigDB stores workflow configurations by name.
type ConfigDB interface {
	DeleteConfig(ctx context.Context, name string) error
	GetAllConfigs(ctx context.Context) ([]*Config, error)
	GetConfig(ctx context.Context, name string) (*Config, error) // ErrNotFound if it does not exist
	SaveConfig(ctx context.Context, config *Config) error
}
