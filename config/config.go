// Package config reads the server settings from an ini file and command line flags,
// and the workflow configurations from a YAML file.
package config

import (
	"errors"
	"flag"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xo/dburl"
	"gopkg.in/ini.v1"
)

// Memory is the database argument for a non-persistent in-memory database.
const Memory = "memory"

type Settings struct {
	Base      string `ini:"base"`      // strip off this prefix from every HTTP request, without trailing slash
	DB        string `ini:"db"`        // database url, see github.com/xo/dburl, or Memory
	Listen    string `ini:"listen"`    // ip:port
	LogLevel  string `ini:"log_level"` // zerolog level
	Uploads   string `ini:"uploads"`   // directory of the attachment store, empty to disable attachments
	Wiki      string `ini:"wiki"`      // default wiki
	Workflows string `ini:"workflows"` // YAML file with workflow configurations, imported on startup if not empty
}

// Default returns the default settings. MySQL collation should be utf8mb4_unicode_ci.
func Default() Settings {
	return Settings{
		DB:       "sqlite3:pubflow.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared",
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		Uploads:  "uploads",
		Wiki:     "main",
	}
}

// LoadIni overwrites the settings with the keys of the default section of the ini file. A missing file is ignored.
func (s *Settings) LoadIni(path string) error {
	if path == "" {
		return nil
	}
	file, err := ini.LooseLoad(path)
	if err != nil {
		return err
	}
	return file.MapTo(s)
}

// Flags registers the settings in the FlagSet, with the current values as defaults.
func (s *Settings) Flags(fs *flag.FlagSet) {
	fs.StringVar(&s.Base, "base", s.Base, "strip off this `prefix` from every HTTP request")
	fs.StringVar(&s.DB, "db", s.DB, `sql database url (see github.com/xo/dburl) or "memory"`)
	fs.StringVar(&s.Listen, "listen", s.Listen, "serve HTTP at this `ip:port`")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "minimum log `level`")
	fs.StringVar(&s.Uploads, "uploads", s.Uploads, "attachment `directory`")
	fs.StringVar(&s.Wiki, "wiki", s.Wiki, "default wiki `name`")
	fs.StringVar(&s.Workflows, "workflows", s.Workflows, "import workflow configurations from this YAML `file`")
}

// NormalizedBase returns the base with a leading and without a trailing slash, or the empty string.
func (s Settings) NormalizedBase() string {
	var base = strings.Trim(s.Base, "/")
	if base == "" {
		return ""
	}
	return "/" + base
}

// Database parses the database url. It returns nil if the in-memory database is selected.
func (s Settings) Database() (*dburl.URL, error) {
	if s.DB == Memory {
		return nil, nil
	}
	if s.DB == "" {
		return nil, errors.New("no database given")
	}
	return dburl.Parse(s.DB)
}

func (s Settings) Level() (zerolog.Level, error) {
	if s.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(s.LogLevel))
}
