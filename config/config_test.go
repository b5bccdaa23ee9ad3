package config

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/memdb"
)

func TestSettings(t *testing.T) {

	var path = filepath.Join(t.TempDir(), "pubflow.ini")
	require.NoError(t, os.WriteFile(path, []byte("listen = 0.0.0.0:9000\nwiki = intranet\nlog_level = DEBUG\n"), 0644))

	var s = Default()
	require.NoError(t, s.LoadIni(path))
	assert.Equal(t, "0.0.0.0:9000", s.Listen)
	assert.Equal(t, "intranet", s.Wiki)
	assert.Equal(t, "uploads", s.Uploads) // not in the file

	// flags take precedence
	var fs = flag.NewFlagSet("test", flag.ContinueOnError)
	s.Flags(fs)
	require.NoError(t, fs.Parse([]string{"-wiki", "public", "-base", "/app/"}))
	assert.Equal(t, "public", s.Wiki)
	assert.Equal(t, "0.0.0.0:9000", s.Listen)
	assert.Equal(t, "/app", s.NormalizedBase())

	level, err := s.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	u, err := s.Database()
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", u.Driver)

	s.DB = Memory
	u, err = s.Database()
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestMissingIni(t *testing.T) {
	var s = Default()
	require.NoError(t, s.LoadIni(filepath.Join(t.TempDir(), "missing.ini")))
	assert.Equal(t, Default(), s)
}

func TestParseWorkflows(t *testing.T) {

	configs, err := ParseWorkflows(strings.NewReader(`
workflows:
  - name: news
    draft_space: main:Drafts
    contributors:
      groups: [Authors]
    moderators:
      groups: [Moderators]
    validators:
      users: [vera]
  - name: direct
`))
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, &core.Config{
		Name:         "news",
		Contributors: core.Principals{Groups: []string{"Authors"}},
		Moderators:   core.Principals{Groups: []string{"Moderators"}},
		Validators:   core.Principals{Users: []string{"vera"}},
		DraftSpace:   core.MustParseRef("main:Drafts"),
	}, configs[0])
	assert.Equal(t, "direct", configs[1].Name)
	assert.True(t, configs[1].DraftSpace.IsZero())

	var db = memdb.New()
	require.NoError(t, ImportWorkflows(context.Background(), db, configs))
	news, err := db.GetConfig(context.Background(), "news")
	require.NoError(t, err)
	assert.Equal(t, configs[0], news)
}

func TestParseWorkflowsErrors(t *testing.T) {
	for _, input := range []string{
		"workflows:\n  - draft_space: main:Drafts\n",
		"workflows:\n  - name: a\n  - name: a\n",
		"workflows:\n  - name: a\n    draft_space: 'main:Bad Space'\n",
		"workflows:\n  - name: a\n    unknown: 1\n",
	} {
		_, err := ParseWorkflows(strings.NewReader(input))
		assert.Error(t, err, input)
	}
}
