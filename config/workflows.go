package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wansing/pubflow/core"
	"gopkg.in/yaml.v3"
)

type workflowFile struct {
	Workflows []workflowEntry `yaml:"workflows"`
}

type workflowEntry struct {
	core.Config `yaml:",inline"`
	DraftSpace  string `yaml:"draft_space"`
}

// ParseWorkflows reads workflow configurations like:
//
//	workflows:
//	  - name: news
//	    draft_space: main:Drafts
//	    contributors:
//	      groups: [Authors]
//	    validators:
//	      users: [vera]
func ParseWorkflows(r io.Reader) ([]*core.Config, error) {

	var file workflowFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && err != io.EOF {
		return nil, err
	}

	var seen = make(map[string]struct{})
	var configs = make([]*core.Config, 0, len(file.Workflows))

	for i, entry := range file.Workflows {
		var config = entry.Config
		if config.Name == "" {
			return nil, fmt.Errorf("workflow %d has no name", i)
		}
		if _, ok := seen[config.Name]; ok {
			return nil, fmt.Errorf("workflow %s is defined twice", config.Name)
		}
		seen[config.Name] = struct{}{}
		if entry.DraftSpace != "" {
			draftSpace, err := core.ParseRef(entry.DraftSpace)
			if err != nil {
				return nil, fmt.Errorf("workflow %s: draft_space: %w", config.Name, err)
			}
			config.DraftSpace = draftSpace
		}
		configs = append(configs, &config)
	}

	return configs, nil
}

func LoadWorkflows(path string) ([]*core.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseWorkflows(f)
}

// ImportWorkflows saves the configurations, replacing existing ones with the same name.
func ImportWorkflows(ctx context.Context, db core.ConfigDB, configs []*core.Config) error {
	for _, config := range configs {
		if err := db.SaveConfig(ctx, config); err != nil {
			return fmt.Errorf("saving workflow %s: %w", config.Name, err)
		}
	}
	return nil
}
