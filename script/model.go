// Package script maps between the serialized object graph of a .bwn
// file and an editable script model: a project with tabs, each tab a
// list of commands. Build produces the exact collection graph the
// foreign runtime expects; FromGraph projects a decoded graph back into
// the model. The model itself loads and saves as YAML.
package script

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Script is the editable form of a .bwn file.
type Script struct {
	ProjectName string `yaml:"project"`
	Tabs        []Tab  `yaml:"tabs,omitempty"`
}

// Tab is one execution tab of a script.
type Tab struct {
	Title    string    `yaml:"title"`
	Commands []Command `yaml:"commands,omitempty"`
}

// Command is one step of a tab. Type selects the command class; only
// comment commands can be built from scratch, matching what the
// original writer supported, but projection preserves the class name
// and scalar fields of every command it encounters.
type Command struct {
	Type    string `yaml:"type"`
	Comment string `yaml:"comment,omitempty"`
	Enabled bool   `yaml:"enabled"`

	// Class is the full command class name, set during projection.
	Class string `yaml:"class,omitempty"`

	// Fields holds the command's scalar field values by name, set
	// during projection.
	Fields map[string]any `yaml:"fields,omitempty"`
}

// UnmarshalYAML decodes a command, defaulting enabled to true when the
// document omits it.
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	type plain Command
	p := plain{Enabled: true}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Command(p)
	return nil
}

// LoadYAML parses a script document.
func LoadYAML(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("script: invalid yaml: %w", err)
	}
	if s.ProjectName == "" {
		return nil, fmt.Errorf("script: missing project name")
	}
	return &s, nil
}

// YAML renders the script as a YAML document.
func (s *Script) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
