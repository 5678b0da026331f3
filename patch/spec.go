package patch

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// Spec is a batch patch description, loaded from a JSON document.
// Comments and trailing commas are allowed so specs can be annotated and
// kept under version control.
type Spec struct {
	// ProjectName replaces the project name string when non-empty.
	ProjectName string `json:"project_name"`

	// TabTitles maps current tab titles to replacements.
	TabTitles map[string]string `json:"tab_titles"`

	// Replacements maps exact string values to replacements; every
	// occurrence is rewritten.
	Replacements map[string]string `json:"replacements"`
}

// ParseSpec parses a patch spec document.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := json.Unmarshal(jsonc.ToJSON(data), &spec); err != nil {
		return nil, fmt.Errorf("patch: invalid spec: %w", err)
	}
	return &spec, nil
}

// Apply runs every edit in the spec and returns the total number of
// string records rewritten.
func (p *Patcher) Apply(spec *Spec) (int, error) {
	total := 0
	if spec.ProjectName != "" {
		if err := p.SetProjectName(spec.ProjectName); err != nil {
			return total, err
		}
		total++
	}
	for oldTitle, newTitle := range spec.TabTitles {
		if err := p.SetTabTitle(oldTitle, newTitle); err != nil {
			return total, err
		}
		total++
	}
	for oldValue, newValue := range spec.Replacements {
		n, err := p.ReplaceString(oldValue, newValue, -1)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
