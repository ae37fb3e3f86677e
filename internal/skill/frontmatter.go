// Package skill parses and validates skill documents: directories holding a
// SKILL.md whose YAML front-matter declares the skill's name, description
// and optional model.
package skill

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the document every skill directory must contain.
const FileName = "SKILL.md"

var (
	// ErrNoFrontMatter is returned when a document does not open with a --- fence.
	ErrNoFrontMatter = errors.New("missing front-matter: file must start with ---")
	// ErrUnterminatedFrontMatter is returned when the closing --- fence is missing.
	ErrUnterminatedFrontMatter = errors.New("unterminated front-matter: closing --- not found")
)

// Skill is a parsed skill document.
type Skill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Model       string `json:"model,omitempty"`

	// Dir is the skill directory; Path the SKILL.md inside it.
	Dir  string `json:"dir,omitempty"`
	Path string `json:"path,omitempty"`

	// Body is the Markdown after the front-matter, starting at BodyLine.
	Body     string `json:"-"`
	BodyLine int    `json:"-"`

	// Extra holds front-matter keys other than name, description and model.
	Extra map[string]any `json:"extra,omitempty"`

	declared string
}

// DirName returns the base name of the skill directory.
func (s *Skill) DirName() string {
	if s.Dir == "" {
		return ""
	}
	return filepath.Base(s.Dir)
}

type frontMatter struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Model       string         `yaml:"model"`
	Extra       map[string]any `yaml:",inline"`
}

// Parse reads and parses the SKILL.md at path.
func Parse(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill: %w", err)
	}
	s, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	s.Dir = filepath.Dir(path)
	if s.Name == "" {
		s.Name = filepath.Base(s.Dir)
	}
	return s, nil
}

// ParseBytes parses a SKILL.md document. The name is left empty when the
// front-matter does not declare one.
func ParseBytes(data []byte) (*Skill, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	lines := strings.SplitAfter(text, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t\n") != "---" {
		return nil, ErrNoFrontMatter
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\n") == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, ErrUnterminatedFrontMatter
	}

	raw := strings.Join(lines[1:end], "")
	var fm frontMatter
	if len(bytes.TrimSpace([]byte(raw))) > 0 {
		if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
			return nil, fmt.Errorf("invalid front-matter YAML: %w", err)
		}
	}

	s := &Skill{
		Name:        strings.TrimSpace(fm.Name),
		Description: strings.TrimSpace(fm.Description),
		Model:       strings.TrimSpace(fm.Model),
		Body:        strings.Join(lines[end+1:], ""),
		BodyLine:    end + 2,
	}
	s.declared = s.Name
	if len(fm.Extra) > 0 {
		s.Extra = fm.Extra
	}
	return s, nil
}
