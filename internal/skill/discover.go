package skill

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Failure records a skill directory whose SKILL.md could not be parsed.
type Failure struct {
	Dir  string
	Path string
	Err  error
}

// Set is the result of scanning a skills directory.
type Set struct {
	Skills   []*Skill
	Failures []Failure
}

// Get returns the skill with the given name.
func (s *Set) Get(name string) (*Skill, bool) {
	for _, sk := range s.Skills {
		if sk.Name == name {
			return sk, true
		}
	}
	for _, sk := range s.Skills {
		if sk.DirName() == name {
			return sk, true
		}
	}
	return nil, false
}

// Discover parses every <root>/<dir>/SKILL.md, one level deep, in directory
// name order. Directories without a SKILL.md are ignored; unparsable ones
// are reported in Failures rather than aborting the scan.
func Discover(root string) (*Set, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read skills directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	set := &Set{}
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		dir := filepath.Join(root, e.Name())
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		s, err := Parse(path)
		if err != nil {
			set.Failures = append(set.Failures, Failure{Dir: dir, Path: path, Err: err})
			continue
		}
		set.Skills = append(set.Skills, s)
	}
	return set, nil
}
