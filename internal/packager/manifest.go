package packager

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"
)

// ManifestName is the manifest file written next to the archives.
const ManifestName = "manifest.json"

// Manifest records what a build produced.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Archives  []Archive `json:"archives"`
}

// NewManifest starts a manifest with a fresh build id.
func NewManifest(version string, now time.Time) *Manifest {
	return &Manifest{
		BuildID:   newBuildID(),
		Version:   version,
		CreatedAt: now.UTC().Truncate(time.Second),
	}
}

// Write saves the manifest as indented JSON.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads dir/manifest.json and resolves archive paths against dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest (run 'skills build' first): %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for i := range m.Archives {
		m.Archives[i].AbsPath = filepath.Join(dir, filepath.FromSlash(m.Archives[i].Path))
	}
	return &m, nil
}

// SkillArchives returns the per-skill archives, leaving out the full
// distribution.
func (m *Manifest) SkillArchives() []Archive {
	skills := []Archive{}
	for _, a := range m.Archives {
		if path.Dir(a.Path) == "skills" {
			skills = append(skills, a)
		}
	}
	return skills
}

// FindSkill returns the per-skill archive with the given name.
func (m *Manifest) FindSkill(name string) (Archive, bool) {
	for _, a := range m.SkillArchives() {
		if a.Name == name {
			return a, true
		}
	}
	return Archive{}, false
}
