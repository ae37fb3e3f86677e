// Package lintsetup installs linters and pre-commit hooks matched to the
// languages a project uses.
package lintsetup

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Language is a supported project language.
type Language string

const (
	Python     Language = "python"
	TypeScript Language = "typescript"
	Flutter    Language = "flutter"
	CSharp     Language = "csharp"
	Terraform  Language = "terraform"
)

// Label is the human-readable name.
func (l Language) Label() string {
	switch l {
	case Python:
		return "Python"
	case TypeScript:
		return "TypeScript/JavaScript"
	case Flutter:
		return "Flutter/Dart"
	case CSharp:
		return "C#"
	case Terraform:
		return "Terraform"
	}
	return string(l)
}

var rootMarkers = map[Language][]string{
	Python:     {"pyproject.toml", "setup.py", "requirements.txt"},
	TypeScript: {"package.json", "tsconfig.json"},
	Flutter:    {"pubspec.yaml"},
}

var treeExtensions = map[string]Language{
	".csproj": CSharp,
	".sln":    CSharp,
	".tf":     Terraform,
}

// DetectLanguages inspects root for marker files and, for C# and Terraform,
// matching files anywhere below it. The result is sorted.
func DetectLanguages(root string) ([]Language, error) {
	found := make(map[Language]bool)
	for lang, markers := range rootMarkers {
		for _, m := range markers {
			if _, err := os.Stat(filepath.Join(root, m)); err == nil {
				found[lang] = true
				break
			}
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (d.Name() == ".git" || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if lang, ok := treeExtensions[strings.ToLower(filepath.Ext(d.Name()))]; ok {
			found[lang] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	langs := make([]Language, 0, len(found))
	for l := range found {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs, nil
}

func has(langs []Language, l Language) bool {
	for _, x := range langs {
		if x == l {
			return true
		}
	}
	return false
}
