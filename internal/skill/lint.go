package skill

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Severity of a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule identifiers.
const (
	RuleFrontMatter         = "frontmatter"
	RuleNameRequired        = "name-required"
	RuleDescriptionRequired = "description-required"
	RuleNameFormat          = "name-format"
	RuleNameDirMismatch     = "name-dir-mismatch"
	RuleDescriptionLength   = "description-length"
	RuleModelUnknown        = "model-unknown"
	RuleBrokenLink          = "broken-link"
	RuleDuplicateName       = "duplicate-name"
)

// Finding is a single lint result.
type Finding struct {
	Skill    string   `json:"skill"`
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	loc := f.Path
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.Path, f.Line)
	}
	return fmt.Sprintf("%s: %s [%s] %s", loc, f.Severity, f.Rule, f.Message)
}

// Options tune the lint rules.
type Options struct {
	// AllowedModels restricts the model key. Empty allows any value.
	AllowedModels []string
	// MaxDescription is the description length warning threshold in runes.
	// Zero disables the check.
	MaxDescription int
	// Root, when set, makes finding paths relative to it.
	Root string
}

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Lint validates a discovered skill set.
func Lint(set *Set, opts Options) []Finding {
	var findings []Finding
	add := func(f Finding) {
		f.Path = opts.rel(f.Path)
		findings = append(findings, f)
	}

	for _, fail := range set.Failures {
		add(Finding{
			Skill:    filepath.Base(fail.Dir),
			Path:     fail.Path,
			Line:     1,
			Severity: SeverityError,
			Rule:     RuleFrontMatter,
			Message:  unwrapPathPrefix(fail.Err, fail.Path),
		})
		for _, f := range lintLinks(filepath.Base(fail.Dir), fail.Dir) {
			add(f)
		}
	}

	byName := make(map[string][]*Skill)
	for _, s := range set.Skills {
		for _, f := range lintSkill(s, opts) {
			add(f)
		}
		for _, f := range lintLinks(s.Name, s.Dir) {
			add(f)
		}
		byName[s.Name] = append(byName[s.Name], s)
	}

	for name, skills := range byName {
		if len(skills) < 2 {
			continue
		}
		dirs := make([]string, len(skills))
		for i, s := range skills {
			dirs[i] = s.DirName()
		}
		for _, s := range skills {
			add(Finding{
				Skill:    name,
				Path:     s.Path,
				Line:     2,
				Severity: SeverityError,
				Rule:     RuleDuplicateName,
				Message:  fmt.Sprintf("name %q is declared by %s", name, strings.Join(dirs, ", ")),
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Rule < findings[j].Rule
	})
	return findings
}

func lintSkill(s *Skill, opts Options) []Finding {
	var out []Finding
	mk := func(sev Severity, rule, msg string) Finding {
		return Finding{Skill: s.Name, Path: s.Path, Line: 1, Severity: sev, Rule: rule, Message: msg}
	}

	// Parse falls back to the directory name; rules check what the file declares.
	declared := declaredName(s)
	switch {
	case declared == "":
		out = append(out, mk(SeverityError, RuleNameRequired, "front-matter must declare a name"))
	case !namePattern.MatchString(declared):
		out = append(out, mk(SeverityError, RuleNameFormat,
			fmt.Sprintf("name %q must be lowercase letters, digits and single hyphens", declared)))
	case s.Dir != "" && declared != s.DirName():
		out = append(out, mk(SeverityWarning, RuleNameDirMismatch,
			fmt.Sprintf("name %q does not match directory %q", declared, s.DirName())))
	}

	if s.Description == "" {
		out = append(out, mk(SeverityError, RuleDescriptionRequired, "front-matter must declare a description"))
	} else if opts.MaxDescription > 0 {
		if n := utf8.RuneCountInString(s.Description); n > opts.MaxDescription {
			out = append(out, mk(SeverityWarning, RuleDescriptionLength,
				fmt.Sprintf("description is %d characters, limit is %d", n, opts.MaxDescription)))
		}
	}

	if s.Model != "" && len(opts.AllowedModels) > 0 && !contains(opts.AllowedModels, s.Model) {
		out = append(out, mk(SeverityWarning, RuleModelUnknown,
			fmt.Sprintf("model %q is not one of %s", s.Model, strings.Join(opts.AllowedModels, ", "))))
	}
	return out
}

// declaredName is the name written in the front-matter, before the
// directory-name fallback applied by Parse.
func declaredName(s *Skill) string {
	if s.Path == "" {
		return s.Name
	}
	return s.declared
}

// lintLinks checks relative links in every Markdown file of a skill dir.
func lintLinks(skillName, dir string) []Finding {
	if dir == "" {
		return nil
	}
	var out []Finding
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for _, link := range ExtractLinks(data) {
			target, ok := LocalTarget(link.Target)
			if !ok {
				continue
			}
			resolved := filepath.Join(filepath.Dir(path), filepath.FromSlash(target))
			if _, err := os.Stat(resolved); err == nil {
				continue
			}
			kind := "link"
			if link.Image {
				kind = "image"
			}
			out = append(out, Finding{
				Skill:    skillName,
				Path:     path,
				Line:     link.Line,
				Severity: SeverityError,
				Rule:     RuleBrokenLink,
				Message:  fmt.Sprintf("%s target %q does not exist", kind, link.Target),
			})
		}
		return nil
	})
	return out
}

// Summary counts findings by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Summarize counts errors and warnings.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d error(s), %d warning(s)", s.Errors, s.Warnings)
}

func (o Options) rel(path string) string {
	if o.Root == "" {
		return path
	}
	if r, err := filepath.Rel(o.Root, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return path
}

func unwrapPathPrefix(err error, path string) string {
	return strings.TrimPrefix(err.Error(), path+": ")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
