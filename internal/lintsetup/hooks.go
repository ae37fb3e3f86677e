package lintsetup

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the pre-commit configuration written at the project root.
const ConfigFile = ".pre-commit-config.yaml"

// Hook is one pre-commit hook.
type Hook struct {
	ID                     string   `yaml:"id"`
	Name                   string   `yaml:"name,omitempty"`
	Entry                  string   `yaml:"entry,omitempty"`
	Language               string   `yaml:"language,omitempty"`
	Args                   []string `yaml:"args,omitempty"`
	Files                  string   `yaml:"files,omitempty"`
	Types                  []string `yaml:"types,omitempty"`
	AdditionalDependencies []string `yaml:"additional_dependencies,omitempty"`
	PassFilenames          *bool    `yaml:"pass_filenames,omitempty"`
}

// HookRepo is a hook source. Local repos have no rev.
type HookRepo struct {
	Repo  string `yaml:"repo"`
	Rev   string `yaml:"rev,omitempty"`
	Hooks []Hook `yaml:"hooks"`
}

// PreCommitConfig is the top-level .pre-commit-config.yaml document.
type PreCommitConfig struct {
	Repos []HookRepo `yaml:"repos"`
}

func boolPtr(b bool) *bool { return &b }

var baseHooks = HookRepo{
	Repo: "https://github.com/pre-commit/pre-commit-hooks",
	Rev:  "v4.5.0",
	Hooks: []Hook{
		{ID: "trailing-whitespace"},
		{ID: "end-of-file-fixer"},
		{ID: "check-yaml"},
		{ID: "check-added-large-files"},
	},
}

func languageHooks(l Language) []HookRepo {
	switch l {
	case Python:
		return []HookRepo{
			{Repo: "https://github.com/psf/black", Rev: "24.1.1",
				Hooks: []Hook{{ID: "black", Args: []string{"--line-length=100"}}}},
			{Repo: "https://github.com/astral-sh/ruff-pre-commit", Rev: "v0.1.14",
				Hooks: []Hook{{ID: "ruff", Args: []string{"--fix"}}}},
			{Repo: "https://github.com/pre-commit/mirrors-mypy", Rev: "v1.8.0",
				Hooks: []Hook{{ID: "mypy", AdditionalDependencies: []string{"types-requests"}}}},
		}
	case TypeScript:
		return []HookRepo{
			{Repo: "https://github.com/pre-commit/mirrors-eslint", Rev: "v8.56.0",
				Hooks: []Hook{{ID: "eslint", Files: `\.(js|jsx|ts|tsx)$`, Args: []string{"--fix"}}}},
			{Repo: "https://github.com/pre-commit/mirrors-prettier", Rev: "v3.1.0",
				Hooks: []Hook{{ID: "prettier"}}},
		}
	case Flutter:
		return []HookRepo{
			{Repo: "local", Hooks: []Hook{{
				ID: "dart-format", Name: "dart format", Entry: "dart",
				Args: []string{"format", "--line-length=100"}, Language: "system", Types: []string{"dart"},
			}}},
			{Repo: "local", Hooks: []Hook{{
				ID: "dart-analyze", Name: "dart analyze", Entry: "dart",
				Args: []string{"analyze", "--fatal-infos"}, Language: "system", PassFilenames: boolPtr(false),
			}}},
		}
	case Terraform:
		return []HookRepo{
			{Repo: "https://github.com/antonbabenko/pre-commit-terraform", Rev: "v1.86.0",
				Hooks: []Hook{{ID: "terraform_fmt"}, {ID: "terraform_validate"}}},
		}
	}
	return nil
}

// BuildConfig assembles hooks for the detected languages, base hooks first.
func BuildConfig(langs []Language) PreCommitConfig {
	cfg := PreCommitConfig{Repos: []HookRepo{baseHooks}}
	for _, l := range []Language{Python, TypeScript, Flutter, Terraform} {
		if has(langs, l) {
			cfg.Repos = append(cfg.Repos, languageHooks(l)...)
		}
	}
	return cfg
}

// RenderConfig renders the YAML document with a provenance header.
func RenderConfig(langs []Language) ([]byte, error) {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = string(l)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# Generated by git-workflow skill setup")
	fmt.Fprintf(&buf, "# Languages detected: %s\n\n", strings.Join(names, ", "))

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(BuildConfig(langs)); err != nil {
		return nil, fmt.Errorf("failed to render pre-commit config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PyProjectTemplate configures ruff and mypy for Python projects.
const PyProjectTemplate = `[tool.ruff]
line-length = 100
target-version = "py311"

[tool.ruff.lint]
select = [
    "E",   # pycodestyle errors
    "W",   # pycodestyle warnings
    "F",   # pyflakes
    "I",   # isort
    "N",   # pep8-naming
    "UP",  # pyupgrade
    "B",   # flake8-bugbear
]
ignore = [
    "E501",  # Line too long (handled by formatter)
]

[tool.ruff.lint.per-file-ignores]
"scripts/poc/**/*.py" = ["ALL"]
"tests/**/*.py" = ["S101"]

[tool.mypy]
python_version = "3.11"
warn_return_any = true
warn_unused_configs = true
disallow_untyped_defs = false
`
