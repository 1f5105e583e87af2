// Package config resolves the tool's settings from defaults, an
// optional project file, and workflow inputs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LocalConfigName is the optional per-project config file, looked up in
// the repository root.
const LocalConfigName = ".sizewatch.yaml"

// EnvPrefix is prepended to input names for environment lookup, the way
// workflow runners expose action inputs.
const EnvPrefix = "INPUT_"

// Config is the fully resolved configuration.
type Config struct {
	BuildCommand        string
	Directory           string
	Gzip                bool
	Brotli              bool
	BudgetMaxIncreaseKB *float64
	WarnAboveKB         *float64
	FailAboveKB         *float64
	MaxArtifactPages    int
	Branches            []string
	CleanBeforeBuild    bool
	FailOnCommentError  bool
	CacheDir            string
	BuildTimeout        time.Duration
	Shell               bool

	// App credentials, an alternative to the workflow token for
	// repositories that install the tool as a GitHub App.
	AppID             int64
	AppInstallationID int64
	AppPrivateKey     string
}

// UseAppAuth reports whether App credentials are fully configured.
func (c Config) UseAppAuth() bool {
	return c.AppID != 0 && c.AppInstallationID != 0 && c.AppPrivateKey != ""
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Gzip:             true,
		MaxArtifactPages: 10,
		Shell:            true,
	}
}

// Resolver merges configuration sources. Priority, highest to lowest:
// workflow inputs > project file > defaults.
type Resolver struct {
	env      map[string]string
	fileData []byte
	filePath string

	// Warnings collects non-fatal issues found during resolution.
	Warnings []string
}

// NewResolver creates a resolver reading the process environment and
// the project file under root (if present).
func NewResolver(root string) *Resolver {
	r := &Resolver{env: environMap()}
	path := filepath.Join(root, LocalConfigName)
	if data, err := os.ReadFile(path); err == nil {
		r.fileData = data
		r.filePath = path
	}
	return r
}

// NewResolverWith creates a resolver from explicit sources. Tests use
// this to avoid touching the process environment.
func NewResolverWith(env map[string]string, fileData []byte) *Resolver {
	return &Resolver{env: env, fileData: fileData, filePath: LocalConfigName}
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// fileConfig mirrors the project file schema. Keys match the workflow
// input names.
type fileConfig struct {
	BuildCommand        *string  `yaml:"build-command"`
	Directory           *string  `yaml:"directory"`
	Gzip                *bool    `yaml:"gzip"`
	Brotli              *bool    `yaml:"brotli"`
	BudgetMaxIncreaseKB *string  `yaml:"budget-max-increase-kb"`
	WarnAboveKB         *string  `yaml:"warn-above-kb"`
	FailAboveKB         *string  `yaml:"fail-above-kb"`
	MaxArtifactPages    *string  `yaml:"max-artifact-pages"`
	Branches            []string `yaml:"branches"`
	CleanBeforeBuild    *bool    `yaml:"clean-before-build"`
	FailOnCommentError  *bool    `yaml:"fail-on-comment-error"`
	CacheDir            *string  `yaml:"cache-dir"`
	BuildTimeout        *string  `yaml:"build-timeout"`
	Shell               *bool    `yaml:"shell"`
}

func (r *Resolver) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Resolve builds the final configuration. Malformed numeric values are
// hard errors; negative thresholds are warned about and ignored.
func (r *Resolver) Resolve() (Config, error) {
	cfg := Defaults()

	if err := r.applyFile(&cfg); err != nil {
		return Config{}, err
	}
	if err := r.applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (r *Resolver) applyFile(cfg *Config) error {
	if len(r.fileData) == 0 {
		return nil
	}
	var fc fileConfig
	if err := yaml.Unmarshal(r.fileData, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", r.filePath, err)
	}

	setString(&cfg.BuildCommand, fc.BuildCommand)
	setString(&cfg.Directory, fc.Directory)
	setBool(&cfg.Gzip, fc.Gzip)
	setBool(&cfg.Brotli, fc.Brotli)
	setBool(&cfg.CleanBeforeBuild, fc.CleanBeforeBuild)
	setBool(&cfg.FailOnCommentError, fc.FailOnCommentError)
	setString(&cfg.CacheDir, fc.CacheDir)
	setBool(&cfg.Shell, fc.Shell)
	if len(fc.Branches) > 0 {
		cfg.Branches = fc.Branches
	}

	return r.applyNumbers(cfg,
		"budget-max-increase-kb", deref(fc.BudgetMaxIncreaseKB),
		"warn-above-kb", deref(fc.WarnAboveKB),
		"fail-above-kb", deref(fc.FailAboveKB),
		"max-artifact-pages", deref(fc.MaxArtifactPages),
		"build-timeout", deref(fc.BuildTimeout))
}

func (r *Resolver) applyEnv(cfg *Config) error {
	if v, ok := r.input("build-command"); ok {
		cfg.BuildCommand = v
	}
	if v, ok := r.input("directory"); ok {
		cfg.Directory = v
	}
	if v, ok := r.input("cache-dir"); ok {
		cfg.CacheDir = v
	}
	if v, ok := r.input("app-private-key"); ok {
		cfg.AppPrivateKey = v
	}
	if v, ok := r.input("branches"); ok {
		cfg.Branches = splitList(v)
	}
	for _, b := range []struct {
		key  string
		dest *bool
	}{
		{"gzip", &cfg.Gzip},
		{"brotli", &cfg.Brotli},
		{"clean-before-build", &cfg.CleanBeforeBuild},
		{"fail-on-comment-error", &cfg.FailOnCommentError},
		{"shell", &cfg.Shell},
	} {
		v, ok := r.input(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("input %s: invalid boolean %q", b.key, v)
		}
		*b.dest = parsed
	}

	return r.applyNumbers(cfg,
		"budget-max-increase-kb", r.inputOrEmpty("budget-max-increase-kb"),
		"warn-above-kb", r.inputOrEmpty("warn-above-kb"),
		"fail-above-kb", r.inputOrEmpty("fail-above-kb"),
		"max-artifact-pages", r.inputOrEmpty("max-artifact-pages"),
		"build-timeout", r.inputOrEmpty("build-timeout"),
		"app-id", r.inputOrEmpty("app-id"),
		"app-installation-id", r.inputOrEmpty("app-installation-id"))
}

// applyNumbers parses the numeric settings from key/value pairs.
// Empty values leave the current setting untouched.
func (r *Resolver) applyNumbers(cfg *Config, pairs ...string) error {
	for i := 0; i < len(pairs); i += 2 {
		key, raw := pairs[i], strings.TrimSpace(pairs[i+1])
		if raw == "" {
			continue
		}
		switch key {
		case "budget-max-increase-kb", "warn-above-kb", "fail-above-kb":
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("input %s: invalid number %q", key, raw)
			}
			if f < 0 {
				r.warn("input %s: negative value %q ignored", key, raw)
				continue
			}
			v := f
			switch key {
			case "budget-max-increase-kb":
				cfg.BudgetMaxIncreaseKB = &v
			case "warn-above-kb":
				cfg.WarnAboveKB = &v
			case "fail-above-kb":
				cfg.FailAboveKB = &v
			}
		case "max-artifact-pages":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("input %s: invalid integer %q", key, raw)
			}
			if n <= 0 {
				r.warn("input %s: non-positive value %q ignored", key, raw)
				continue
			}
			cfg.MaxArtifactPages = n
		case "app-id", "app-installation-id":
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("input %s: invalid integer %q", key, raw)
			}
			if key == "app-id" {
				cfg.AppID = n
			} else {
				cfg.AppInstallationID = n
			}
		case "build-timeout":
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("input %s: invalid duration %q", key, raw)
			}
			if d < 0 {
				r.warn("input %s: negative value %q ignored", key, raw)
				continue
			}
			cfg.BuildTimeout = d
		}
	}
	return nil
}

// input looks up a workflow input. Runners export input "foo-bar" as
// INPUT_FOO-BAR with spaces replaced by underscores.
func (r *Resolver) input(key string) (string, bool) {
	name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, " ", "_"))
	v, ok := r.env[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *Resolver) inputOrEmpty(key string) string {
	v, _ := r.input(key)
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
