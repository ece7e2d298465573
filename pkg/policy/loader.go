package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// policyExtensions are the file types the loader reads. A .rego file is a
// bare module; .json and .yaml files hold a definition with the module in
// their rego field.
var policyExtensions = mapset.NewSet(".rego", ".json", ".yaml", ".yml")

const reloadDebounce = 500 * time.Millisecond

// Loader reads policies from files and directories. Files are cached until
// their size or modification time changes.
type Loader struct {
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]cachedPolicy
}

type cachedPolicy struct {
	modTime time.Time
	size    int64
	policy  Policy
}

// definition is the on-disk form of a JSON or YAML policy and of a bundle
// entry. Enabled is a pointer so that a missing key means enabled.
type definition struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Rego        string   `json:"rego" yaml:"rego"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Enabled     *bool    `json:"enabled" yaml:"enabled"`
	Tags        []string `json:"tags" yaml:"tags"`
}

// NewLoader creates a policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
		cache:  make(map[string]cachedPolicy),
	}
}

// LoadFromPaths loads every policy under paths. A path that does not exist
// or a file that cannot be parsed is an error; inside a directory, broken
// files are logged and skipped.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var policies []Policy
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load policies from %s: %w", path, err)
		}
		if !info.IsDir() {
			p, err := l.loadFile(path, info)
			if err != nil {
				return nil, err
			}
			policies = append(policies, *p)
			continue
		}

		found, err := l.loadDirectory(path)
		if err != nil {
			return nil, err
		}
		policies = append(policies, found...)
	}

	l.logger.Info().
		Int("total", len(policies)).
		Int("sources", len(paths)).
		Msg("Policies loaded from paths")

	return policies, nil
}

func (l *Loader) loadDirectory(root string) ([]Policy, error) {
	var policies []Policy
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isPolicyFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		p, err := l.loadFile(path, info)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Skipping policy file")
			return nil
		}
		policies = append(policies, *p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return policies, nil
}

func isPolicyFile(path string) bool {
	return policyExtensions.Contains(strings.ToLower(filepath.Ext(path)))
}

// loadFile returns the policy in path, from the cache when the file is
// unchanged since it was last read.
func (l *Loader) loadFile(path string, info fs.FileInfo) (*Policy, error) {
	l.mu.Lock()
	cached, ok := l.cache[path]
	l.mu.Unlock()
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		p := cached.policy
		return &p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	p, err := decodePolicy(path, data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[path] = cachedPolicy{modTime: info.ModTime(), size: info.Size(), policy: *p}
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", path).
		Str("policy", p.Name).
		Str("severity", string(p.Severity)).
		Msg("Policy loaded from file")

	return p, nil
}

// decodePolicy parses data according to the extension of path. The policy
// name defaults to the file name without its extension.
func decodePolicy(path string, data []byte) (*Policy, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var def definition
	switch ext {
	case ".rego":
		def = parseRegoHeader(string(data))
	case ".json":
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse policy %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse policy %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported policy file type: %s", path)
	}

	if def.Name == "" {
		def.Name = name
	}
	p, err := def.toPolicy()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Source = path
	return p, nil
}

func (d definition) toPolicy() (*Policy, error) {
	if strings.TrimSpace(d.Rego) == "" {
		return nil, fmt.Errorf("policy %s has no rego code", d.Name)
	}

	severity := d.Severity
	switch severity {
	case "":
		severity = SeverityWarning
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
	default:
		return nil, fmt.Errorf("policy %s has unknown severity %q", d.Name, severity)
	}

	return &Policy{
		Name:        d.Name,
		Description: d.Description,
		Rego:        d.Rego,
		Severity:    severity,
		Enabled:     d.Enabled == nil || *d.Enabled,
		Tags:        d.Tags,
	}, nil
}

// parseRegoHeader builds a definition from a bare module. Comment lines
// before the first rule make up the description, except "severity:",
// "tags:" and "enabled:" lines, which set those fields.
//
//	package froyo.custom
//
//	# Functions must declare a description.
//	# severity: error
//	# tags: docs, naming
func parseRegoHeader(module string) definition {
	def := definition{Rego: module}

	// Imports ahead of the first comment are skipped. Once the comment block
	// has started, an import ends it.
	var description []string
	started := false
	for _, line := range strings.Split(module, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "package "):
			continue
		case strings.HasPrefix(trimmed, "import ") && !started:
			continue
		case !strings.HasPrefix(trimmed, "#"):
			def.Description = strings.Join(description, " ")
			return def
		}
		started = true

		comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		key, value, found := strings.Cut(comment, ":")
		value = strings.TrimSpace(value)
		key = strings.ToLower(strings.TrimSpace(key))
		switch {
		case found && key == "severity":
			def.Severity = Severity(strings.ToLower(value))
		case found && key == "tags":
			for _, tag := range strings.Split(value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					def.Tags = append(def.Tags, tag)
				}
			}
		case found && key == "enabled":
			if enabled, err := strconv.ParseBool(value); err == nil {
				def.Enabled = &enabled
			}
		case comment != "":
			description = append(description, comment)
		}
	}

	def.Description = strings.Join(description, " ")
	return def
}

// LoadBundle reads a bundle manifest in JSON or YAML form.
func (l *Loader) LoadBundle(_ context.Context, path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var raw struct {
		Name        string       `json:"name" yaml:"name"`
		Version     string       `json:"version" yaml:"version"`
		Description string       `json:"description" yaml:"description"`
		Policies    []definition `json:"policies" yaml:"policies"`
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse bundle %s: %w", path, err)
	}

	bundle := &Bundle{Name: raw.Name, Version: raw.Version, Description: raw.Description}
	for i, def := range raw.Policies {
		if def.Name == "" {
			def.Name = fmt.Sprintf("%s-%d", raw.Name, i)
		}
		p, err := def.toPolicy()
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", raw.Name, err)
		}
		p.Source = path
		bundle.Policies = append(bundle.Policies, *p)
	}

	l.logger.Info().
		Str("bundle", bundle.Name).
		Str("version", bundle.Version).
		Int("policies", len(bundle.Policies)).
		Msg("Policy bundle loaded")

	return bundle, nil
}

// Watch reloads every policy under paths after a policy file is written,
// created, removed or renamed, and passes the full set to reload. It returns
// once the watch is set up; events are handled until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, paths []string, reload func([]Policy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, path := range paths {
		if err := addWatch(watcher, path); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch policy path")
		}
	}

	go l.watchLoop(ctx, watcher, paths, reload)

	l.logger.Info().Int("paths", len(paths)).Msg("Watching policy paths")
	return nil
}

// addWatch watches a file, or a directory and all of its subdirectories.
func addWatch(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, paths []string, reload func([]Policy) error) {
	defer func() { _ = watcher.Close() }()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatch(watcher, event.Name); err != nil {
						l.logger.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
					}
					continue
				}
			}
			if !isPolicyFile(event.Name) ||
				event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Policy file changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := l.reload(ctx, paths, reload); err != nil {
					l.logger.Error().Err(err).Msg("Failed to reload policies")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (l *Loader) reload(ctx context.Context, paths []string, reload func([]Policy) error) error {
	l.logger.Info().Msg("Reloading policies")

	policies, err := l.LoadFromPaths(ctx, paths)
	if err != nil {
		return err
	}
	if err := reload(policies); err != nil {
		return fmt.Errorf("failed to apply reloaded policies: %w", err)
	}

	l.logger.Info().Int("count", len(policies)).Msg("Policies reloaded")
	return nil
}
