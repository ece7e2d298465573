package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"gopkg.in/yaml.v3"
)

// Loader reads project files in YAML, JSON or CUE form.
type Loader struct {
	ctx     *cue.Context
	schemas *SchemaRegistry
	env     Environment
}

// NewLoader creates a loader. env supplies region and project id when the
// file leaves them out.
func NewLoader(env Environment) *Loader {
	return &Loader{
		ctx:     cuecontext.New(),
		schemas: NewSchemaRegistry(),
		env:     env,
	}
}

// Load reads and normalizes the project file at path.
func (l *Loader) Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	p, err := l.Parse(path, data)
	if err != nil {
		return nil, err
	}
	p.Source = path
	return p, nil
}

// Parse decodes data according to the extension of name and normalizes it.
func (l *Loader) Parse(name string, data []byte) (*Project, error) {
	doc, err := l.Decode(name, data)
	if err != nil {
		return nil, err
	}

	if err := l.schemas.ValidateAgainstSchema("project", map[string]any(doc)); err != nil {
		cfgErr := engine.NewConfigurationError("file", fmt.Sprintf("%s does not match the project schema", name))
		cfgErr.Err = err
		return nil, cfgErr
	}

	return NormalizeProject(doc, l.env)
}

// Decode turns raw file content into a Bag.
func (l *Loader) Decode(name string, data []byte) (Bag, error) {
	var raw any
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, parseError(name, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, parseError(name, err)
		}
	case ".cue":
		val := l.ctx.CompileBytes(data, cue.Filename(name))
		if err := val.Err(); err != nil {
			return nil, parseError(name, fmt.Errorf("%s", cueErrorMessage(err)))
		}
		if err := val.Decode(&raw); err != nil {
			return nil, parseError(name, fmt.Errorf("%s", cueErrorMessage(err)))
		}
	default:
		return nil, engine.NewConfigurationError("file",
			fmt.Sprintf("unsupported config format %q: use .yaml, .yml, .json or .cue", ext))
	}

	if raw == nil {
		return Bag{}, nil
	}
	doc, ok := asBag(normalizeValue(raw))
	if !ok {
		return nil, engine.NewConfigurationError("file", fmt.Sprintf("%s: top level must be a mapping", name))
	}
	return doc, nil
}

func parseError(name string, err error) error {
	cfgErr := engine.NewConfigurationError("file", fmt.Sprintf("failed to parse %s", name))
	cfgErr.Err = err
	return cfgErr
}

// cueErrorMessage flattens a CUE error list into "file:line:col: message" lines.
func cueErrorMessage(err error) string {
	var lines []string
	for _, e := range cueerrors.Errors(err) {
		msg := cueerrors.Details(e, nil)
		if pos := cueerrors.Positions(e); len(pos) > 0 && pos[0].Filename() != "" {
			msg = fmt.Sprintf("%s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), strings.TrimSpace(msg))
		}
		lines = append(lines, strings.TrimSpace(msg))
	}
	if len(lines) == 0 {
		return err.Error()
	}
	return strings.Join(lines, "; ")
}
