package config

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry holds the CUE schemas the decoded project document is
// checked against before normalization.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a registry with the built-in project schema.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
	if err := sr.RegisterSchema("project", "#Project", builtinProjectSchema); err != nil {
		panic(err)
	}
	return sr
}

// RegisterSchema compiles schema and registers the definition at path under name.
func (sr *SchemaRegistry) RegisterSchema(name, path, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	def := val.LookupPath(cue.ParsePath(path))
	if !def.Exists() {
		return fmt.Errorf("schema %s has no definition %s", name, path)
	}

	sr.schemas[name] = def
	return nil
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(schemaName string, data any) error {
	sr.mu.RLock()
	schema, ok := sr.schemas[schemaName]
	sr.mu.RUnlock()
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s", cueErrorMessage(err))
	}
	return nil
}

// The schema only pins the shape of the document. Value rules live in the
// validate tags of the typed structs. Keys are accepted in both conventions.
const builtinProjectSchema = `
#Project: {
	region?:     string
	projectId?:  string
	project_id?: string
	function?:   #Function
	triggers?: [...#Trigger]
	...
}

#Function: {
	name?:          string
	functionName?:  string
	function_name?: string
	runtime?:       string
	handler?:       string
	package?:       string
	memorySize?:    number
	memory_size?:   number
	timeout?:       number
	codeType?:      string
	code_type?:     string
	code?: {
		codeUri?:  string
		code_uri?: string
		...
	}
	funcVpc?:  {...}
	func_vpc?: {...}
	environment?: {[string]: string | number | bool}
	...
}

#Trigger: {
	triggerTypeCode?:   string
	trigger_type_code?: string
	status?:            string
	eventData?:         {...}
	event_data?:        {...}
	...
}
`
