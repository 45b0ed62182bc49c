// Package toolexec provides a tool registry with JSON-schema parameter
// validation. Tools are registered with declarative parameter metadata and
// invoked by name with a loosely typed parameter map.
package toolexec

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Handler     ToolHandler     `json:"-"`
}

// ToolHandler is the function signature for tool execution
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Success bool        `json:"success"`
	Output  interface{} `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Executor manages and executes tools
type Executor struct {
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
}

// New creates a new Executor
func New() *Executor {
	return &Executor{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// RegisterTool registers a tool definition
func (e *Executor) RegisterTool(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}

	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("failed to compile schema for tool %s: %w", def.Name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tools[def.Name]; exists {
		return fmt.Errorf("tool %s is already registered", def.Name)
	}

	e.tools[def.Name] = &def
	e.schemas[def.Name] = schema

	log.Debug().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// ListTools returns the registered tool definitions
func (e *Executor) ListTools() []ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(e.tools))
	for _, def := range e.tools {
		defs = append(defs, *def)
	}
	return defs
}

// Execute validates parameters and runs the named tool
func (e *Executor) Execute(ctx context.Context, name string, params map[string]interface{}) ToolResult {
	e.mu.RLock()
	def, ok := e.tools[name]
	schema := e.schemas[name]
	e.mu.RUnlock()

	if !ok {
		return ToolResult{Success: false, Error: fmt.Sprintf("unknown tool: %s", name)}
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	applyDefaults(def, params)

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return ToolResult{Success: false, Error: fmt.Sprintf("parameter validation failed: %v", err)}
	}
	if !result.Valid() {
		return ToolResult{Success: false, Error: fmt.Sprintf("invalid parameters: %v", result.Errors())}
	}

	output, err := def.Handler(ctx, params)
	if err != nil {
		return ToolResult{Success: false, Error: err.Error()}
	}

	return ToolResult{Success: true, Output: output}
}

func applyDefaults(def *ToolDefinition, params map[string]interface{}) {
	for _, p := range def.Parameters {
		if p.Default == nil {
			continue
		}
		if _, present := params[p.Name]; !present {
			params[p.Name] = p.Default
		}
	}
}

func compileSchema(def ToolDefinition) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(def.Parameters))
	var required []string

	for _, p := range def.Parameters {
		paramType := p.Type
		if paramType == "" {
			paramType = "string"
		}
		properties[p.Name] = map[string]interface{}{
			"type":        paramType,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	doc := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
}
