package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FunctionKind distinguishes free functions from methods
type FunctionKind string

const (
	KindFunction FunctionKind = "function"
	KindMethod   FunctionKind = "method"
)

// ClassType is the only type tag emitted for class entries
const ClassType = "class"

// ParentRelation names the JSON key that carries a class parent
type ParentRelation string

const (
	RelationExtends  ParentRelation = "extends"
	RelationInherits ParentRelation = "inherits"
)

// Function is a function or method declaration found by a scanner
type Function struct {
	Name string       `json:"name" yaml:"name"`
	Type FunctionKind `json:"type" yaml:"type"`
	Line int          `json:"line" yaml:"line"`
}

// Class is a class declaration found by a scanner.
// Parent is nil when the declaration names no parent; Relation decides whether it is
// serialized as "extends" (JS/TS, Java) or "inherits" (Python).
type Class struct {
	Name     string
	Parent   *string
	Relation ParentRelation
	Line     int
}

type classJSON struct {
	Name     string  `json:"name"`
	Extends  *string `json:"extends,omitempty"`
	Inherits *string `json:"inherits,omitempty"`
	Type     string  `json:"type"`
	Line     int     `json:"line"`
}

// MarshalJSON writes the parent under its relation key, as null when absent
func (c Class) MarshalJSON() ([]byte, error) {
	relation := c.Relation
	if relation == "" {
		relation = RelationExtends
	}

	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	name, err := json.Marshal(c.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(name)

	buf.WriteString(`,"` + string(relation) + `":`)
	if c.Parent == nil {
		buf.WriteString("null")
	} else {
		parent, err := json.Marshal(*c.Parent)
		if err != nil {
			return nil, err
		}
		buf.Write(parent)
	}

	fmt.Fprintf(&buf, `,"type":%q,"line":%d}`, ClassType, c.Line)
	return buf.Bytes(), nil
}

// UnmarshalJSON restores both the parent and the key it was stored under
func (c *Class) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var cj classJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}

	c.Name = cj.Name
	c.Line = cj.Line
	c.Relation = RelationExtends
	c.Parent = cj.Extends
	if _, ok := raw[string(RelationInherits)]; ok {
		c.Relation = RelationInherits
		c.Parent = cj.Inherits
	}
	return nil
}

// MarshalYAML mirrors the JSON shape for CLI output
func (c Class) MarshalYAML() (interface{}, error) {
	relation := c.Relation
	if relation == "" {
		relation = RelationExtends
	}
	return map[string]interface{}{
		"name":           c.Name,
		string(relation): c.Parent,
		"type":           ClassType,
		"line":           c.Line,
	}, nil
}

// ParentName returns the parent or the empty string
func (c Class) ParentName() string {
	if c.Parent == nil {
		return ""
	}
	return *c.Parent
}

// ExtractedContext is the structured summary of one source file.
// Dependencies, Variables and Comments are reserved and always empty.
type ExtractedContext struct {
	Language     Language   `json:"language" yaml:"language"`
	Functions    []Function `json:"functions" yaml:"functions"`
	Imports      []string   `json:"imports" yaml:"imports"`
	Exports      []string   `json:"exports" yaml:"exports"`
	Classes      []Class    `json:"classes" yaml:"classes"`
	Dependencies []string   `json:"dependencies" yaml:"dependencies"`
	Variables    []string   `json:"variables" yaml:"variables"`
	Comments     []string   `json:"comments" yaml:"comments"`
}

// NewExtractedContext returns an empty context for the given language
func NewExtractedContext(lang Language) ExtractedContext {
	ec := ExtractedContext{Language: lang}
	ec.Normalize()
	return ec
}

// Normalize replaces nil slices with empty ones and defaults the language
func (ec *ExtractedContext) Normalize() {
	if ec.Language == "" {
		ec.Language = LangUnknown
	}
	if ec.Functions == nil {
		ec.Functions = []Function{}
	}
	if ec.Imports == nil {
		ec.Imports = []string{}
	}
	if ec.Exports == nil {
		ec.Exports = []string{}
	}
	if ec.Classes == nil {
		ec.Classes = []Class{}
	}
	if ec.Dependencies == nil {
		ec.Dependencies = []string{}
	}
	if ec.Variables == nil {
		ec.Variables = []string{}
	}
	if ec.Comments == nil {
		ec.Comments = []string{}
	}
}

// Clone returns a deep copy
func (ec ExtractedContext) Clone() ExtractedContext {
	out := ExtractedContext{
		Language:     ec.Language,
		Functions:    append([]Function{}, ec.Functions...),
		Imports:      append([]string{}, ec.Imports...),
		Exports:      append([]string{}, ec.Exports...),
		Classes:      make([]Class, len(ec.Classes)),
		Dependencies: append([]string{}, ec.Dependencies...),
		Variables:    append([]string{}, ec.Variables...),
		Comments:     append([]string{}, ec.Comments...),
	}
	for i, c := range ec.Classes {
		if c.Parent != nil {
			parent := *c.Parent
			c.Parent = &parent
		}
		out.Classes[i] = c
	}
	return out
}

// IsEmpty reports whether no scanner produced anything
func (ec ExtractedContext) IsEmpty() bool {
	return len(ec.Functions) == 0 && len(ec.Imports) == 0 &&
		len(ec.Exports) == 0 && len(ec.Classes) == 0
}

// Validate checks the per-entry invariants
func (ec ExtractedContext) Validate() error {
	if !ec.Language.Valid() {
		return fmt.Errorf("unknown language tag %q", ec.Language)
	}
	for _, fn := range ec.Functions {
		if fn.Type != KindFunction && fn.Type != KindMethod {
			return fmt.Errorf("%w: %q", ErrInvalidKind, fn.Type)
		}
		if fn.Line < 1 {
			return fmt.Errorf("function %s: line numbers must be positive", fn.Name)
		}
	}
	for _, c := range ec.Classes {
		if c.Line < 1 {
			return fmt.Errorf("class %s: line numbers must be positive", c.Name)
		}
	}
	return nil
}
