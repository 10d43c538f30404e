// Package schemafile loads model declarations from a YAML file and builds
// a schema registry from them. The file format covers everything the
// declaration API covers except object invariants, which are code-only.
//
//	models:
//	  - name: person
//	    attrs:
//	      - name: name
//	        kind: text
//	        required: true
//	        maxlength: 100
//	      - name: posts
//	        kind: many
//	        target: post
//	        via: author
package schemafile

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/marlkit/marl/pkg/schema"
)

// Document is the top-level structure of a schema file.
type Document struct {
	Models []Model `yaml:"models"`
}

// Model declares one model. Extends names an earlier model in the same
// file whose attributes this model inherits.
type Model struct {
	Name       string `yaml:"name"`
	Collection string `yaml:"collection,omitempty"`
	Extends    string `yaml:"extends,omitempty"`
	Attrs      []Attr `yaml:"attrs"`
}

// Attr declares one attribute. Which keys apply depends on the kind:
// scalar kinds take the constraint keys, reference kinds take target
// plus via (many) or inverse (many_to_many).
type Attr struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Required  bool     `yaml:"required,omitempty"`
	MaxLength *int     `yaml:"maxlength,omitempty"`
	MinLength *int     `yaml:"minlength,omitempty"`
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"`
	Target    string   `yaml:"target,omitempty"`
	Via       string   `yaml:"via,omitempty"`
	Inverse   string   `yaml:"inverse,omitempty"`
	Cascade   bool     `yaml:"cascade,omitempty"`
}

// Load reads a schema file from disk and builds a checked registry.
func Load(path string) (*schema.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Parse builds a registry from schema file contents. The registry is
// fully checked: every reference target must resolve.
func Parse(data []byte) (*schema.Registry, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid schema file: %w", err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("schema file declares no models")
	}

	reg := schema.NewRegistry()
	built := make(map[string]*schema.Schema, len(doc.Models))
	for _, m := range doc.Models {
		s, err := buildModel(m, built)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
		built[m.Name] = s
	}
	if err := reg.Check(); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildModel(m Model, built map[string]*schema.Schema) (*schema.Schema, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("model with no name")
	}

	opts := make([]schema.Option, 0, len(m.Attrs)+1)
	if m.Collection != "" {
		opts = append(opts, schema.WithCollection(m.Collection))
	}
	for _, a := range m.Attrs {
		field, err := buildField(a)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		opts = append(opts, schema.WithAttr(a.Name, field))
	}

	if m.Extends != "" {
		base, ok := built[m.Extends]
		if !ok {
			return nil, fmt.Errorf("model %s extends %s, which is not declared before it", m.Name, m.Extends)
		}
		return schema.Extend(base, m.Name, opts...)
	}
	return schema.New(m.Name, opts...)
}

func buildField(a Attr) (schema.Field, error) {
	if a.Name == "" {
		return schema.Field{}, fmt.Errorf("attribute with no name")
	}

	var fieldOpts []schema.FieldOption
	if a.Required {
		fieldOpts = append(fieldOpts, schema.Required())
	}
	if a.MaxLength != nil {
		fieldOpts = append(fieldOpts, schema.MaxLength(*a.MaxLength))
	}
	if a.MinLength != nil {
		fieldOpts = append(fieldOpts, schema.MinLength(*a.MinLength))
	}
	if a.Min != nil {
		fieldOpts = append(fieldOpts, schema.Min(*a.Min))
	}
	if a.Max != nil {
		fieldOpts = append(fieldOpts, schema.Max(*a.Max))
	}
	if a.Pattern != "" {
		// schema.Pattern panics on a bad expression; check it here so a
		// typo in a user-written file surfaces as an error.
		if _, err := regexp.Compile(a.Pattern); err != nil {
			return schema.Field{}, fmt.Errorf("attribute %s: invalid pattern: %w", a.Name, err)
		}
		fieldOpts = append(fieldOpts, schema.Pattern(a.Pattern))
	}
	if a.Cascade {
		fieldOpts = append(fieldOpts, schema.Cascade())
	}

	switch a.Kind {
	case "text":
		return schema.Text(fieldOpts...), nil
	case "email":
		return schema.Email(fieldOpts...), nil
	case "numeric":
		return schema.Number(fieldOpts...), nil
	case "bool":
		return schema.Bool(fieldOpts...), nil
	case "datetime":
		return schema.DateTime(fieldOpts...), nil
	case "one":
		if a.Target == "" {
			return schema.Field{}, fmt.Errorf("attribute %s: one requires target", a.Name)
		}
		return schema.One(a.Target, fieldOpts...), nil
	case "many":
		if a.Target == "" || a.Via == "" {
			return schema.Field{}, fmt.Errorf("attribute %s: many requires target and via", a.Name)
		}
		return schema.Many(a.Target, a.Via, fieldOpts...), nil
	case "many_to_many":
		if a.Target == "" || a.Inverse == "" {
			return schema.Field{}, fmt.Errorf("attribute %s: many_to_many requires target and inverse", a.Name)
		}
		return schema.ManyToMany(a.Target, a.Inverse, fieldOpts...), nil
	default:
		return schema.Field{}, fmt.Errorf("attribute %s: unknown kind %q", a.Name, a.Kind)
	}
}
