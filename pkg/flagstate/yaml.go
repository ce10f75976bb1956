package flagstate

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlDeclarations mirrors the on-disk declaration format:
//
//	flags:
//	  beta: false
//	  new-ui: true
type yamlDeclarations struct {
	Flags map[string]bool `yaml:"flags"`
}

// RegistryFromYAML builds a registry from YAML flag declarations, optionally
// extended with additional definitions. Only fixed-default flags can be
// declared in YAML; rule-backed flags are code and are passed via extra.
// A definition in extra may not redeclare a YAML flag.
func RegistryFromYAML(r io.Reader, extra ...Definition) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrInvalidDefinition, err)
	}

	var decls yamlDeclarations
	if err := yaml.Unmarshal(data, &decls); err != nil {
		return nil, errors.Join(ErrInvalidDefinition, err)
	}

	defs := make([]Definition, 0, len(decls.Flags)+len(extra))
	for name, def := range decls.Flags {
		defs = append(defs, Bool(name, def))
	}
	defs = append(defs, extra...)

	return NewRegistry(defs...)
}
