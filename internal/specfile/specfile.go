// Package specfile reads the project spec document (spec.yaml).
//
// The spec is authored by other subsystems; this engine only consumes its
// version and meta fields. Unknown keys are preserved in Extra so callers
// can pass the document through without data loss.
package specfile

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation"
	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
)

// Meta holds the identifying fields every spec must carry.
type Meta struct {
	ProjectName string `yaml:"project_name"`
	ProjectType string `yaml:"project_type"`
}

// Spec is the typed view of spec.yaml.
type Spec struct {
	Version int            `yaml:"version"`
	Meta    Meta           `yaml:"meta"`
	Extra   map[string]any `yaml:",inline"`
}

// Load reads and decodes a spec document. Absence, emptiness and syntax
// errors map onto the engine's error taxonomy so callers can branch on
// category.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingFileError(path).Build()
		}
		return nil, errors.FileSystemError("failed to read spec file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.EmptyFileError(path).Build()
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.ParseError("spec file is not valid YAML").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	return &spec, nil
}

// Validate checks the schema constraints: version is an integer >= 1 and
// both meta fields are set.
func (s *Spec) Validate() foundation.ValidationResult {
	var errs []foundation.FieldError

	if s.Version < 1 {
		errs = append(errs, foundation.NewValidationError("version", "min", "version must be an integer >= 1"))
	}
	if s.Meta.ProjectName == "" {
		errs = append(errs, foundation.NewValidationError("meta.project_name", "required", "meta.project_name is required"))
	}
	if s.Meta.ProjectType == "" {
		errs = append(errs, foundation.NewValidationError("meta.project_type", "required", "meta.project_type is required"))
	}

	if len(errs) > 0 {
		return foundation.Invalid(errs...)
	}
	return foundation.Valid()
}
