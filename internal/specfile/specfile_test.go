package specfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
)

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidSpec_DecodesFields(t *testing.T) {
	path := writeSpec(t, `version: 1
meta:
  project_name: quarterly-report
  project_type: report
sections:
  - intro
  - findings
`)

	spec, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, spec.Version)
	assert.Equal(t, "quarterly-report", spec.Meta.ProjectName)
	assert.Equal(t, "report", spec.Meta.ProjectType)
	assert.Contains(t, spec.Extra, "sections")
}

func TestLoad_MissingFile_ReturnsMissingFileCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")

	spec, err := Load(path)
	require.Error(t, err)
	assert.Nil(t, spec)
	assert.True(t, errors.HasCategory(err, errors.CategoryMissingFile))

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	ctxPath, _ := classified.Context().GetString("path")
	assert.Equal(t, path, ctxPath)
}

func TestLoad_EmptyFile_ReturnsEmptyFileCategory(t *testing.T) {
	path := writeSpec(t, "   \n\t\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryEmptyFile))
}

func TestLoad_MalformedYAML_ReturnsParseCategory(t *testing.T) {
	path := writeSpec(t, "version: [unclosed\nmeta:\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryParse))
}

func TestValidate_CompleteSpec_IsValid(t *testing.T) {
	spec := &Spec{Version: 2, Meta: Meta{ProjectName: "p", ProjectType: "report"}}

	result := spec.Validate()
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_MissingFields_ReportsEachField(t *testing.T) {
	spec := &Spec{Version: 0}

	result := spec.Validate()
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 3)

	fields := make([]string, 0, len(result.Errors))
	for _, fe := range result.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "version")
	assert.Contains(t, fields, "meta.project_name")
	assert.Contains(t, fields, "meta.project_type")
}

func TestValidate_VersionZero_IsInvalid(t *testing.T) {
	spec := &Spec{Version: 0, Meta: Meta{ProjectName: "p", ProjectType: "t"}}

	result := spec.Validate()
	assert.False(t, result.Valid)
}
