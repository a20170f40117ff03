package templates

import (
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-wizard/model"
)

func TestLoadYAML(t *testing.T) {
	tmpl, err := LoadFile("testdata/lead.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Lead intake", tmpl.Name)
	assert.Equal(t, model.Published, tmpl.Status)
	assert.True(t, tmpl.AllowSaveProgress)
	require.Len(t, tmpl.Steps, 2)
	assert.Equal(t, "About you", tmpl.Steps[0].Title, "steps are sorted by sortOrder")
	assert.Equal(t, "has_budget", tmpl.Steps[1].Condition.FieldID)
	assert.Equal(t, 1.0, *tmpl.Steps[1].Fields[0].Validation.Min)
	assert.Equal(t, "deal.amount", *tmpl.Steps[1].Fields[0].ExternalMapping)
	assert.NoError(t, Lint(tmpl))
}

func TestLoadDir(t *testing.T) {
	loaded, err := LoadDir("testdata")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Contact", loaded[0].Name)
	assert.Equal(t, model.Draft, loaded[0].Status)
	assert.Equal(t, "Lead intake", loaded[1].Name)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	doc := `{"name": "x", "steps": [{"title": "a", "sortOrder": 0, "fields": [
		{"label": "A", "name": "has space", "type": "COLOR", "sortOrder": 0}
	]}]}`

	_, err := Load(strings.NewReader(doc), JSON)
	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Len(t, docErr.Problems, 2)
}

func TestLint(t *testing.T) {
	tmpl := &model.Template{Steps: []model.Step{
		{Title: "one", SortOrder: 0,
			Condition: &model.Condition{FieldID: "later", Operator: model.OpEq, Value: "x"},
			Fields: []model.Field{
				{Name: "pick", Type: model.Select, SortOrder: 0},
				{Name: "pick", Type: model.Text, SortOrder: 0},
				{Name: "same_step", Type: model.Text, SortOrder: 1,
					Condition: &model.Condition{FieldID: "pick", Operator: model.OpEq}},
			}},
		{Title: "two", SortOrder: 0, Fields: []model.Field{
			{Name: "later", Type: "SIGNATURE", SortOrder: 0,
				Condition: &model.Condition{FieldID: "ghost", Operator: "like"}},
			{Name: "bad name", Type: model.Text, SortOrder: 1},
		}},
	}}

	err := Lint(tmpl)
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)

	msgs := make([]string, len(merr.Errors))
	for i, e := range merr.Errors {
		msgs[i] = e.Error()
	}
	assert.ElementsMatch(t, []string{
		`field "pick": SELECT needs options`,
		`field "pick": duplicate sortOrder 0 in step "one"`,
		`field "pick": name is not unique`,
		`step "two": duplicate sortOrder 0`,
		`field "later": unknown type "SIGNATURE"`,
		`field "bad name": name contains whitespace`,
		`step "one": condition references field "later" which is not in an earlier step`,
		`field "same_step": condition references field "pick" which is not in an earlier step`,
		`field "later": unknown operator "like"`,
		`field "later": condition references unknown field "ghost"`,
	}, msgs)
}

func TestLintEmptyTemplate(t *testing.T) {
	assert.ErrorContains(t, Lint(&model.Template{}), "template has no steps")
}
