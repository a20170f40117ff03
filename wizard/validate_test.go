package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbolis/quick-wizard/model"
)

func ptr[T any](v T) *T {
	return &v
}

func options(values ...string) []model.Option {
	opts := make([]model.Option, len(values))
	for i, v := range values {
		opts[i] = model.Option{Label: v, Value: v}
	}
	return opts
}

func TestValidateRequired(t *testing.T) {
	fields := []model.Field{{Name: "name", Type: model.Text, IsRequired: true}}

	for _, answers := range []model.Answers{{}, {"name": ""}, {"name": []string{}}} {
		errs := ValidateStep(fields, answers)
		assert.Equal(t, ValidationErrors{"name": MsgRequired}, errs)
	}

	assert.Empty(t, ValidateStep(fields, model.Answers{"name": "Ada"}))
}

func TestValidateOptionalEmptySkipsTypeRules(t *testing.T) {
	fields := []model.Field{
		{Name: "email", Type: model.Email},
		{Name: "n", Type: model.Number, Validation: &model.Validation{Min: ptr(1.0)}},
		{Name: "pick", Type: model.Select, Options: options("a")},
	}
	assert.Empty(t, ValidateStep(fields, model.Answers{"email": "", "pick": []string{}}))
}

func TestValidateEmail(t *testing.T) {
	fields := []model.Field{{Name: "email", Type: model.Email, IsRequired: true}}

	errs := ValidateStep(fields, model.Answers{"email": "not-an-email"})
	assert.Equal(t, MsgInvalidEmail, errs["email"])

	assert.Empty(t, ValidateStep(fields, model.Answers{"email": "ada@example.com"}))
}

func TestValidateNumericBounds(t *testing.T) {
	bounds := &model.Validation{Min: ptr(1.0), Max: ptr(10.0)}
	tests := []struct {
		typ   model.FieldType
		value any
		want  string
	}{
		{model.Number, 0.0, "must be at least 1"},
		{model.Number, 5.0, ""},
		{model.Number, "5", ""},
		{model.Number, 11.0, "must be at most 10"},
		{model.Number, "five", MsgNotANumber},
		{model.Rating, 1.0, ""},
		{model.Scale, 10.0, ""},
		{model.Scale, 10.5, "must be at most 10"},
	}

	for _, tt := range tests {
		fields := []model.Field{{Name: "n", Type: tt.typ, Validation: bounds}}
		errs := ValidateStep(fields, model.Answers{"n": tt.value})
		assert.Equal(t, tt.want, errs["n"], "%s %#v", tt.typ, tt.value)
	}
}

func TestValidateLengthBounds(t *testing.T) {
	fields := []model.Field{{
		Name:       "bio",
		Type:       model.TextArea,
		Validation: &model.Validation{MinLength: ptr(2), MaxLength: ptr(4)},
	}}

	assert.Equal(t, "must be at least 2 characters", ValidateStep(fields, model.Answers{"bio": "a"})["bio"])
	assert.Equal(t, "must be at most 4 characters", ValidateStep(fields, model.Answers{"bio": "abcde"})["bio"])
	assert.Empty(t, ValidateStep(fields, model.Answers{"bio": "èèèè"}))
}

func TestValidatePattern(t *testing.T) {
	fields := []model.Field{{
		Name:       "code",
		Type:       model.Text,
		Validation: &model.Validation{Pattern: ptr(`[A-Z]{3}`)},
	}}
	assert.Equal(t, MsgPattern, ValidateStep(fields, model.Answers{"code": "ABCD"})["code"])
	assert.Empty(t, ValidateStep(fields, model.Answers{"code": "ABC"}))

	broken := []model.Field{{Name: "code", Type: model.Text, Validation: &model.Validation{Pattern: ptr(`(`)}}}
	assert.Empty(t, ValidateStep(broken, model.Answers{"code": "anything"}))
}

func TestValidateOptions(t *testing.T) {
	fields := []model.Field{
		{Name: "color", Type: model.Select, Options: options("red", "blue")},
		{Name: "size", Type: model.Radio, Options: options("s", "m")},
		{Name: "interests", Type: model.MultiSelect, Options: options("a", "b", "c")},
	}

	errs := ValidateStep(fields, model.Answers{
		"color":     "green",
		"size":      "m",
		"interests": []string{"a", "z"},
	})
	assert.Equal(t, ValidationErrors{"color": MsgInvalidOption, "interests": MsgInvalidOption}, errs)

	assert.Empty(t, ValidateStep(fields, model.Answers{
		"color":     "red",
		"size":      "s",
		"interests": []string{"a", "b"},
	}))
	assert.Empty(t, ValidateStep(fields, model.Answers{"interests": "c"}))
}

func TestValidateNoFormatTypes(t *testing.T) {
	fields := []model.Field{
		{Name: "phone", Type: model.Phone, Validation: &model.Validation{MaxLength: ptr(1)}},
		{Name: "agree", Type: model.Checkbox},
		{Name: "when", Type: model.Date},
		{Name: "cv", Type: model.File},
	}
	assert.Empty(t, ValidateStep(fields, model.Answers{
		"phone": "+39 000 000", "agree": true, "when": "yesterday", "cv": "upload-1",
	}))
}

func TestRequiredButHiddenFieldDoesNotBlock(t *testing.T) {
	step := model.Step{Fields: []model.Field{
		{Name: "kind", Type: model.Text},
		{Name: "company", Type: model.Text, IsRequired: true, Condition: cond("kind", model.OpEq, "business")},
	}}
	answers := model.Answers{"kind": "personal"}

	assert.Empty(t, ValidateStep(VisibleFields(step, answers), answers))
}

func TestFirstInvalidStep(t *testing.T) {
	tmpl := budgetTemplate(false)

	assert.Equal(t, 0, FirstInvalidStep(tmpl, model.Answers{}, 2))
	answers := model.Answers{"email": "ada@example.com", "has_budget": "yes"}
	assert.Equal(t, 1, FirstInvalidStep(tmpl, answers, 2))
	answers["budget"] = 10.0
	assert.Equal(t, 2, FirstInvalidStep(tmpl, answers, 2))
	assert.Equal(t, 2, FirstInvalidStep(tmpl, answers, 9), "clamped to the visible steps")
	assert.Equal(t, 0, FirstInvalidStep(&model.Template{}, answers, 3))
}
