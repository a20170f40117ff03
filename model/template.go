package model

import "sort"

type TemplateStatus string

const (
	Draft     TemplateStatus = "DRAFT"
	Published TemplateStatus = "PUBLISHED"
	Archived  TemplateStatus = "ARCHIVED"
)

func (s TemplateStatus) Valid() bool {
	switch s {
	case Draft, Published, Archived:
		return true
	}
	return false
}

type FieldType string

const (
	Text        FieldType = "TEXT"
	TextArea    FieldType = "TEXTAREA"
	Email       FieldType = "EMAIL"
	Phone       FieldType = "PHONE"
	Number      FieldType = "NUMBER"
	Select      FieldType = "SELECT"
	MultiSelect FieldType = "MULTISELECT"
	Radio       FieldType = "RADIO"
	Checkbox    FieldType = "CHECKBOX"
	Date        FieldType = "DATE"
	File        FieldType = "FILE"
	Rating      FieldType = "RATING"
	Scale       FieldType = "SCALE"
)

type Operator string

const (
	OpEq          Operator = "eq"
	OpNeq         Operator = "neq"
	OpGt          Operator = "gt"
	OpLt          Operator = "lt"
	OpGte         Operator = "gte"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpEmpty       Operator = "empty"
	OpNotEmpty    Operator = "notEmpty"
)

func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte, OpContains, OpNotContains, OpEmpty, OpNotEmpty:
		return true
	}
	return false
}

// Template is the authored definition of a wizard. It is treated as
// immutable once loaded: the runtime only reads it.
type Template struct {
	ID                int            `json:"id,omitempty" yaml:"id,omitempty"`
	Version           int            `json:"version,omitempty" yaml:"version,omitempty"`
	Name              string         `json:"name" yaml:"name"`
	Status            TemplateStatus `json:"status,omitempty" yaml:"status,omitempty"`
	AllowSaveProgress bool           `json:"allowSaveProgress" yaml:"allowSaveProgress"`
	ShowProgressBar   bool           `json:"showProgressBar" yaml:"showProgressBar"`
	CompletionMessage *string        `json:"completionMessage,omitempty" yaml:"completionMessage,omitempty"`
	Steps             []Step         `json:"steps" yaml:"steps"`
}

type Step struct {
	ID          int        `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string     `json:"title" yaml:"title"`
	Description *string    `json:"description,omitempty" yaml:"description,omitempty"`
	SortOrder   int        `json:"sortOrder" yaml:"sortOrder"`
	Condition   *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Fields      []Field    `json:"fields" yaml:"fields"`
}

type Field struct {
	ID              int         `json:"id,omitempty" yaml:"id,omitempty"`
	Label           string      `json:"label" yaml:"label"`
	Name            string      `json:"name" yaml:"name"`
	Type            FieldType   `json:"type" yaml:"type"`
	Placeholder     string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText        string      `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	IsRequired      bool        `json:"isRequired" yaml:"isRequired"`
	SortOrder       int         `json:"sortOrder" yaml:"sortOrder"`
	Options         []Option    `json:"options,omitempty" yaml:"options,omitempty"`
	Validation      *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
	DefaultValue    *string     `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Condition       *Condition  `json:"condition,omitempty" yaml:"condition,omitempty"`
	ExternalMapping *string     `json:"externalMapping,omitempty" yaml:"externalMapping,omitempty"`
}

type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Validation bounds. Which ones apply depends on the field type.
type Validation struct {
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   *string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Condition is a single clause: FieldID is the Name of the field whose
// answer is compared, not its database id.
type Condition struct {
	FieldID  string   `json:"fieldId" yaml:"fieldId"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value" yaml:"value"`
}

// Sort orders steps, and fields within each step, by SortOrder.
func (t *Template) Sort() {
	sort.SliceStable(t.Steps, func(i, j int) bool {
		return t.Steps[i].SortOrder < t.Steps[j].SortOrder
	})
	for i := range t.Steps {
		fields := t.Steps[i].Fields
		sort.SliceStable(fields, func(i, j int) bool {
			return fields[i].SortOrder < fields[j].SortOrder
		})
	}
}

// Field looks a field up by name across all steps.
func (t *Template) Field(name string) (Field, bool) {
	for _, s := range t.Steps {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return Field{}, false
}
