package wizard

import "github.com/mbolis/quick-wizard/model"

type Format int

const (
	FormatNone Format = iota
	FormatEmail
)

// FieldTraits says which validation rules apply to a field type.
type FieldTraits struct {
	NeedsOptions  bool
	MultiValue    bool
	NumericBounds bool
	LengthBounds  bool
	Format        Format
}

var registry = map[model.FieldType]FieldTraits{
	model.Text:        {LengthBounds: true},
	model.TextArea:    {LengthBounds: true},
	model.Email:       {Format: FormatEmail},
	model.Phone:       {},
	model.Number:      {NumericBounds: true},
	model.Select:      {NeedsOptions: true},
	model.MultiSelect: {NeedsOptions: true, MultiValue: true},
	model.Radio:       {NeedsOptions: true},
	model.Checkbox:    {},
	model.Date:        {},
	model.File:        {},
	model.Rating:      {NumericBounds: true},
	model.Scale:       {NumericBounds: true},
}

// Traits returns the traits registered for t, and the zero traits for an
// unknown tag.
func Traits(t model.FieldType) FieldTraits {
	return registry[t]
}

func KnownType(t model.FieldType) bool {
	_, ok := registry[t]
	return ok
}
