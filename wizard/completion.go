package wizard

import (
	"sort"

	"github.com/mbolis/quick-wizard/model"
)

// Completion is what the export collaborator receives once a submission is
// completed. Mappings holds each mapped field's externalMapping string
// verbatim and Fields lists the mapped fields in template order. Orphaned
// lists answered fields that are hidden by the final answers.
type Completion struct {
	TemplateID   int               `json:"templateId"`
	SubmissionID string            `json:"submissionId"`
	Answers      model.Answers     `json:"answers"`
	Mappings     map[string]string `json:"mappings"`
	Fields       []string          `json:"fields"`
	Orphaned     []string          `json:"orphaned,omitempty"`
}

func BuildCompletion(t *model.Template, sub *model.Submission) (Completion, error) {
	if sub.Status != model.Completed {
		return Completion{}, ErrNotCompleted
	}
	c := Completion{
		TemplateID:   t.ID,
		SubmissionID: sub.ID,
		Answers:      sub.Answers.Clone(),
		Mappings:     map[string]string{},
		Orphaned:     Orphaned(t, sub.Answers),
	}
	for _, s := range t.Steps {
		for _, f := range s.Fields {
			if f.ExternalMapping != nil && *f.ExternalMapping != "" {
				c.Mappings[f.Name] = *f.ExternalMapping
				c.Fields = append(c.Fields, f.Name)
			}
		}
	}
	return c, nil
}

func (c Completion) IsOrphaned(name string) bool {
	for _, o := range c.Orphaned {
		if o == name {
			return true
		}
	}
	return false
}

// MappedFields returns the mapped field names in template order. A
// completion built by hand without Fields falls back to name order.
func (c Completion) MappedFields() []string {
	if len(c.Fields) > 0 {
		return c.Fields
	}
	names := make([]string, 0, len(c.Mappings))
	for name := range c.Mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
