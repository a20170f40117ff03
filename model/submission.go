package model

import (
	"encoding/json"
	"time"
)

type SubmissionStatus string

const (
	InProgress SubmissionStatus = "IN_PROGRESS"
	Completed  SubmissionStatus = "COMPLETED"
)

type Submission struct {
	ID          string           `json:"id"`
	TemplateID  int              `json:"templateId"`
	Status      SubmissionStatus `json:"status"`
	CurrentStep int              `json:"currentStep"`
	Answers     Answers          `json:"answers"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// Answers is keyed by field name. Values are string, float64, bool or
// []string; an absent key means the field was never answered.
type Answers map[string]any

func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = make(Answers, len(raw))
	for k, v := range raw {
		if v = NormalizeValue(v); v != nil {
			(*a)[k] = v
		}
	}
	return nil
}

// Clone returns a deep copy.
func (a Answers) Clone() Answers {
	c := make(Answers, len(a))
	for k, v := range a {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		c[k] = v
	}
	return c
}

// NormalizeValue coerces a decoded value into one of the answer shapes.
// It returns nil for null and for values that have no answer shape.
func NormalizeValue(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string, bool, float64:
		return v
	case []string:
		return append([]string{}, v...)
	case []any:
		list := make([]string, 0, len(v))
		for _, e := range v {
			switch e := e.(type) {
			case string:
				list = append(list, e)
			case nil:
			default:
				b, _ := json.Marshal(e)
				list = append(list, string(b))
			}
		}
		return list
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return f
	}
	return nil
}
