package wizard

import "github.com/mbolis/quick-wizard/model"

// VisibleSteps returns the steps whose condition holds, in template order.
func VisibleSteps(t *model.Template, answers model.Answers) []model.Step {
	steps := make([]model.Step, 0, len(t.Steps))
	for _, s := range t.Steps {
		if Evaluate(s.Condition, answers) {
			steps = append(steps, s)
		}
	}
	return steps
}

// VisibleFields returns the fields of step whose condition holds, in step
// order.
func VisibleFields(step model.Step, answers model.Answers) []model.Field {
	fields := make([]model.Field, 0, len(step.Fields))
	for _, f := range step.Fields {
		if Evaluate(f.Condition, answers) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Orphaned lists, in template order, the answered fields that are not
// currently visible, either because the field or its step is hidden.
// Their answers are kept; consumers decide what to do with them.
func Orphaned(t *model.Template, answers model.Answers) []string {
	var orphaned []string
	for _, s := range t.Steps {
		stepVisible := Evaluate(s.Condition, answers)
		for _, f := range s.Fields {
			if _, answered := answers[f.Name]; !answered {
				continue
			}
			if !stepVisible || !Evaluate(f.Condition, answers) {
				orphaned = append(orphaned, f.Name)
			}
		}
	}
	return orphaned
}

// FirstInvalidStep validates the visible steps before upTo and returns the
// index of the first one that does not pass. It returns upTo, clamped to
// the visible steps, when all of them pass.
func FirstInvalidStep(t *model.Template, answers model.Answers, upTo int) int {
	steps := VisibleSteps(t, answers)
	if upTo > len(steps)-1 {
		upTo = len(steps) - 1
	}
	for i := 0; i < upTo; i++ {
		if len(ValidateStep(VisibleFields(steps[i], answers), answers)) > 0 {
			return i
		}
	}
	if upTo < 0 {
		return 0
	}
	return upTo
}
