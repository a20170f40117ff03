package templates

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/wizard"
)

// Lint reports every integrity problem of t at once. A nil result means the
// template can be published and run.
func Lint(t *model.Template) error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if len(t.Steps) == 0 {
		fail("template has no steps")
	}

	stepOrders := map[int]bool{}
	// step index at which each field name is declared
	declaredIn := map[string]int{}
	for i, s := range t.Steps {
		if stepOrders[s.SortOrder] {
			fail("step %q: duplicate sortOrder %d", s.Title, s.SortOrder)
		}
		stepOrders[s.SortOrder] = true

		fieldOrders := map[int]bool{}
		for _, f := range s.Fields {
			if fieldOrders[f.SortOrder] {
				fail("field %q: duplicate sortOrder %d in step %q", f.Name, f.SortOrder, s.Title)
			}
			fieldOrders[f.SortOrder] = true

			switch {
			case f.Name == "":
				fail("step %q: field %q has no name", s.Title, f.Label)
			case strings.IndexFunc(f.Name, unicode.IsSpace) >= 0:
				fail("field %q: name contains whitespace", f.Name)
			}
			if _, dup := declaredIn[f.Name]; dup && f.Name != "" {
				fail("field %q: name is not unique", f.Name)
			} else {
				declaredIn[f.Name] = i
			}

			if !wizard.KnownType(f.Type) {
				fail("field %q: unknown type %q", f.Name, f.Type)
			} else if wizard.Traits(f.Type).NeedsOptions && len(f.Options) == 0 {
				fail("field %q: %s needs options", f.Name, f.Type)
			}
		}
	}

	for i, s := range t.Steps {
		lintCondition(s.Condition, i, declaredIn, fmt.Sprintf("step %q", s.Title), fail)
		for _, f := range s.Fields {
			lintCondition(f.Condition, i, declaredIn, fmt.Sprintf("field %q", f.Name), fail)
		}
	}

	return result.ErrorOrNil()
}

// lintCondition checks that c only looks at fields of steps before the one
// at stepIndex, so the referenced answer always exists by the time c is
// evaluated for display.
func lintCondition(c *model.Condition, stepIndex int, declaredIn map[string]int, owner string, fail func(string, ...any)) {
	if c == nil {
		return
	}
	if !c.Operator.Valid() {
		fail("%s: unknown operator %q", owner, c.Operator)
	}
	at, ok := declaredIn[c.FieldID]
	switch {
	case !ok:
		fail("%s: condition references unknown field %q", owner, c.FieldID)
	case at >= stepIndex:
		fail("%s: condition references field %q which is not in an earlier step", owner, c.FieldID)
	}
}
