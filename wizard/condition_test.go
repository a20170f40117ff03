package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbolis/quick-wizard/model"
)

func cond(field string, op model.Operator, value string) *model.Condition {
	return &model.Condition{FieldID: field, Operator: op, Value: value}
}

func TestEvaluateNilCondition(t *testing.T) {
	for _, answers := range []model.Answers{nil, {}, {"a": "x"}} {
		assert.True(t, Evaluate(nil, answers))
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		cond    *model.Condition
		answers model.Answers
		want    bool
	}{
		{"eq string", cond("has_budget", model.OpEq, "yes"), model.Answers{"has_budget": "yes"}, true},
		{"eq mismatch", cond("has_budget", model.OpEq, "yes"), model.Answers{"has_budget": "no"}, false},
		{"eq missing", cond("has_budget", model.OpEq, ""), model.Answers{}, true},
		{"eq number", cond("n", model.OpEq, "5"), model.Answers{"n": 5.0}, true},
		{"eq fraction", cond("n", model.OpEq, "2.5"), model.Answers{"n": 2.5}, true},
		{"eq bool", cond("ok", model.OpEq, "true"), model.Answers{"ok": true}, true},
		{"eq joined list", cond("l", model.OpEq, "a,b"), model.Answers{"l": []string{"a", "b"}}, true},
		{"eq single element list", cond("l", model.OpEq, "b"), model.Answers{"l": []string{"a", "b"}}, false},
		{"neq", cond("x", model.OpNeq, "a"), model.Answers{"x": "b"}, true},
		{"neq missing", cond("x", model.OpNeq, "a"), model.Answers{}, true},
		{"gt", cond("n", model.OpGt, "3"), model.Answers{"n": 4.0}, true},
		{"gt equal", cond("n", model.OpGt, "4"), model.Answers{"n": 4.0}, false},
		{"gt numeric string", cond("n", model.OpGt, "10"), model.Answers{"n": "12"}, true},
		{"lt", cond("n", model.OpLt, "3"), model.Answers{"n": "2"}, true},
		{"gte", cond("n", model.OpGte, "4"), model.Answers{"n": 4.0}, true},
		{"lte", cond("n", model.OpLte, "4"), model.Answers{"n": 5.0}, false},
		{"gt not numeric answer", cond("n", model.OpGt, "1"), model.Answers{"n": "abc"}, false},
		{"lt not numeric operand", cond("n", model.OpLt, "abc"), model.Answers{"n": 1.0}, false},
		{"lt missing answer", cond("n", model.OpLt, "5"), model.Answers{}, false},
		{"gte bool", cond("n", model.OpGte, "0"), model.Answers{"n": true}, false},
		{"contains substring", cond("s", model.OpContains, "ell"), model.Answers{"s": "hello"}, true},
		{"contains list member", cond("interests", model.OpContains, "b"), model.Answers{"interests": []string{"a", "b"}}, true},
		{"contains list non member", cond("interests", model.OpContains, "b"), model.Answers{"interests": []string{"a"}}, false},
		{"contains list no partial match", cond("l", model.OpContains, "b"), model.Answers{"l": []string{"abc"}}, false},
		{"contains missing", cond("s", model.OpContains, "x"), model.Answers{}, false},
		{"notContains", cond("s", model.OpNotContains, "x"), model.Answers{"s": "abc"}, true},
		{"notContains list", cond("l", model.OpNotContains, "a"), model.Answers{"l": []string{"a"}}, false},
		{"empty missing", cond("s", model.OpEmpty, ""), model.Answers{}, true},
		{"empty string", cond("s", model.OpEmpty, ""), model.Answers{"s": ""}, true},
		{"empty list", cond("s", model.OpEmpty, ""), model.Answers{"s": []string{}}, true},
		{"empty false bool", cond("s", model.OpEmpty, ""), model.Answers{"s": false}, false},
		{"notEmpty", cond("s", model.OpNotEmpty, ""), model.Answers{"s": "x"}, true},
		{"unknown operator", cond("s", model.Operator("like"), "x"), model.Answers{"s": "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.cond, tt.answers))
		})
	}
}

func TestEmptyAndNotEmptyAreNegations(t *testing.T) {
	values := []any{nil, "", []string{}, "x", []string{"a"}, 0.0, false, true}
	for _, v := range values {
		answers := model.Answers{}
		if v != nil {
			answers["f"] = v
		}
		empty := Evaluate(cond("f", model.OpEmpty, ""), answers)
		notEmpty := Evaluate(cond("f", model.OpNotEmpty, ""), answers)
		assert.NotEqual(t, empty, notEmpty, "value %#v", v)
	}
}

func TestEvaluateNeverPanics(t *testing.T) {
	ops := []model.Operator{
		model.OpEq, model.OpNeq, model.OpGt, model.OpLt, model.OpGte, model.OpLte,
		model.OpContains, model.OpNotContains, model.OpEmpty, model.OpNotEmpty,
	}
	values := []any{nil, "", "NaN", "1e400", 3.0, true, []string{}, []any{1.0, "x"}}
	for _, op := range ops {
		for _, v := range values {
			answers := model.Answers{"f": v}
			assert.NotPanics(t, func() {
				Evaluate(cond("f", op, "1"), answers)
				Evaluate(cond("missing", op, ""), answers)
			})
		}
	}
}
