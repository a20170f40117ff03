package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-wizard/model"
)

type call struct {
	op      string
	step    int
	answers model.Answers
}

type fakeStore struct {
	calls        []call
	failSave     error
	failComplete error
}

func (s *fakeStore) SaveProgress(_ context.Context, _ string, step int, answers model.Answers) error {
	if s.failSave != nil {
		return s.failSave
	}
	s.calls = append(s.calls, call{"save", step, answers})
	return nil
}

func (s *fakeStore) MarkCompleted(context.Context, string) error {
	if s.failComplete != nil {
		return s.failComplete
	}
	s.calls = append(s.calls, call{op: "complete"})
	return nil
}

func (s *fakeStore) ops() []string {
	ops := make([]string, len(s.calls))
	for i, c := range s.calls {
		ops[i] = c.op
	}
	return ops
}

func budgetTemplate(allowSave bool) *model.Template {
	return &model.Template{
		ID:                1,
		Name:              "lead",
		Status:            model.Published,
		AllowSaveProgress: allowSave,
		Steps: []model.Step{
			{Title: "About", SortOrder: 0, Fields: []model.Field{
				{Name: "email", Type: model.Email, IsRequired: true},
				{Name: "has_budget", Type: model.Radio, IsRequired: true, Options: options("yes", "no")},
			}},
			{Title: "Budget", SortOrder: 1, Condition: cond("has_budget", model.OpEq, "yes"), Fields: []model.Field{
				{Name: "budget", Type: model.Number, IsRequired: true, Validation: &model.Validation{Min: ptr(1.0)}},
			}},
			{Title: "Notes", SortOrder: 2, Fields: []model.Field{
				{Name: "notes", Type: model.TextArea},
			}},
		},
	}
}

func newSubmission() *model.Submission {
	return &model.Submission{ID: "sub-1", TemplateID: 1, Status: model.InProgress, Answers: model.Answers{}}
}

func TestSkipsHiddenStep(t *testing.T) {
	tmpl := &model.Template{Steps: []model.Step{
		{Title: "one", Fields: []model.Field{{Name: "has_budget", Type: model.Text}}},
		{Title: "two", Condition: cond("has_budget", model.OpEq, "yes")},
	}}
	store := &fakeStore{}
	r := NewRuntime(tmpl, newSubmission(), store)

	require.NoError(t, r.SetAnswer("has_budget", "no"))
	assert.Len(t, r.VisibleSteps(), 1)

	errs, err := r.GoNext(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, Completed, r.State())
	assert.Equal(t, []string{"save", "complete"}, store.ops())
}

func TestGoNextBlocksOnValidationErrors(t *testing.T) {
	store := &fakeStore{}
	r := NewRuntime(budgetTemplate(true), newSubmission(), store)

	require.NoError(t, r.SetAnswer("email", "not-an-email"))
	require.NoError(t, r.SetAnswer("has_budget", "yes"))

	errs, err := r.GoNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ValidationErrors{"email": MsgInvalidEmail}, errs)
	assert.Equal(t, 0, r.StepIndex())
	assert.Equal(t, Answering, r.State())
	assert.Empty(t, store.calls)

	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	assert.Empty(t, r.Errors(), "setting an answer clears its error")
}

func TestWalkThroughWithProgressSaves(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	r := NewRuntime(budgetTemplate(true), newSubmission(), store)

	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	require.NoError(t, r.SetAnswer("has_budget", "yes"))
	errs, err := r.GoNext(ctx)
	require.NoError(t, err)
	require.Empty(t, errs)

	step, ok := r.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "Budget", step.Title)
	index, total := r.Progress()
	assert.Equal(t, 1, index)
	assert.Equal(t, 3, total)

	require.NoError(t, r.GoPrev(ctx))
	assert.Equal(t, 0, r.StepIndex())
	require.NoError(t, r.GoPrev(ctx), "retreating from the first step is a no-op")

	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	require.NoError(t, r.SetAnswer("budget", 5000))
	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	_, err = r.GoNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, Completed, r.State())
	assert.Equal(t, model.Completed, r.Submission().Status)
	assert.Equal(t, []string{"save", "save", "save", "save", "save", "complete"}, store.ops())

	steps := []int{}
	for _, c := range store.calls[:5] {
		steps = append(steps, c.step)
	}
	assert.Equal(t, []int{1, 0, 1, 2, 2}, steps)
	assert.Equal(t, 5000.0, store.calls[4].answers["budget"])
}

func TestNoProgressSavesWhenDisabled(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	r := NewRuntime(budgetTemplate(false), newSubmission(), store)

	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	require.NoError(t, r.SetAnswer("has_budget", "no"))
	_, err := r.GoNext(ctx)
	require.NoError(t, err)
	require.NoError(t, r.GoPrev(ctx))
	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	assert.Empty(t, store.calls, "navigation never writes")

	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"save", "complete"}, store.ops(), "only the finalize writes happen")
}

func TestCompletedRejectsMutations(t *testing.T) {
	ctx := context.Background()
	sub := newSubmission()
	sub.Status = model.Completed
	store := &fakeStore{}
	r := NewRuntime(budgetTemplate(true), sub, store)

	assert.ErrorIs(t, r.SetAnswer("email", "x@y.z"), ErrCompleted)
	_, err := r.GoNext(ctx)
	assert.ErrorIs(t, err, ErrCompleted)
	assert.ErrorIs(t, r.GoPrev(ctx), ErrCompleted)
	assert.Empty(t, store.calls)
	assert.Empty(t, r.Answers())
}

func TestMarkCompletedFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{failComplete: errors.New("db down")}
	tmpl := &model.Template{Steps: []model.Step{{Fields: []model.Field{{Name: "a", Type: model.Text}}}}}
	r := NewRuntime(tmpl, newSubmission(), store)
	require.NoError(t, r.SetAnswer("a", "x"))

	_, err := r.GoNext(ctx)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, Answering, r.State())
	assert.Equal(t, model.InProgress, r.Submission().Status)
	assert.Equal(t, "x", r.Answers()["a"])
	assert.Equal(t, []string{"save"}, store.ops(), "the snapshot was written before the failure")

	store.failComplete = nil
	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, Completed, r.State())
}

func TestSaveFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{failSave: errors.New("timeout")}
	r := NewRuntime(budgetTemplate(true), newSubmission(), store)
	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	require.NoError(t, r.SetAnswer("has_budget", "no"))

	_, err := r.GoNext(ctx)
	var re *RetryableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "save_progress", re.Op)
	assert.Equal(t, 1, r.StepIndex())
	assert.Equal(t, "no", r.Answers()["has_budget"])
}

func TestStoreReportsAlreadyCompleted(t *testing.T) {
	store := &fakeStore{failSave: ErrCompleted}
	tmpl := &model.Template{Steps: []model.Step{{}}}
	r := NewRuntime(tmpl, newSubmission(), store)

	_, err := r.GoNext(context.Background())
	assert.ErrorIs(t, err, ErrCompleted)
	assert.Equal(t, Completed, r.State())
	assert.ErrorIs(t, r.SetAnswer("a", "b"), ErrCompleted)
}

func TestMissingSubmissionIsNotRetryable(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{failSave: ErrNotFound}
	r := NewRuntime(budgetTemplate(true), newSubmission(), store)

	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	require.NoError(t, r.SetAnswer("has_budget", "no"))
	_, err := r.GoNext(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsRetryable(err))

	store = &fakeStore{failComplete: ErrNotFound}
	r = NewRuntime(budgetTemplate(false), newSubmission(), store)
	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	require.NoError(t, r.SetAnswer("has_budget", "no"))
	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	_, err = r.GoNext(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, Answering, r.State())
}

func TestResumeMatchesFreshRun(t *testing.T) {
	ctx := context.Background()
	tmpl := budgetTemplate(true)

	fresh := NewRuntime(tmpl, newSubmission(), &fakeStore{})
	require.NoError(t, fresh.SetAnswer("email", "ada@example.com"))
	require.NoError(t, fresh.SetAnswer("has_budget", "yes"))
	_, err := fresh.GoNext(ctx)
	require.NoError(t, err)

	sub := newSubmission()
	sub.CurrentStep = 1
	sub.Answers = model.Answers{"email": "ada@example.com", "has_budget": "yes"}
	resumed := NewRuntime(tmpl, sub, &fakeStore{})

	assert.Equal(t, fresh.StepIndex(), resumed.StepIndex())
	assert.Equal(t, fresh.VisibleSteps(), resumed.VisibleSteps())
	assert.Equal(t, fresh.VisibleFields(), resumed.VisibleFields())
	assert.Equal(t, fresh.Answers(), resumed.Answers())
}

func TestResumeClampsStaleIndex(t *testing.T) {
	sub := newSubmission()
	sub.CurrentStep = 7
	sub.Answers = model.Answers{"has_budget": "no"}
	r := NewRuntime(budgetTemplate(true), sub, &fakeStore{})

	assert.Equal(t, 1, r.StepIndex())
	step, _ := r.CurrentStep()
	assert.Equal(t, "Notes", step.Title)
}

func TestHidingAnsweredStepKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	r := NewRuntime(budgetTemplate(true), newSubmission(), &fakeStore{})
	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	require.NoError(t, r.SetAnswer("has_budget", "yes"))
	_, err := r.GoNext(ctx)
	require.NoError(t, err)
	require.NoError(t, r.SetAnswer("budget", 10))
	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	require.NoError(t, r.GoPrev(ctx))
	require.NoError(t, r.GoPrev(ctx))

	require.NoError(t, r.SetAnswer("has_budget", "no"))
	_, total := r.Progress()
	assert.Equal(t, 2, total)
	assert.Equal(t, 10.0, r.Answers()["budget"])
	assert.Equal(t, []string{"budget"}, Orphaned(budgetTemplate(true), r.Answers()))
}

type countingObserver struct {
	transitions []Transition
	failedTypes []model.FieldType
	persistence []string
}

func (o *countingObserver) Transition(t Transition)             { o.transitions = append(o.transitions, t) }
func (o *countingObserver) ValidationFailed(ft model.FieldType) { o.failedTypes = append(o.failedTypes, ft) }
func (o *countingObserver) PersistenceFailed(op string)         { o.persistence = append(o.persistence, op) }

func TestObserverEvents(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{}
	store := &fakeStore{}
	r := NewRuntime(budgetTemplate(true), newSubmission(), store, WithObserver(obs))

	_, err := r.GoNext(ctx)
	require.NoError(t, err)
	require.NoError(t, r.SetAnswer("email", "ada@example.com"))
	require.NoError(t, r.SetAnswer("has_budget", "no"))
	_, err = r.GoNext(ctx)
	require.NoError(t, err)
	store.failComplete = errors.New("boom")
	_, err = r.GoNext(ctx)
	require.Error(t, err)

	assert.Equal(t, []Transition{TransitionBlocked, TransitionNext}, obs.transitions)
	assert.ElementsMatch(t, []model.FieldType{model.Email, model.Radio}, obs.failedTypes)
	assert.Equal(t, []string{"mark_completed"}, obs.persistence)
}
