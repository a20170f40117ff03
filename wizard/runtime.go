package wizard

import (
	"context"
	"errors"
	"time"

	"github.com/mbolis/quick-wizard/log"
	"github.com/mbolis/quick-wizard/model"
)

type State int

const (
	Answering State = iota
	Finalizing
	Completed
)

func (s State) String() string {
	switch s {
	case Answering:
		return "answering"
	case Finalizing:
		return "finalizing"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Runtime drives one submission through a template. It works on a private
// copy of the submission it was given and is meant to be used by a single
// goroutine for the length of one request.
type Runtime struct {
	template *model.Template
	sub      model.Submission
	store    ProgressStore
	observer Observer

	state  State
	index  int
	errors ValidationErrors
}

type Option func(*Runtime)

func WithObserver(o Observer) Option {
	return func(r *Runtime) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRuntime restores a runtime from a persisted submission. The step
// pointer is interpreted against the steps visible for the stored answers
// and clamped to the last one if visibility has shrunk since it was saved.
func NewRuntime(t *model.Template, sub *model.Submission, store ProgressStore, opts ...Option) *Runtime {
	r := &Runtime{
		template: t,
		sub:      *sub,
		store:    store,
		observer: nopObserver{},
		errors:   ValidationErrors{},
	}
	r.sub.Answers = sub.Answers.Clone()
	for _, opt := range opts {
		opt(r)
	}

	if r.sub.Status == model.Completed {
		r.state = Completed
	}
	r.index = r.clamp(r.sub.CurrentStep, len(VisibleSteps(t, r.sub.Answers)))
	return r
}

func (r *Runtime) State() State {
	return r.state
}

// StepIndex is the position of the current step among the visible steps.
func (r *Runtime) StepIndex() int {
	return r.clamp(r.index, len(r.VisibleSteps()))
}

func (r *Runtime) VisibleSteps() []model.Step {
	return VisibleSteps(r.template, r.sub.Answers)
}

func (r *Runtime) CurrentStep() (model.Step, bool) {
	steps := r.VisibleSteps()
	if len(steps) == 0 {
		return model.Step{}, false
	}
	return steps[r.clamp(r.index, len(steps))], true
}

func (r *Runtime) VisibleFields() []model.Field {
	step, ok := r.CurrentStep()
	if !ok {
		return nil
	}
	return VisibleFields(step, r.sub.Answers)
}

// Progress returns the current position and the number of steps visible
// right now. The total moves as answers change.
func (r *Runtime) Progress() (index, total int) {
	total = len(r.VisibleSteps())
	return r.clamp(r.index, total), total
}

func (r *Runtime) Errors() ValidationErrors {
	errs := make(ValidationErrors, len(r.errors))
	for k, v := range r.errors {
		errs[k] = v
	}
	return errs
}

func (r *Runtime) Answers() model.Answers {
	return r.sub.Answers.Clone()
}

// Submission returns a snapshot of the submission as the runtime sees it.
func (r *Runtime) Submission() model.Submission {
	sub := r.sub
	sub.CurrentStep = r.StepIndex()
	sub.Answers = r.sub.Answers.Clone()
	return sub
}

// SetAnswer records an answer in memory. A nil value removes it.
func (r *Runtime) SetAnswer(name string, value any) error {
	if r.state == Completed {
		return ErrCompleted
	}
	if v := model.NormalizeValue(value); v != nil {
		r.sub.Answers[name] = v
	} else {
		delete(r.sub.Answers, name)
	}
	delete(r.errors, name)
	return nil
}

// GoNext validates the current step and moves forward. When validation
// fails it returns the errors and stays put. On the last visible step it
// finalizes the submission.
func (r *Runtime) GoNext(ctx context.Context) (ValidationErrors, error) {
	if r.state == Completed {
		return nil, ErrCompleted
	}
	steps := r.VisibleSteps()
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	r.index = r.clamp(r.index, len(steps))

	fields := VisibleFields(steps[r.index], r.sub.Answers)
	if errs := ValidateStep(fields, r.sub.Answers); len(errs) > 0 {
		r.errors = errs
		for _, f := range fields {
			if _, failed := errs[f.Name]; failed {
				r.observer.ValidationFailed(f.Type)
			}
		}
		r.observer.Transition(TransitionBlocked)
		r.logger().WithField("errors", len(errs)).Debug("wizard.next.blocked")
		return errs, nil
	}
	r.errors = ValidationErrors{}

	if r.index == len(steps)-1 {
		return nil, r.finalize(ctx)
	}

	r.index++
	r.sub.CurrentStep = r.index
	r.observer.Transition(TransitionNext)
	r.logger().Debug("wizard.next")
	return nil, r.saveProgress(ctx)
}

// GoPrev moves one visible step back without validating. It does nothing
// on the first step.
func (r *Runtime) GoPrev(ctx context.Context) error {
	if r.state == Completed {
		return ErrCompleted
	}
	r.index = r.clamp(r.index, len(r.VisibleSteps()))
	if r.index == 0 {
		return nil
	}

	r.index--
	r.sub.CurrentStep = r.index
	r.errors = ValidationErrors{}
	r.observer.Transition(TransitionPrev)
	r.logger().Debug("wizard.prev")
	return r.saveProgress(ctx)
}

func (r *Runtime) saveProgress(ctx context.Context) error {
	if !r.template.AllowSaveProgress {
		return nil
	}
	return r.write(ctx, "save_progress", func() error {
		return r.store.SaveProgress(ctx, r.sub.ID, r.index, r.sub.Answers.Clone())
	})
}

// finalize writes a last snapshot and then marks the submission completed.
// The local state only becomes Completed once both writes succeeded; a
// crash in between leaves a resumable IN_PROGRESS record.
func (r *Runtime) finalize(ctx context.Context) error {
	r.state = Finalizing
	r.logger().Debug("wizard.finalize")

	err := r.write(ctx, "save_snapshot", func() error {
		return r.store.SaveProgress(ctx, r.sub.ID, r.index, r.sub.Answers.Clone())
	})
	if err == nil {
		err = r.write(ctx, "mark_completed", func() error {
			return r.store.MarkCompleted(ctx, r.sub.ID)
		})
	}
	if err != nil {
		if r.state != Completed {
			r.state = Answering
		}
		return err
	}

	now := time.Now()
	r.state = Completed
	r.sub.Status = model.Completed
	r.sub.CompletedAt = &now
	r.observer.Transition(TransitionComplete)
	r.logger().Info("wizard.completed")
	return nil
}

func (r *Runtime) write(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCompleted) {
		// someone else finished this submission: stop accepting changes
		r.state = Completed
		r.sub.Status = model.Completed
		return ErrCompleted
	}
	if errors.Is(err, ErrNotFound) {
		// gone for good, a retry cannot bring it back
		r.logger().Warn("wizard." + op + ": submission not found")
		return ErrNotFound
	}
	r.observer.PersistenceFailed(op)
	r.logger().WithError(err).Warn("wizard." + op)
	return &RetryableError{Op: op, Err: err}
}

func (r *Runtime) clamp(index, total int) int {
	if index >= total {
		index = total - 1
	}
	if index < 0 {
		index = 0
	}
	return index
}

func (r *Runtime) logger() *log.Entry {
	return log.WithFields(log.Fields{
		"submission": r.sub.ID,
		"template":   r.template.ID,
		"step":       r.index,
	})
}
