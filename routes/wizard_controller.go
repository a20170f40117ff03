package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-wizard/app"
	"github.com/mbolis/quick-wizard/httpx"
	"github.com/mbolis/quick-wizard/log"
	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/wizard"
)

type stepView struct {
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Fields      []model.Field `json:"fields"`
}

type submissionView struct {
	ID                string                  `json:"id"`
	TemplateID        int                     `json:"templateId"`
	TemplateName      string                  `json:"templateName"`
	Status            model.SubmissionStatus  `json:"status"`
	StepIndex         int                     `json:"stepIndex"`
	StepCount         int                     `json:"stepCount"`
	ShowProgressBar   bool                    `json:"showProgressBar"`
	Step              *stepView               `json:"step,omitempty"`
	Answers           model.Answers           `json:"answers"`
	Errors            wizard.ValidationErrors `json:"errors,omitempty"`
	CompletionMessage *string                 `json:"completionMessage,omitempty"`
	Retryable         bool                    `json:"retryable,omitempty"`
}

// navigation is the body of a next/prev request. A null answer clears the
// field. Step is only honoured for templates that do not save progress,
// where the client keeps the pointer.
type navigation struct {
	Answers map[string]any `json:"answers"`
	Step    *int           `json:"step,omitempty"`
}

func newSubmissionView(t *model.Template, rt *wizard.Runtime) submissionView {
	sub := rt.Submission()
	index, total := rt.Progress()
	view := submissionView{
		ID:              sub.ID,
		TemplateID:      t.ID,
		TemplateName:    t.Name,
		Status:          sub.Status,
		StepIndex:       index,
		StepCount:       total,
		ShowProgressBar: t.ShowProgressBar,
		Answers:         sub.Answers,
		Errors:          rt.Errors(),
	}
	if sub.Status == model.Completed {
		view.CompletionMessage = t.CompletionMessage
		return view
	}
	if step, ok := rt.CurrentStep(); ok {
		view.Step = &stepView{
			Title:       step.Title,
			Description: step.Description,
			Fields:      publicFields(rt.VisibleFields()),
		}
	}
	return view
}

// publicFields hides the mapping strings, which only concern the export side.
func publicFields(fields []model.Field) []model.Field {
	public := make([]model.Field, len(fields))
	for i, f := range fields {
		f.ExternalMapping = nil
		public[i] = f
	}
	return public
}

func publicTemplate(t *model.Template) *model.Template {
	public := *t
	public.Steps = make([]model.Step, len(t.Steps))
	for i, s := range t.Steps {
		s.Fields = publicFields(s.Fields)
		public.Steps[i] = s
	}
	return &public
}

func PublicGetWizard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		t, err := app.Templates.Template(r.Context(), templateId)
		if errors.Is(err, wizard.ErrNotFound) || (err == nil && t.Status != model.Published) {
			httpx.LogNotFound(w, "get_wizard", templateId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_wizard", err)
			return
		}

		render.JSON(w, r, publicTemplate(t))
	}
}

func StartSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		sub, err := app.Submissions.CreateSubmission(r.Context(), templateId)
		switch {
		case errors.Is(err, wizard.ErrNotFound), errors.Is(err, wizard.ErrNotPublished):
			httpx.LogNotFound(w, "start_submission", templateId)
			return
		case err != nil:
			httpx.LogInternalError(w, "db.create_submission", err)
			return
		}
		if app.Metrics != nil {
			app.Metrics.Started()
		}

		t, err := app.Templates.Template(r.Context(), templateId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_wizard", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, newSubmissionView(t, newRuntime(app, t, sub)))
	}
}

func GetSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, sub, ok := loadSubmission(app, w, r)
		if !ok {
			return
		}
		render.JSON(w, r, newSubmissionView(t, newRuntime(app, t, sub)))
	}
}

func NextStep(app app.App) http.HandlerFunc {
	return navigate(app, func(ctx context.Context, rt *wizard.Runtime) (wizard.ValidationErrors, error) {
		return rt.GoNext(ctx)
	})
}

func PrevStep(app app.App) http.HandlerFunc {
	return navigate(app, func(ctx context.Context, rt *wizard.Runtime) (wizard.ValidationErrors, error) {
		return nil, rt.GoPrev(ctx)
	})
}

func navigate(app app.App, move func(context.Context, *wizard.Runtime) (wizard.ValidationErrors, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := navigation{}
		if r.ContentLength != 0 {
			if err := render.DecodeJSON(r.Body, &body); err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
				return
			}
		}

		t, sub, ok := loadSubmission(app, w, r)
		if !ok {
			return
		}
		if sub.Status == model.Completed {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "submission.completed")
			return
		}

		answers := sub.Answers.Clone()
		for name, value := range body.Answers {
			if v := model.NormalizeValue(value); v != nil {
				answers[name] = v
			} else {
				delete(answers, name)
			}
		}
		if !t.AllowSaveProgress && body.Step != nil {
			// nothing was persisted: trust the client's pointer only as far
			// as the answers it sent actually validate
			sub.Answers = answers
			sub.CurrentStep = wizard.FirstInvalidStep(t, answers, *body.Step)
		}

		rt := newRuntime(app, t, sub)
		for name, value := range body.Answers {
			if err := rt.SetAnswer(name, value); err != nil {
				httpx.LogInternalError(w, "wizard.set_answer", err)
				return
			}
		}

		errs, err := move(r.Context(), rt)
		switch {
		case errors.Is(err, wizard.ErrCompleted):
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "submission.completed")
			return
		case errors.Is(err, wizard.ErrNotFound):
			httpx.LogNotFound(w, "wizard.navigate", sub.ID)
			return
		case wizard.IsRetryable(err):
			log.Warnf("wizard.%s: %s", sub.ID, err)
			view := newSubmissionView(t, rt)
			view.Retryable = true
			httpx.LogStatusJSON(w, r, http.StatusServiceUnavailable, log.DebugLevel, "wizard.retryable", view)
			return
		case err != nil:
			httpx.LogInternalError(w, "wizard.navigate", err)
			return
		}

		view := newSubmissionView(t, rt)
		if len(errs) > 0 {
			httpx.LogStatusJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "wizard.validation", view)
			return
		}

		if rt.State() == wizard.Completed {
			final := rt.Submission()
			exportCompletion(r.Context(), app, t, &final)
		}
		render.JSON(w, r, view)
	}
}

func loadSubmission(app app.App, w http.ResponseWriter, r *http.Request) (*model.Template, *model.Submission, bool) {
	submissionId := chi.URLParam(r, "sid")
	sub, err := app.Submissions.LoadSubmission(r.Context(), submissionId)
	if errors.Is(err, wizard.ErrNotFound) {
		httpx.LogNotFound(w, "get_submission", submissionId)
		return nil, nil, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_submission", err)
		return nil, nil, false
	}

	t, err := app.Templates.Template(r.Context(), sub.TemplateID)
	if err != nil {
		httpx.LogInternalError(w, "db.get_wizard", err)
		return nil, nil, false
	}
	return t, sub, true
}

func newRuntime(app app.App, t *model.Template, sub *model.Submission) *wizard.Runtime {
	var opts []wizard.Option
	if app.Metrics != nil {
		opts = append(opts, wizard.WithObserver(app.Metrics))
	}
	return wizard.NewRuntime(t, sub, app.Submissions, opts...)
}

// exportCompletion hands a completed submission to the exporter. The
// submission is already completed, so a failure is logged and can be
// retried from the admin API.
func exportCompletion(ctx context.Context, app app.App, t *model.Template, sub *model.Submission) error {
	if app.Exporter == nil {
		return nil
	}
	c, err := wizard.BuildCompletion(t, sub)
	if err == nil {
		err = app.Exporter.Export(ctx, c)
	}
	if err != nil {
		log.WithFields(log.Fields{"submission": sub.ID, "template": t.ID}).
			WithError(err).
			Error("wizard.export")
	}
	return err
}
