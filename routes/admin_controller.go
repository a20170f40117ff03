package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/quick-wizard/app"
	"github.com/mbolis/quick-wizard/database"
	"github.com/mbolis/quick-wizard/httpx"
	"github.com/mbolis/quick-wizard/log"
	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/templates"
	"github.com/mbolis/quick-wizard/wizard"
)

// readTemplate reads a template document, as YAML when the content type
// says so and as JSON otherwise.
func readTemplate(w http.ResponseWriter, r *http.Request, code string) (*model.Template, bool) {
	format := templates.JSON
	if strings.Contains(r.Header.Get("content-type"), "yaml") {
		format = templates.YAML
	}

	t, err := templates.Load(r.Body, format)
	if err != nil {
		var docErr *templates.DocumentError
		if errors.As(err, &docErr) {
			writeTemplateError(w, r, code, err)
		} else {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
		}
		return nil, false
	}
	return t, true
}

// writeTemplateError answers with the problems of an invalid template, or
// falls back to a 500.
func writeTemplateError(w http.ResponseWriter, r *http.Request, code string, err error) {
	var docErr *templates.DocumentError
	var lintErr *multierror.Error
	switch {
	case errors.As(err, &docErr):
		httpx.LogStatusJSON(w, r, http.StatusBadRequest, log.DebugLevel, code+".document", map[string]any{
			"errors": docErr.Problems,
		})
	case errors.As(err, &lintErr):
		problems := make([]string, len(lintErr.Errors))
		for i, e := range lintErr.Errors {
			problems[i] = e.Error()
		}
		httpx.LogStatusJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, code+".lint", map[string]any{
			"errors": problems,
		})
	case errors.Is(err, wizard.ErrNotFound):
		httpx.LogNotFound(w, code, chi.URLParam(r, "id"))
	case errors.Is(err, database.ErrConflict), errors.Is(err, database.ErrInUse):
		httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code+".conflict", "%s", err)
	default:
		httpx.LogInternalError(w, "db."+code, err)
	}
}

func CreateWizard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := readTemplate(w, r, "create_wizard")
		if !ok {
			return
		}

		templateId, err := app.Templates.CreateTemplate(r.Context(), t)
		if err != nil {
			writeTemplateError(w, r, "create_wizard", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": templateId,
		})
	}
}

func ListWizards(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := app.Templates.ListTemplates(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.list_wizards", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"wizards": list,
		})
	}
}

func GetWizardById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		t, err := app.Templates.Template(r.Context(), templateId)
		if err != nil {
			writeTemplateError(w, r, "get_wizard", err)
			return
		}

		render.JSON(w, r, t)
	}
}

func UpdateWizard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		t, ok := readTemplate(w, r, "update_wizard")
		if !ok {
			return
		}
		t.ID = templateId

		err = app.Templates.UpdateTemplate(r.Context(), t)
		if err != nil {
			writeTemplateError(w, r, "update_wizard", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func SetWizardStatus(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		body := struct {
			Status model.TemplateStatus `json:"status"`
		}{}
		err = render.DecodeJSON(r.Body, &body)
		if err != nil || !body.Status.Valid() {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Templates.SetStatus(r.Context(), templateId, body.Status)
		if err != nil {
			writeTemplateError(w, r, "set_wizard_status", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteWizard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = app.Templates.DeleteTemplate(r.Context(), templateId)
		if err != nil {
			writeTemplateError(w, r, "delete_wizard", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetWizardSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		t, err := app.Templates.Template(r.Context(), templateId)
		if err != nil {
			writeTemplateError(w, r, "get_submissions", err)
			return
		}

		list, err := app.Submissions.ListSubmissions(r.Context(), templateId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_submissions", err)
			return
		}

		type submissionRow struct {
			model.Submission
			Orphaned []string `json:"orphaned,omitempty"`
		}
		rows := make([]submissionRow, len(list))
		for i, sub := range list {
			rows[i] = submissionRow{sub, wizard.Orphaned(t, sub.Answers)}
		}

		render.JSON(w, r, map[string]any{
			"submissions": rows,
		})
	}
}

// ExportSubmission re-runs the export of a completed submission.
func ExportSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, sub, ok := loadSubmission(app, w, r)
		if !ok {
			return
		}
		if sub.Status != model.Completed {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "export.not_completed")
			return
		}

		if err := exportCompletion(r.Context(), app, t, sub); err != nil {
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
