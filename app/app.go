package app

import (
	"context"
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/mbolis/quick-wizard/completion"
	"github.com/mbolis/quick-wizard/config"
	"github.com/mbolis/quick-wizard/metrics"
	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/wizard"
)

// Submissions is what the HTTP layer needs from a submission store.
type Submissions interface {
	wizard.SubmissionStore
	ListSubmissions(ctx context.Context, templateID int) ([]model.Submission, error)
}

// Templates is the authoring side of the template store.
type Templates interface {
	wizard.TemplateSource
	CreateTemplate(ctx context.Context, t *model.Template) (int, error)
	UpdateTemplate(ctx context.Context, t *model.Template) error
	ListTemplates(ctx context.Context) ([]model.Template, error)
	SetStatus(ctx context.Context, id int, status model.TemplateStatus) error
	DeleteTemplate(ctx context.Context, id int) error
}

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Templates   Templates
	Submissions Submissions
	Exporter    completion.Exporter
	Metrics     *metrics.Observer
}
