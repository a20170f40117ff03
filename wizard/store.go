package wizard

import (
	"context"

	"github.com/mbolis/quick-wizard/model"
)

// TemplateSource gives read-only access to fully hydrated templates.
type TemplateSource interface {
	Template(ctx context.Context, id int) (*model.Template, error)
}

// ProgressStore is the part of the persistence contract the Runtime
// writes through.
//
// Records are last-write-wins documents keyed by submission id: saving the
// same (currentStep, answers) twice must leave the record unchanged, and
// MarkCompleted on an already completed submission must succeed so that a
// retried finalize is harmless. SaveProgress on a completed submission
// returns ErrCompleted.
type ProgressStore interface {
	SaveProgress(ctx context.Context, id string, currentStep int, answers model.Answers) error
	MarkCompleted(ctx context.Context, id string) error
}

// SubmissionStore is the full persistence collaborator. Two clients
// resuming the same submission concurrently overwrite each other: there
// is no merge.
type SubmissionStore interface {
	ProgressStore
	CreateSubmission(ctx context.Context, templateID int) (*model.Submission, error)
	LoadSubmission(ctx context.Context, id string) (*model.Submission, error)
}
