package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/wizard"
)

// SubmissionStore persists submissions as one row per id. Answers are kept
// as a JSON document with sorted keys, so equal answer maps encode to equal
// text and repeated identical writes can be detected and skipped.
type SubmissionStore struct {
	db *sql.DB
}

var _ wizard.SubmissionStore = (*SubmissionStore)(nil)

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db}
}

func (s *SubmissionStore) CreateSubmission(ctx context.Context, templateID int) (*model.Submission, error) {
	var status model.TemplateStatus
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM wizard_template WHERE id = ?`,
		templateID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wizard.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get template status")
	}
	if status != model.Published {
		return nil, wizard.ErrNotPublished
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "new submission id")
	}
	now := time.Now().UTC()
	sub := &model.Submission{
		ID:         id.String(),
		TemplateID: templateID,
		Status:     model.InProgress,
		Answers:    model.Answers{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submission (id, template_id, status, current_step, answers, created_at, updated_at)
		VALUES (?, ?, ?, 0, '{}', ?, ?)`,
		sub.ID,
		sub.TemplateID,
		sub.Status,
		now,
		now,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert submission")
	}
	return sub, nil
}

func (s *SubmissionStore) LoadSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, status, current_step, answers, created_at, updated_at, completed_at
		FROM submission
		WHERE id = ?`,
		id,
	)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wizard.ErrNotFound
	}
	return sub, err
}

// ListSubmissions returns the submissions of a template, newest first.
func (s *SubmissionStore) ListSubmissions(ctx context.Context, templateID int) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, status, current_step, answers, created_at, updated_at, completed_at
		FROM submission
		WHERE template_id = ?
		ORDER BY created_at DESC`,
		templateID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list submissions")
	}
	defer rows.Close()

	list := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *sub)
	}
	return list, errors.Wrap(rows.Err(), "list submissions.rows")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*model.Submission, error) {
	sub := &model.Submission{}
	var answers string
	var completedAt sql.NullTime
	err := row.Scan(
		&sub.ID, &sub.TemplateID, &sub.Status, &sub.CurrentStep, &answers,
		&sub.CreatedAt, &sub.UpdatedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan submission")
	}
	if err = json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return nil, errors.Wrap(err, "parse answers")
	}
	if completedAt.Valid {
		sub.CompletedAt = &completedAt.Time
	}
	return sub, nil
}

// SaveProgress overwrites the step pointer and answers of an in-progress
// submission. A write identical to the stored state changes nothing.
func (s *SubmissionStore) SaveProgress(ctx context.Context, id string, currentStep int, answers model.Answers) error {
	if answers == nil {
		answers = model.Answers{}
	}
	doc, err := json.Marshal(answers)
	if err != nil {
		return errors.Wrap(err, "encode answers")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE submission
		SET
			current_step = ?,
			answers = ?,
			updated_at = ?
		WHERE id = ?
			AND status = ?
			AND (current_step <> ? OR answers <> ?)`,
		currentStep,
		string(doc),
		time.Now().UTC(),
		id,
		model.InProgress,
		currentStep,
		string(doc),
	)
	if err != nil {
		return errors.Wrap(err, "save progress")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "save progress.verify")
	}
	if n > 0 {
		return nil
	}

	status, err := s.status(ctx, id)
	if err != nil {
		return err
	}
	if status == model.Completed {
		return wizard.ErrCompleted
	}
	return nil
}

// MarkCompleted is the single IN_PROGRESS to COMPLETED transition. Marking
// an already completed submission again is not an error.
func (s *SubmissionStore) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE submission
		SET
			status = ?,
			completed_at = ?,
			updated_at = ?
		WHERE id = ?
			AND status = ?`,
		model.Completed,
		now,
		now,
		id,
		model.InProgress,
	)
	if err != nil {
		return errors.Wrap(err, "mark completed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "mark completed.verify")
	}
	if n > 0 {
		return nil
	}

	_, err = s.status(ctx, id)
	return err
}

func (s *SubmissionStore) status(ctx context.Context, id string) (model.SubmissionStatus, error) {
	var status model.SubmissionStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM submission WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", wizard.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "get submission status")
	}
	return status, nil
}
