package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/templates"
	"github.com/mbolis/quick-wizard/wizard"
)

var (
	ErrConflict = errors.New("conflict")
	ErrInUse    = errors.New("template has submissions")
)

// TemplateStore keeps authored templates. Only drafts can be edited; a
// published template is read-only so that running submissions always see
// the definition they were started on.
type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db}
}

func (s *TemplateStore) CreateTemplate(ctx context.Context, t *model.Template) (int, error) {
	if t.Status == "" {
		t.Status = model.Draft
	}
	if t.Status == model.Published {
		if err := templates.Lint(t); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO wizard_template (name, status, allow_save_progress, show_progress_bar, completion_message)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		t.Name,
		t.Status,
		t.AllowSaveProgress,
		t.ShowProgressBar,
		t.CompletionMessage,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert template")
	}

	if err = insertSteps(ctx, tx, id, t.Steps); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	t.ID = id
	t.Version = 1
	return id, nil
}

// UpdateTemplate replaces a draft's content. t.Version must match the
// stored version; a mismatch or a non-draft template yields ErrConflict.
func (s *TemplateStore) UpdateTemplate(ctx context.Context, t *model.Template) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE wizard_template
		SET
			name = ?,
			allow_save_progress = ?,
			show_progress_bar = ?,
			completion_message = ?,
			version = version+1
		WHERE id = ?
			AND version = ?
			AND status = ?`,
		t.Name,
		t.AllowSaveProgress,
		t.ShowProgressBar,
		t.CompletionMessage,
		t.ID,
		t.Version,
		model.Draft,
	)
	if err != nil {
		return errors.Wrap(err, "update template")
	}
	// optimistic lock
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update template.verify")
	}
	if n < 1 {
		if _, err := s.status(ctx, tx, t.ID); err != nil {
			return err
		}
		return ErrConflict
	}

	// fields go with their steps
	_, err = tx.ExecContext(ctx, `DELETE FROM wizard_step WHERE template_id = ?`, t.ID)
	if err != nil {
		return errors.Wrap(err, "delete steps")
	}
	if err = insertSteps(ctx, tx, t.ID, t.Steps); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	t.Version++
	return nil
}

func insertSteps(ctx context.Context, tx *sql.Tx, templateID int, steps []model.Step) error {
	stepStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wizard_step (template_id, title, description, sort_order, condition_json)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return errors.Wrap(err, "insert steps.prepare")
	}
	defer stepStmt.Close()

	fieldStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wizard_field (
			step_id, template_id, label, name, type, placeholder, help_text, required,
			sort_order, options, validation, default_value, condition_json, external_mapping
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "insert fields.prepare")
	}
	defer fieldStmt.Close()

	for _, step := range steps {
		condition, err := jsonColumn(step.Condition)
		if err != nil {
			return errors.Wrap(err, "encode step condition")
		}
		var stepID int
		err = stepStmt.QueryRowContext(ctx, templateID, step.Title, step.Description, step.SortOrder, condition).Scan(&stepID)
		if err != nil {
			return errors.Wrapf(err, "insert step %q", step.Title)
		}

		for _, f := range step.Fields {
			options, err := jsonColumn(f.Options)
			if err != nil {
				return errors.Wrap(err, "encode options")
			}
			validation, err := jsonColumn(f.Validation)
			if err != nil {
				return errors.Wrap(err, "encode validation")
			}
			condition, err := jsonColumn(f.Condition)
			if err != nil {
				return errors.Wrap(err, "encode field condition")
			}
			_, err = fieldStmt.ExecContext(ctx,
				stepID, templateID, f.Label, f.Name, f.Type, f.Placeholder, f.HelpText, f.IsRequired,
				f.SortOrder, options, validation, f.DefaultValue, condition, f.ExternalMapping,
			)
			if err != nil {
				return errors.Wrapf(err, "insert field %q", f.Name)
			}
		}
	}
	return nil
}

func (s *TemplateStore) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.version, t.name, t.status, t.allow_save_progress, t.show_progress_bar, t.completion_message
		FROM wizard_template t
		ORDER BY t.id`)
	if err != nil {
		return nil, errors.Wrap(err, "list templates")
	}
	defer rows.Close()

	list := []model.Template{}
	for rows.Next() {
		t := model.Template{Steps: []model.Step{}}
		var message sql.NullString
		err = rows.Scan(&t.ID, &t.Version, &t.Name, &t.Status, &t.AllowSaveProgress, &t.ShowProgressBar, &message)
		if err != nil {
			return nil, errors.Wrap(err, "list templates.scan")
		}
		t.CompletionMessage = nullableString(message)
		list = append(list, t)
	}
	return list, errors.Wrap(rows.Err(), "list templates.rows")
}

// Template returns a fully hydrated template, or wizard.ErrNotFound.
func (s *TemplateStore) Template(ctx context.Context, id int) (*model.Template, error) {
	t := &model.Template{Steps: []model.Step{}}
	var message sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.version, t.name, t.status, t.allow_save_progress, t.show_progress_bar, t.completion_message
		FROM wizard_template t
		WHERE t.id = ?`,
		id,
	).Scan(&t.ID, &t.Version, &t.Name, &t.Status, &t.AllowSaveProgress, &t.ShowProgressBar, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wizard.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get template")
	}
	t.CompletionMessage = nullableString(message)

	if err = s.loadSteps(ctx, t); err != nil {
		return nil, err
	}
	t.Sort()
	return t, nil
}

func (s *TemplateStore) loadSteps(ctx context.Context, t *model.Template) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id, s.title, s.description, s.sort_order, s.condition_json,
			f.id, f.label, f.name, f.type, f.placeholder, f.help_text, f.required, f.sort_order,
			f.options, f.validation, f.default_value, f.condition_json, f.external_mapping
		FROM wizard_step s
		LEFT OUTER JOIN wizard_field f ON (s.id = f.step_id)
		WHERE s.template_id = ?
		ORDER BY s.sort_order, f.sort_order`,
		t.ID,
	)
	if err != nil {
		return errors.Wrap(err, "get steps")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			step                                model.Step
			stepDesc, stepCond                  sql.NullString
			fieldID, fieldSort                  sql.NullInt64
			label, name, typ, placeholder, help sql.NullString
			required                            sql.NullBool
			options, validation, defaultValue   sql.NullString
			fieldCond, externalMapping          sql.NullString
		)
		err = rows.Scan(
			&step.ID, &step.Title, &stepDesc, &step.SortOrder, &stepCond,
			&fieldID, &label, &name, &typ, &placeholder, &help, &required, &fieldSort,
			&options, &validation, &defaultValue, &fieldCond, &externalMapping,
		)
		if err != nil {
			return errors.Wrap(err, "get steps.scan")
		}

		last := len(t.Steps) - 1
		if last < 0 || t.Steps[last].ID != step.ID {
			step.Description = nullableString(stepDesc)
			if stepCond.Valid {
				step.Condition = &model.Condition{}
				if err = fromJSONColumn(stepCond, step.Condition); err != nil {
					return errors.Wrap(err, "parse step condition")
				}
			}
			step.Fields = []model.Field{}
			t.Steps = append(t.Steps, step)
			last++
		}
		if !fieldID.Valid {
			continue
		}

		f := model.Field{
			ID:              int(fieldID.Int64),
			Label:           label.String,
			Name:            name.String,
			Type:            model.FieldType(typ.String),
			Placeholder:     placeholder.String,
			HelpText:        help.String,
			IsRequired:      required.Bool,
			SortOrder:       int(fieldSort.Int64),
			DefaultValue:    nullableString(defaultValue),
			ExternalMapping: nullableString(externalMapping),
		}
		if err = fromJSONColumn(options, &f.Options); err != nil {
			return errors.Wrap(err, "parse options")
		}
		if validation.Valid {
			f.Validation = &model.Validation{}
			if err = fromJSONColumn(validation, f.Validation); err != nil {
				return errors.Wrap(err, "parse validation")
			}
		}
		if fieldCond.Valid {
			f.Condition = &model.Condition{}
			if err = fromJSONColumn(fieldCond, f.Condition); err != nil {
				return errors.Wrap(err, "parse field condition")
			}
		}
		t.Steps[last].Fields = append(t.Steps[last].Fields, f)
	}
	return errors.Wrap(rows.Err(), "get steps.rows")
}

// SetStatus moves a template through its lifecycle. Publishing lints the
// template first and returns the lint errors if any. A template that has
// submissions cannot go back to draft: it would become editable under them.
func (s *TemplateStore) SetStatus(ctx context.Context, id int, status model.TemplateStatus) error {
	if status == model.Published {
		t, err := s.Template(ctx, id)
		if err != nil {
			return err
		}
		if err = templates.Lint(t); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if status == model.Draft {
		var used bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM submission WHERE template_id = ?)`,
			id,
		).Scan(&used)
		if err != nil {
			return errors.Wrap(err, "set status.check")
		}
		if used {
			return ErrInUse
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE wizard_template SET status = ? WHERE id = ?`,
		status,
		id,
	)
	if err != nil {
		return errors.Wrap(err, "set status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "set status.verify")
	}
	if n < 1 {
		return wizard.ErrNotFound
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// DeleteTemplate removes a template that was never used. Templates with
// submissions should be archived instead.
func (s *TemplateStore) DeleteTemplate(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var used bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM submission WHERE template_id = ?)`,
		id,
	).Scan(&used)
	if err != nil {
		return errors.Wrap(err, "delete template.check")
	}
	if used {
		return ErrInUse
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM wizard_template WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete template")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete template.verify")
	}
	if n < 1 {
		return wizard.ErrNotFound
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func (s *TemplateStore) status(ctx context.Context, tx *sql.Tx, id int) (model.TemplateStatus, error) {
	var status model.TemplateStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM wizard_template WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", wizard.ErrNotFound
	}
	return status, errors.Wrap(err, "get status")
}
