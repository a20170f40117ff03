package completion

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-wizard/wizard"
)

// Recorder keeps the completion document and one row per mapped answer,
// keyed by field name and flagged when orphaned, for downstream jobs to pick
// up. Several fields may share a mapping; choosing between them is left to
// the consumer. Exporting the same submission again replaces the previous
// record.
type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db}
}

func (r *Recorder) Export(ctx context.Context, c wizard.Completion) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode completion")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO submission_export (submission_id, template_id, document, exported_at)
		VALUES (?, ?, ?, ?)`,
		c.SubmissionID,
		c.TemplateID,
		string(doc),
		time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "insert export")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM mapped_value WHERE submission_id = ?`, c.SubmissionID)
	if err != nil {
		return errors.Wrap(err, "clear mapped values")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mapped_value (submission_id, field_name, position, mapping, value, orphaned)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "insert mapped values.prepare")
	}
	defer stmt.Close()

	for i, name := range c.MappedFields() {
		value, answered := c.Answers[name]
		if !answered {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "encode %q", name)
		}
		_, err = stmt.ExecContext(ctx, c.SubmissionID, name, i, c.Mappings[name], string(encoded), c.IsOrphaned(name))
		if err != nil {
			return errors.Wrapf(err, "insert mapped value %q", name)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}
