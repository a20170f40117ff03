// Package redisstore keeps wizard submissions in Redis, one JSON document
// per submission.
package redisstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mbolis/quick-wizard/model"
	"github.com/mbolis/quick-wizard/wizard"
)

const maxRetries = 5

// Store implements wizard.SubmissionStore. Writes are read-modify-write
// under WATCH; a write that loses the race is retried against the fresh
// document, so the last writer wins.
type Store struct {
	client    *redis.Client
	templates wizard.TemplateSource
	ttl       time.Duration
	prefix    string
}

var _ wizard.SubmissionStore = (*Store)(nil)

type Option func(*Store)

// WithTTL expires in-progress submissions that see no writes for ttl.
// Completed submissions never expire. Zero, the default, disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default is "qwizard".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(client *redis.Client, templates wizard.TemplateSource, opts ...Option) *Store {
	s := &Store{
		client:    client,
		templates: templates,
		prefix:    "qwizard",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) submissionKey(id string) string {
	return fmt.Sprintf("%s:submission:%s", s.prefix, id)
}

func (s *Store) templateIndexKey(templateID int) string {
	return fmt.Sprintf("%s:template:%d:submissions", s.prefix, templateID)
}

func (s *Store) CreateSubmission(ctx context.Context, templateID int) (*model.Submission, error) {
	t, err := s.templates.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if t.Status != model.Published {
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
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, errors.Wrap(err, "encode submission")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.submissionKey(sub.ID), data, s.ttl)
	pipe.SAdd(ctx, s.templateIndexKey(templateID), sub.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "redis create submission")
	}
	return sub, nil
}

func (s *Store) LoadSubmission(ctx context.Context, id string) (*model.Submission, error) {
	data, err := s.client.Get(ctx, s.submissionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, wizard.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get submission")
	}
	return decode(data)
}

// ListSubmissions returns the live submissions of a template, newest
// first. Expired ids are dropped from the index on the way.
func (s *Store) ListSubmissions(ctx context.Context, templateID int) ([]model.Submission, error) {
	indexKey := s.templateIndexKey(templateID)
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis list submissions")
	}
	list := []model.Submission{}
	if len(ids) == 0 {
		return list, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.submissionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis get submissions")
	}

	var expired []any
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		sub, err := decode([]byte(data))
		if err != nil {
			return nil, err
		}
		list = append(list, *sub)
	}
	if len(expired) > 0 {
		s.client.SRem(ctx, indexKey, expired...)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *Store) SaveProgress(ctx context.Context, id string, currentStep int, answers model.Answers) error {
	if answers == nil {
		answers = model.Answers{}
	}
	return s.update(ctx, id, func(sub *model.Submission) (bool, time.Duration, error) {
		if sub.Status == model.Completed {
			return false, 0, wizard.ErrCompleted
		}
		same, err := sameAnswers(sub.Answers, answers)
		if err != nil {
			return false, 0, err
		}
		if same && sub.CurrentStep == currentStep {
			return false, 0, nil
		}
		sub.CurrentStep = currentStep
		sub.Answers = answers.Clone()
		sub.UpdatedAt = time.Now().UTC()
		return true, s.ttl, nil
	})
}

func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	return s.update(ctx, id, func(sub *model.Submission) (bool, time.Duration, error) {
		if sub.Status == model.Completed {
			return false, 0, nil
		}
		now := time.Now().UTC()
		sub.Status = model.Completed
		sub.CompletedAt = &now
		sub.UpdatedAt = now
		return true, 0, nil
	})
}

// update loads the document, lets fn change it, and writes it back if fn
// reports a change. The write is dropped and retried if the key changed
// in between.
func (s *Store) update(ctx context.Context, id string, fn func(*model.Submission) (bool, time.Duration, error)) error {
	key := s.submissionKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return wizard.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "redis get submission")
		}
		sub, err := decode(data)
		if err != nil {
			return err
		}

		changed, ttl, err := fn(sub)
		if err != nil || !changed {
			return err
		}
		if data, err = json.Marshal(sub); err != nil {
			return errors.Wrap(err, "encode submission")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errors.Wrap(redis.TxFailedErr, "redis update submission")
}

func decode(data []byte) (*model.Submission, error) {
	sub := &model.Submission{}
	if err := json.Unmarshal(data, sub); err != nil {
		return nil, errors.Wrap(err, "decode submission")
	}
	if sub.Answers == nil {
		sub.Answers = model.Answers{}
	}
	return sub, nil
}

// sameAnswers compares canonical encodings: map keys are sorted by
// encoding/json, and answers only hold JSON-native values.
func sameAnswers(a, b model.Answers) (bool, error) {
	ja, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ja, jb), nil
}
