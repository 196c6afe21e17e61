package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/entities/change"
	"github.com/harborworks/crewdb/pkg/composables"
)

// Remarks stamped on change-log entries.
const (
	RemarkEdited  = "Person Edited"
	RemarkCreated = "Person Created"
)

// ChangeService records the audit trail of profile edits. Recording is
// fire-and-forget: a failed write is logged, never surfaced to the edit
// that produced it.
type ChangeService struct {
	repo change.Repository
	wg   *sync.WaitGroup
}

func NewChangeService(repo change.Repository) *ChangeService {
	return &ChangeService{repo: repo, wg: &sync.WaitGroup{}}
}

// RecordAsync persists one change entry per applied variance in the
// background. The payloads are rendered to JSON up front so the record
// is independent of later mutations.
func (s *ChangeService) RecordAsync(ctx context.Context, editorID, personID uuid.UUID, variances []person.Variance) {
	if len(variances) == 0 {
		return
	}
	entries := make([]*change.Change, 0, len(variances))
	now := time.Now()
	for _, v := range variances {
		entries = append(entries, &change.Change{
			ID:         uuid.New(),
			EditorID:   editorID,
			PersonID:   personID,
			ObjectName: person.ObjectName,
			Field:      v.Field,
			Old:        renderValue(v.Old),
			New:        renderValue(v.New),
			Remark:     RemarkEdited,
			CreatedAt:  now,
		})
	}
	s.submit(ctx, personID, entries)
}

// RecordCreation persists the audit entry marking a record's creation.
func (s *ChangeService) RecordCreation(ctx context.Context, editorID, personID uuid.UUID) {
	s.submit(ctx, personID, []*change.Change{{
		ID:         uuid.New(),
		EditorID:   editorID,
		PersonID:   personID,
		ObjectName: person.ObjectName,
		Field:      "Person",
		Old:        json.RawMessage("null"),
		New:        renderValue(personID.String()),
		Remark:     RemarkCreated,
		CreatedAt:  time.Now(),
	}})
}

func (s *ChangeService) submit(ctx context.Context, personID uuid.UUID, entries []*change.Change) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.Create(ctx, entries); err != nil {
			composables.UseLogger(ctx).WithError(err).
				WithField("person_id", personID).
				Error("failed to record profile changes")
		}
	}()
}

// Wait blocks until every in-flight recording finishes. Used by graceful
// shutdown and tests.
func (s *ChangeService) Wait() {
	s.wg.Wait()
}

// List returns a record's change history, newest first.
func (s *ChangeService) List(ctx context.Context, params *change.FindParams) ([]*change.Change, error) {
	return s.repo.ListByPerson(ctx, params)
}

func renderValue(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
