// Package store persists brief records in the "Briefs" collection.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/shubh-37/music-brief-analyzer/internal/apperr"
	"github.com/shubh-37/music-brief-analyzer/internal/datastore"
	"github.com/shubh-37/music-brief-analyzer/internal/models"
)

const TableName = "Briefs"

type BriefStore struct {
	exec datastore.Executor
	now  func() time.Time
}

func NewBriefStore(exec datastore.Executor) *BriefStore {
	return &BriefStore{exec: exec, now: time.Now}
}

// WithClock overrides the updatedAt clock.
func (s *BriefStore) WithClock(now func() time.Time) *BriefStore {
	s.now = now
	return s
}

// Save creates the record when id is empty and returns the new id,
// otherwise updates in place. UpdatedAt is refreshed on every call.
func (s *BriefStore) Save(ctx context.Context, id string, rec *models.BriefRecord) (string, error) {
	out := *rec
	updated := s.now().UTC()
	out.UpdatedAt = &updated
	if id != "" {
		out.BriefID = id
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", apperr.Persistence("encode brief", err)
	}

	res, err := s.exec.Execute(ctx, datastore.Command{
		Action:    datastore.ActionSave,
		TableName: TableName,
		ID:        id,
		Data:      data,
	})
	if err != nil {
		return "", apperr.Persistence("save brief", err)
	}
	return res.ID, nil
}

// Load returns nil without error when the record does not exist.
func (s *BriefStore) Load(ctx context.Context, id string) (*models.BriefRecord, error) {
	res, err := s.exec.Execute(ctx, datastore.Command{
		Action:    datastore.ActionLoad,
		TableName: TableName,
		ID:        id,
	})
	if err != nil {
		return nil, apperr.Persistence("load brief", err)
	}
	if res.Data == nil {
		return nil, nil
	}

	var rec models.BriefRecord
	if err := json.Unmarshal(res.Data, &rec); err != nil {
		return nil, apperr.Persistence("decode brief", err)
	}
	return &rec, nil
}

// Search lists up to limit records, newest updatedAt first. Records
// without updatedAt sort last.
func (s *BriefStore) Search(ctx context.Context, limit int) ([]models.ListedBrief, error) {
	res, err := s.exec.Execute(ctx, datastore.Command{
		Action:    datastore.ActionSearch,
		TableName: TableName,
		Limit:     limit,
	})
	if err != nil {
		return nil, apperr.Persistence("search briefs", err)
	}

	briefs := make([]models.ListedBrief, 0, len(res.Items))
	for _, item := range res.Items {
		var rec models.BriefRecord
		if err := json.Unmarshal(item.Data, &rec); err != nil {
			continue
		}
		briefs = append(briefs, models.ListedBrief{ID: item.ID, Record: rec})
	}

	sort.SliceStable(briefs, func(i, j int) bool {
		return updatedAt(briefs[i]).After(updatedAt(briefs[j]))
	})
	return briefs, nil
}

func (s *BriefStore) Delete(ctx context.Context, id string) error {
	_, err := s.exec.Execute(ctx, datastore.Command{
		Action:    datastore.ActionDelete,
		TableName: TableName,
		ID:        id,
	})
	if err != nil {
		return apperr.Persistence("delete brief", err)
	}
	return nil
}

func (s *BriefStore) Count(ctx context.Context) (int, error) {
	res, err := s.exec.Execute(ctx, datastore.Command{
		Action:    datastore.ActionCount,
		TableName: TableName,
	})
	if err != nil {
		return 0, apperr.Persistence("count briefs", err)
	}
	return res.Total, nil
}

func updatedAt(b models.ListedBrief) time.Time {
	if b.Record.UpdatedAt == nil {
		return time.Time{}
	}
	return *b.Record.UpdatedAt
}
