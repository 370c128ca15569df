package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

// PerformanceSync is the MyPerformance counterpart of AttendanceSync,
// writing performer rosters under Groups/{gid}/Programs/{pid}.
type PerformanceSync struct {
	store storage.Store
	log   *zap.Logger
}

func NewPerformanceSync(store storage.Store, logger *zap.Logger) *PerformanceSync {
	return &PerformanceSync{store: store, log: nopIfNil(logger)}
}

func (s *PerformanceSync) Handle(ctx context.Context, change trigger.Change, params trigger.Params) error {
	_, err := s.Sync(ctx, models.UserID(params["userID"]), models.GroupID(params["groupID"]), change)
	return err
}

func (s *PerformanceSync) Sync(ctx context.Context, uid models.UserID, gid models.GroupID, change trigger.Change) (SyncResult, error) {
	var res SyncResult
	if change.Status() == trigger.StatusDelete {
		return res, nil
	}

	old := models.PerformanceMapFromData(change.BeforeData())
	current := models.PerformanceMapFromData(change.AfterData())

	var errs []error
	for pid, entry := range current {
		if prev, ok := old[pid]; ok && prev.SameAs(entry) {
			res.Skipped++
			continue
		}
		path := storage.PerformerRosterPath(gid, pid)
		s.log.Info("update performers",
			zap.String("user_id", string(uid)),
			zap.String("program_id", string(pid)))
		err := s.store.Set(ctx, path, storage.Field{
			Path:  storage.FieldPath{string(uid)},
			Value: entry.Performer(uid).Data(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("performance: write %s: %w", path, err))
			continue
		}
		res.Written++
	}
	return res, errors.Join(errs...)
}
