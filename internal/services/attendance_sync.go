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

// AttendanceSync projects a user's MyAttendance/{groupID} map into the
// attendee roster of every event whose entry changed.
type AttendanceSync struct {
	store storage.Store
	log   *zap.Logger
}

func NewAttendanceSync(store storage.Store, logger *zap.Logger) *AttendanceSync {
	return &AttendanceSync{store: store, log: nopIfNil(logger)}
}

// Handle is the trigger entry point for Users/{userID}/MyAttendance/{groupID}.
func (s *AttendanceSync) Handle(ctx context.Context, change trigger.Change, params trigger.Params) error {
	_, err := s.Sync(ctx, models.UserID(params["userID"]), models.GroupID(params["groupID"]), change)
	return err
}

// Sync writes one roster entry per new or changed attendance entry. Removing
// the document or an entry leaves the rosters as they are.
func (s *AttendanceSync) Sync(ctx context.Context, uid models.UserID, gid models.GroupID, change trigger.Change) (SyncResult, error) {
	var res SyncResult
	if change.Status() == trigger.StatusDelete {
		return res, nil
	}

	old := models.AttendanceMapFromData(change.BeforeData())
	current := models.AttendanceMapFromData(change.AfterData())

	var errs []error
	for eid, entry := range current {
		if prev, ok := old[eid]; ok && prev.SameAs(entry) {
			res.Skipped++
			continue
		}
		path := storage.AttendeeRosterPath(gid, eid)
		s.log.Info("update attendees",
			zap.String("user_id", string(uid)),
			zap.String("event_id", string(eid)))
		err := s.store.Set(ctx, path, storage.Field{
			Path:  storage.FieldPath{string(uid)},
			Value: entry.Attendee(uid).Data(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("attendance: write %s: %w", path, err))
			continue
		}
		res.Written++
	}
	return res, errors.Join(errs...)
}
