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

// MemberNameSync keeps MemberName in each group roster equal to the user's
// profile UserName.
type MemberNameSync struct {
	store storage.Store
	log   *zap.Logger
}

func NewMemberNameSync(store storage.Store, logger *zap.Logger) *MemberNameSync {
	return &MemberNameSync{store: store, log: nopIfNil(logger)}
}

// Handle is the trigger entry point for Users/{userID}. Only updates count.
func (s *MemberNameSync) Handle(ctx context.Context, change trigger.Change, params trigger.Params) error {
	if change.Status() != trigger.StatusUpdate {
		return nil
	}
	user := models.UserFromData(models.UserID(params["userID"]), change.AfterData())
	_, err := s.Sync(ctx, user)
	return err
}

// Sync writes the name into every roster the user appears in, changed or not.
func (s *MemberNameSync) Sync(ctx context.Context, user models.User) (SyncResult, error) {
	var res SyncResult
	groups, ok := readMyGroups(ctx, s.store, s.log, user.ID)
	if !ok {
		return res, nil
	}

	var errs []error
	for _, gid := range groups.IDs() {
		path := storage.MemberRosterPath(gid)
		err := s.store.Set(ctx, path, storage.Field{
			Path:  storage.FieldPath{string(user.ID), "MemberName"},
			Value: user.UserName,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("member name: write %s: %w", path, err))
			continue
		}
		res.Written++
	}
	return res, errors.Join(errs...)
}
