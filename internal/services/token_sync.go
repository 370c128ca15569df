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

// TokenSync publishes a user's push tokens to the token document of every
// group they belong to.
type TokenSync struct {
	store storage.Store
	log   *zap.Logger
}

func NewTokenSync(store storage.Store, logger *zap.Logger) *TokenSync {
	return &TokenSync{store: store, log: nopIfNil(logger)}
}

// Handle is the trigger entry point for Users/{userID}/MyDevices/MyDeviceDocument.
func (s *TokenSync) Handle(ctx context.Context, change trigger.Change, params trigger.Params) error {
	_, err := s.Sync(ctx, models.UserID(params["userID"]), change)
	return err
}

// Sync first clears the user's key in each group token document and then,
// unless the devices are gone, writes the fresh UDID -> token map. Clearing
// first guarantees no removed device survives.
func (s *TokenSync) Sync(ctx context.Context, uid models.UserID, change trigger.Change) (SyncResult, error) {
	var res SyncResult

	status := change.Status()
	devices := models.DevicesFromData(change.AfterData())
	deleting := status == trigger.StatusDelete || (status == trigger.StatusUpdate && len(devices) == 0)

	tokens := models.TokenSet{}
	if !deleting {
		tokens = devices.Tokens()
	}

	groups, ok := readMyGroups(ctx, s.store, s.log, uid)
	if !ok {
		return res, nil
	}

	key := storage.FieldPath{string(uid)}
	var errs []error
	for _, gid := range groups.IDs() {
		path := storage.TokenDocumentPath(gid)
		s.log.Debug("sync tokens",
			zap.String("user_id", string(uid)),
			zap.String("group_id", string(gid)),
			zap.Bool("delete", deleting))

		if err := s.store.Set(ctx, path, storage.Field{Path: key, Value: storage.Delete}); err != nil {
			errs = append(errs, fmt.Errorf("tokens: clear %s: %w", path, err))
			continue
		}
		res.Written++
		if deleting {
			continue
		}
		if err := s.store.Set(ctx, path, storage.Field{Path: key, Value: tokens.Data()}); err != nil {
			errs = append(errs, fmt.Errorf("tokens: write %s: %w", path, err))
			continue
		}
		res.Written++
	}
	return res, errors.Join(errs...)
}
