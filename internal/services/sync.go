package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/storage"
)

// SyncResult counts the roster or cache writes one invocation performed.
type SyncResult struct {
	Written int
	Skipped int
}

// readMyGroups loads a user's MyGroupDocument. Read failures are logged and
// reported as "no groups": the invocation then writes nothing.
func readMyGroups(ctx context.Context, store storage.Store, log *zap.Logger, uid models.UserID) (models.MyGroups, bool) {
	snap, err := store.Get(ctx, storage.MyGroupsPath(uid))
	if err != nil {
		log.Warn("read my groups failed", zap.String("user_id", string(uid)), zap.Error(err))
		return nil, false
	}
	if !snap.Exists {
		log.Info("no group", zap.String("user_id", string(uid)))
		return nil, false
	}
	return models.MyGroupsFromData(snap.Data), true
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
