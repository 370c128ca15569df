package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

// MembershipSync maintains the per-group member index that GroupSync fans
// out over, and the user's presence in each group token document, as a user
// joins and leaves groups through their MyGroupDocument.
type MembershipSync struct {
	store storage.Store
	log   *zap.Logger
}

func NewMembershipSync(store storage.Store, logger *zap.Logger) *MembershipSync {
	return &MembershipSync{store: store, log: nopIfNil(logger)}
}

// MembershipResult lists the groups a write joined and left.
type MembershipResult struct {
	Joined []models.GroupID
	Left   []models.GroupID
}

// Handle is the trigger entry point for Users/{userID}/MyGroups/MyGroupDocument.
func (s *MembershipSync) Handle(ctx context.Context, change trigger.Change, params trigger.Params) error {
	_, err := s.Sync(ctx, models.UserID(params["userID"]), change)
	return err
}

func (s *MembershipSync) Sync(ctx context.Context, uid models.UserID, change trigger.Change) (MembershipResult, error) {
	before := models.MyGroupsFromData(change.BeforeData())
	after := models.MyGroupsFromData(change.AfterData())

	res := MembershipResult{
		Joined: groupDiff(after, before),
		Left:   groupDiff(before, after),
	}
	if len(res.Joined) == 0 && len(res.Left) == 0 {
		return res, nil
	}

	var tokens models.TokenSet
	if len(res.Joined) > 0 {
		tokens = s.currentTokens(ctx, uid)
	}

	key := storage.FieldPath{string(uid)}
	var errs []error
	for _, gid := range res.Joined {
		s.log.Info("member joined", zap.String("user_id", string(uid)), zap.String("group_id", string(gid)))
		if err := s.store.Set(ctx, storage.MemberIndexPath(gid), storage.Field{Path: key, Value: true}); err != nil {
			errs = append(errs, fmt.Errorf("membership: index %s: %w", gid, err))
			continue
		}
		if tokens == nil {
			continue
		}
		if err := s.store.Set(ctx, storage.TokenDocumentPath(gid), storage.Field{Path: key, Value: tokens.Data()}); err != nil {
			errs = append(errs, fmt.Errorf("membership: seed tokens %s: %w", gid, err))
		}
	}
	for _, gid := range res.Left {
		s.log.Info("member left", zap.String("user_id", string(uid)), zap.String("group_id", string(gid)))
		if err := s.store.Set(ctx, storage.MemberIndexPath(gid), storage.Field{Path: key, Value: storage.Delete}); err != nil {
			errs = append(errs, fmt.Errorf("membership: unindex %s: %w", gid, err))
			continue
		}
		if err := s.store.Set(ctx, storage.TokenDocumentPath(gid), storage.Field{Path: key, Value: storage.Delete}); err != nil {
			errs = append(errs, fmt.Errorf("membership: drop tokens %s: %w", gid, err))
		}
	}
	return res, errors.Join(errs...)
}

// currentTokens reads the user's devices; nil means nothing to seed.
func (s *MembershipSync) currentTokens(ctx context.Context, uid models.UserID) models.TokenSet {
	snap, err := s.store.Get(ctx, storage.MyDevicesPath(uid))
	if err != nil {
		s.log.Warn("read devices failed", zap.String("user_id", string(uid)), zap.Error(err))
		return nil
	}
	devices := models.DevicesFromData(snap.Data)
	if !snap.Exists || len(devices) == 0 {
		return nil
	}
	return devices.Tokens()
}

// groupDiff returns the ids in a that are not in b, sorted.
func groupDiff(a, b models.MyGroups) []models.GroupID {
	var out []models.GroupID
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
