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

// GroupSync copies a group's name, English name and password into the
// MyGroups cache of every member after the group document is updated.
type GroupSync struct {
	store storage.Store
	log   *zap.Logger
	// scan ignores the member index and visits every user.
	scan bool
}

func NewGroupSync(store storage.Store, logger *zap.Logger, scan bool) *GroupSync {
	return &GroupSync{store: store, log: nopIfNil(logger), scan: scan}
}

// Handle is the trigger entry point for Groups/{groupID}.
func (s *GroupSync) Handle(ctx context.Context, change trigger.Change, params trigger.Params) error {
	if change.Status() != trigger.StatusUpdate {
		return nil
	}
	group := models.GroupFromData(models.GroupID(params["groupID"]), change.AfterData())
	_, err := s.Sync(ctx, group)
	return err
}

// Sync rewrites the cached profile of group in each member's MyGroups.
// Users without a cache entry for the group are left untouched.
func (s *GroupSync) Sync(ctx context.Context, group models.Group) (SyncResult, error) {
	var res SyncResult
	candidates, indexed, ok := s.candidates(ctx, group.ID)
	if !ok {
		return res, nil
	}

	profile := group.Profile()
	var errs []error
	var members []models.UserID
	complete := true
	for _, uid := range candidates {
		snap, err := s.store.Get(ctx, storage.MyGroupsPath(uid))
		if err != nil {
			s.log.Warn("read my groups failed", zap.String("user_id", string(uid)), zap.Error(err))
			res.Skipped++
			complete = false
			continue
		}
		key, found := myGroupKey(snap, group.ID)
		if !found {
			res.Skipped++
			continue
		}
		members = append(members, uid)

		fields := make([]storage.Field, 0, len(profile))
		for _, name := range sortedKeys(profile) {
			fields = append(fields, storage.Field{Path: storage.FieldPath{key, name}, Value: profile[name]})
		}
		if err := s.store.Set(ctx, snap.Path, fields...); err != nil {
			errs = append(errs, fmt.Errorf("group: write %s: %w", snap.Path, err))
			continue
		}
		res.Written++
	}
	s.log.Info("group profile propagated",
		zap.String("group_id", string(group.ID)),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped))

	if !s.scan && !indexed && complete {
		s.completeIndex(ctx, group.ID, members)
	}
	return res, errors.Join(errs...)
}

// candidates returns the users that may cache the group: the member index
// when it is marked complete, every user otherwise. indexed reports which.
func (s *GroupSync) candidates(ctx context.Context, gid models.GroupID) (ids []models.UserID, indexed, ok bool) {
	if !s.scan {
		snap, err := s.store.Get(ctx, storage.MemberIndexPath(gid))
		switch {
		case err != nil:
			s.log.Warn("read member index failed, scanning users", zap.String("group_id", string(gid)), zap.Error(err))
		case snap.Data[storage.IndexCompleteField] == true:
			listed := make([]models.UserID, 0, len(snap.Data))
			for _, uid := range sortedKeys(snap.Data) {
				if uid != storage.IndexCompleteField {
					listed = append(listed, models.UserID(uid))
				}
			}
			return listed, true, true
		default:
			s.log.Info("member index incomplete, scanning users", zap.String("group_id", string(gid)))
		}
	}

	all, err := s.store.ListIDs(ctx, storage.UsersCollection)
	if err != nil {
		s.log.Error("list users failed", zap.Error(err))
		return nil, false, false
	}
	out := make([]models.UserID, 0, len(all))
	for _, id := range all {
		out = append(out, models.UserID(id))
	}
	return out, false, true
}

// completeIndex records the members a full scan found and marks the index
// complete, so later updates of the group read the index instead.
func (s *GroupSync) completeIndex(ctx context.Context, gid models.GroupID, members []models.UserID) {
	fields := make([]storage.Field, 0, len(members)+1)
	for _, uid := range members {
		fields = append(fields, storage.Field{Path: storage.FieldPath{string(uid)}, Value: true})
	}
	fields = append(fields, storage.Field{Path: storage.FieldPath{storage.IndexCompleteField}, Value: true})
	if err := s.store.Set(ctx, storage.MemberIndexPath(gid), fields...); err != nil {
		s.log.Warn("complete member index failed", zap.String("group_id", string(gid)), zap.Error(err))
	}
}

// myGroupKey finds the MyGroupDocument entry for gid: the entry keyed by the
// group id, or one whose MyGroupID names it.
func myGroupKey(snap storage.Snapshot, gid models.GroupID) (string, bool) {
	if !snap.Exists {
		return "", false
	}
	if models.AsMap(snap.Data[string(gid)]) != nil {
		return string(gid), true
	}
	for key, raw := range snap.Data {
		if entry := models.AsMap(raw); entry != nil && entry["MyGroupID"] == string(gid) {
			return key, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
