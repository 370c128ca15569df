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

// Maintenance repairs derived documents from their sources: the member
// index from every MyGroupDocument, and one user's token entries.
type Maintenance struct {
	store      storage.Store
	tokens     *TokenSync
	membership *MembershipSync
	log        *zap.Logger
}

func NewMaintenance(store storage.Store, tokens *TokenSync, membership *MembershipSync, logger *zap.Logger) *Maintenance {
	return &Maintenance{store: store, tokens: tokens, membership: membership, log: nopIfNil(logger)}
}

// ReindexResult summarises a reindex run.
type ReindexResult struct {
	Users   int `json:"users"`
	Groups  int `json:"groups"`
	Entries int `json:"entries"`
	Removed int `json:"removed"`
}

// Reindex rebuilds Groups/{gid}/Members/MemberIndex for every group from a
// full scan of the users' MyGroupDocuments, drops stale entries and marks
// each index complete.
func (m *Maintenance) Reindex(ctx context.Context) (ReindexResult, error) {
	var res ReindexResult
	uids, err := m.store.ListIDs(ctx, storage.UsersCollection)
	if err != nil {
		return res, fmt.Errorf("reindex: list users: %w", err)
	}
	res.Users = len(uids)

	members := map[models.GroupID]map[string]bool{}
	for _, id := range uids {
		uid := models.UserID(id)
		snap, err := m.store.Get(ctx, storage.MyGroupsPath(uid))
		if err != nil {
			return res, fmt.Errorf("reindex: read groups of %s: %w", uid, err)
		}
		for gid := range models.MyGroupsFromData(snap.Data) {
			if members[gid] == nil {
				members[gid] = map[string]bool{}
			}
			members[gid][id] = true
		}
	}

	gids, err := m.store.ListIDs(ctx, storage.GroupsCollection)
	if err != nil {
		return res, fmt.Errorf("reindex: list groups: %w", err)
	}
	for _, id := range gids {
		if members[models.GroupID(id)] == nil {
			members[models.GroupID(id)] = map[string]bool{}
		}
	}

	var errs []error
	for gid, want := range members {
		path := storage.MemberIndexPath(gid)
		current, err := m.store.Get(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reindex: read %s: %w", path, err))
			continue
		}

		var fields []storage.Field
		for uid := range want {
			if current.Data[uid] != true {
				fields = append(fields, storage.Field{Path: storage.FieldPath{uid}, Value: true})
			}
		}
		if current.Data[storage.IndexCompleteField] != true {
			fields = append(fields, storage.Field{Path: storage.FieldPath{storage.IndexCompleteField}, Value: true})
		}
		for uid := range current.Data {
			if uid != storage.IndexCompleteField && !want[uid] {
				fields = append(fields, storage.Field{Path: storage.FieldPath{uid}, Value: storage.Delete})
				res.Removed++
			}
		}
		res.Groups++
		res.Entries += len(want)
		if len(fields) == 0 {
			continue
		}
		if err := m.store.Set(ctx, path, fields...); err != nil {
			errs = append(errs, fmt.Errorf("reindex: write %s: %w", path, err))
		}
	}
	m.log.Info("member index rebuilt",
		zap.Int("users", res.Users),
		zap.Int("groups", res.Groups),
		zap.Int("entries", res.Entries),
		zap.Int("removed", res.Removed))
	return res, errors.Join(errs...)
}

// ResyncResult summarises a resync run.
type ResyncResult struct {
	Groups      []models.GroupID `json:"groups"`
	TokenWrites int              `json:"token_writes"`
}

// Resync replays the membership and device-token projections for one user
// as if their MyGroupDocument and MyDeviceDocument had just been written.
func (m *Maintenance) Resync(ctx context.Context, uid models.UserID) (ResyncResult, error) {
	var res ResyncResult

	groups, err := m.store.Get(ctx, storage.MyGroupsPath(uid))
	if err != nil {
		return res, fmt.Errorf("resync: read groups of %s: %w", uid, err)
	}
	joined, err := m.membership.Sync(ctx, uid, trigger.Change{
		Path:   groups.Path,
		Before: storage.Missing(groups.Path),
		After:  groups,
	})
	if err != nil {
		return res, err
	}
	res.Groups = joined.Joined

	devices, err := m.store.Get(ctx, storage.MyDevicesPath(uid))
	if err != nil {
		return res, fmt.Errorf("resync: read devices of %s: %w", uid, err)
	}
	// A missing device document replays as a delete and clears the tokens.
	before := devices
	if !devices.Exists {
		before = storage.Snapshot{Path: devices.Path, Exists: true, Data: map[string]any{}}
	}
	written, err := m.tokens.Sync(ctx, uid, trigger.Change{Path: devices.Path, Before: before, After: devices})
	res.TokenWrites = written.Written
	return res, err
}
