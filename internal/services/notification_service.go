package services

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

// NotificationOptions tunes NotificationService.
type NotificationOptions struct {
	Locale string
	// SkipLastEditor stops pushes to the member who made the write. Off by
	// default: members also get a push for their own posts.
	SkipLastEditor     bool
	MaxConcurrentSends int
}

// NotificationService pushes schedule and mail writes to every device in
// the group's token document.
type NotificationService struct {
	store    storage.Store
	notifier Notifier
	log      *zap.Logger

	locale         language.Tag
	skipLastEditor bool
	limit          int
}

func NewNotificationService(store storage.Store, notifier Notifier, logger *zap.Logger, opts NotificationOptions) *NotificationService {
	limit := opts.MaxConcurrentSends
	if limit <= 0 {
		limit = 16
	}
	return &NotificationService{
		store:          store,
		notifier:       notifier,
		log:            nopIfNil(logger),
		locale:         ParseLocale(opts.Locale),
		skipLastEditor: opts.SkipLastEditor,
		limit:          limit,
	}
}

// DispatchResult counts the outcome of one dispatch.
type DispatchResult struct {
	Tokens        int
	SkippedTokens int
	SkippedUsers  int
	Sent          int
	Failed        int
}

// Handler returns the trigger entry point for Groups/{groupID}/Events/{eventID}
// or Groups/{groupID}/Mails/{mailID}, depending on kind.
func (s *NotificationService) Handler(kind models.PostKind) trigger.HandlerFunc {
	return func(ctx context.Context, change trigger.Change, params trigger.Params) error {
		_, err := s.Dispatch(ctx, models.GroupID(params["groupID"]), kind, change)
		return err
	}
}

// Dispatch sends a display push and a data push to every deliverable token
// of the group and waits for all of them. A failed send is counted and never
// stops the others.
func (s *NotificationService) Dispatch(ctx context.Context, gid models.GroupID, kind models.PostKind, change trigger.Change) (DispatchResult, error) {
	var res DispatchResult
	status := change.Status()
	if status == trigger.StatusDelete {
		return res, nil
	}

	post := models.PostFromData(change.AfterData())
	body := NotificationBody(status, kind, s.locale)
	payloads := []Payload{
		{Kind: PayloadDisplay, OwnerID: post.OwnerID, Title: post.OwnerName, Body: body},
		{Kind: PayloadData, OwnerID: post.OwnerID, Title: post.OwnerName, Body: body},
	}

	snap, err := s.store.Get(ctx, storage.TokenDocumentPath(gid))
	if err != nil {
		s.log.Warn("read member tokens failed", zap.String("group_id", string(gid)), zap.Error(err))
		return res, nil
	}
	if !snap.Exists {
		return res, nil
	}
	groupTokens := models.GroupTokensFromData(snap.Data)

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for _, uid := range sortedUsers(groupTokens) {
		if uid == post.LastUpdatedByID {
			s.log.Info("last editor", zap.String("user_id", string(uid)), zap.Bool("skipped", s.skipLastEditor))
			if s.skipLastEditor {
				res.SkippedUsers++
				continue
			}
		}
		for _, token := range groupTokens[uid] {
			if !models.Deliverable(token) {
				res.SkippedTokens++
				continue
			}
			res.Tokens++
			for _, p := range payloads {
				g.Go(func() error {
					if err := s.notifier.Send(gctx, token, p); err != nil {
						n := failed.Add(1)
						s.log.Warn("push failed",
							zap.Int64("failures", n),
							zap.String("kind", string(p.Kind)),
							zap.String("token", token),
							zap.Error(err))
						return nil
					}
					n := sent.Add(1)
					s.log.Debug("push sent",
						zap.Int64("sent", n),
						zap.String("kind", string(p.Kind)),
						zap.String("token", token))
					return nil
				})
			}
		}
	}
	_ = g.Wait()

	res.Sent = int(sent.Load())
	res.Failed = int(failed.Load())
	s.log.Info("notification dispatched",
		zap.String("group_id", string(gid)),
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
		zap.Int("tokens", res.Tokens),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
	return res, nil
}

func sortedUsers(t models.GroupTokens) []models.UserID {
	ids := make([]models.UserID, 0, len(t))
	for uid := range t {
		ids = append(ids, uid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
