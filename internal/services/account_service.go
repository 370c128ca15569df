package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/storage"
)

// ErrAccountStillExists stops a deletion cascade for an account the identity
// provider still knows.
var ErrAccountStillExists = errors.New("account still exists")

// UserDirectory answers whether the identity provider knows a user.
type UserDirectory interface {
	UserExists(ctx context.Context, uid models.UserID) (bool, error)
}

// FirebaseUserDirectory looks users up in Firebase Authentication.
type FirebaseUserDirectory struct {
	client *auth.Client
}

func NewFirebaseUserDirectory(client *auth.Client) *FirebaseUserDirectory {
	return &FirebaseUserDirectory{client: client}
}

func (d *FirebaseUserDirectory) UserExists(ctx context.Context, uid models.UserID) (bool, error) {
	_, err := d.client.GetUser(ctx, string(uid))
	if auth.IsUserNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AccountOptions configures AccountService. Users and Purger may be nil.
type AccountOptions struct {
	Users  UserDirectory
	Purger ObjectPurger
	// ObjectPrefix is the folder holding per-user uploads, e.g. "users"
	// for objects named users/{uid}/...
	ObjectPrefix string
}

// AccountService erases everything stored for a user once their account is
// removed from the identity provider.
type AccountService struct {
	store  storage.Store
	users  UserDirectory
	purger ObjectPurger
	prefix string
	log    *zap.Logger
}

func NewAccountService(store storage.Store, logger *zap.Logger, opts AccountOptions) *AccountService {
	return &AccountService{
		store:  store,
		users:  opts.Users,
		purger: opts.Purger,
		prefix: opts.ObjectPrefix,
		log:    nopIfNil(logger),
	}
}

// DeleteAccountResult reports what a cascade removed.
type DeleteAccountResult struct {
	UserID         models.UserID `json:"user_id"`
	ObjectsDeleted int           `json:"objects_deleted"`
}

// DeleteUser removes Users/{uid} with every subcollection, then the user's
// uploaded objects when a purger is configured.
func (s *AccountService) DeleteUser(ctx context.Context, uid models.UserID) (*DeleteAccountResult, error) {
	if uid == "" {
		return nil, errors.New("account: empty user id")
	}
	if s.users != nil {
		exists, err := s.users.UserExists(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("account: lookup %s: %w", uid, err)
		}
		if exists {
			return nil, fmt.Errorf("account: %s: %w", uid, ErrAccountStillExists)
		}
	}

	if err := s.store.DeleteRecursive(ctx, storage.UserPath(uid)); err != nil {
		return nil, fmt.Errorf("account: delete %s: %w", storage.UserPath(uid), err)
	}
	res := &DeleteAccountResult{UserID: uid}

	if s.purger != nil {
		n, err := s.purger.PurgePrefix(ctx, path.Join(s.prefix, string(uid))+"/")
		res.ObjectsDeleted = n
		if err != nil {
			return res, fmt.Errorf("account: purge objects of %s: %w", uid, err)
		}
	}
	return res, nil
}

// HandleDeleted runs the cascade for an identity-provider deletion event.
// The event has nobody to report to, so failures end in the log.
func (s *AccountService) HandleDeleted(ctx context.Context, uid models.UserID) {
	start := time.Now()
	res, err := s.DeleteUser(ctx, uid)
	if err != nil {
		s.log.Error("delete user data failed",
			zap.String("user_id", string(uid)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	s.log.Info("user data deleted",
		zap.String("user_id", string(uid)),
		zap.Int("objects_deleted", res.ObjectsDeleted),
		zap.Duration("elapsed", time.Since(start)))
}
