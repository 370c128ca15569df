package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/services"
)

func NewReindexCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild every group's member index from the users' group caches",
		Long: `Rebuild Groups/{gid}/Members/MemberIndex for every group from the
MyGroupDocument of every user, removing entries of users who left.

Examples:
  syncctl reindex --backend firestore
  syncctl reindex --backend memory --snapshot store.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(app)

			res, err := app.Maintenance.Reindex(cmd.Context())
			return writeResult(cmd.OutOrStdout(), opts.Format, res, err, func(w io.Writer) {
				fmt.Fprintf(w, "users: %d\ngroups: %d\nentries: %d\nremoved: %d\n",
					res.Users, res.Groups, res.Entries, res.Removed)
			})
		},
	}
}

func NewResyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync <user-id>",
		Short: "Replay one user's membership and device-token projections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := userArg(args[0])
			if err != nil {
				return err
			}
			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(app)

			res, err := app.Maintenance.Resync(cmd.Context(), uid)
			return writeResult(cmd.OutOrStdout(), opts.Format, res, err, func(w io.Writer) {
				fmt.Fprintf(w, "groups: %s\ntoken writes: %d\n", joinIDs(res.Groups), res.TokenWrites)
			})
		},
	}
}

func NewDeleteUserCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user <user-id>",
		Short: "Erase a deleted account's documents and uploaded objects",
		Long: `Erase Users/{uid} with all of its subcollections, and the user's
uploaded objects when BANDROOM_PURGE_USER_OBJECTS is set.

With BANDROOM_VERIFY_AUTH_DELETION the command refuses to run while the
account still exists in Firebase Authentication.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := userArg(args[0])
			if err != nil {
				return err
			}
			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(app)

			res, err := app.Accounts.DeleteUser(cmd.Context(), uid)
			if res == nil {
				res = &services.DeleteAccountResult{UserID: uid}
			}
			return writeResult(cmd.OutOrStdout(), opts.Format, res, err, func(w io.Writer) {
				fmt.Fprintf(w, "deleted user %s (%d objects)\n", res.UserID, res.ObjectsDeleted)
			})
		},
	}
}

func userArg(arg string) (models.UserID, error) {
	uid := strings.TrimSpace(arg)
	if uid == "" || strings.Contains(uid, "/") {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("invalid user id %q", arg))
	}
	return models.UserID(uid), nil
}

func joinIDs(ids []models.GroupID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
