package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"uk.co.dudmesh.aura/internal/app"
	"uk.co.dudmesh.aura/internal/boot"
	"uk.co.dudmesh.aura/internal/docstore"
	"uk.co.dudmesh.aura/internal/localstore"
	"uk.co.dudmesh.aura/internal/model"
)

// cliSlotPrefix keeps the operator's session apart from the one the server
// restores; the document slot is shared.
const cliSlotPrefix = "cli:"

type scopedSlots struct {
	app.Slots
}

func (s scopedSlots) key(key string) string {
	if key == docstore.DocumentSlot {
		return key
	}
	return cliSlotPrefix + key
}

func (s scopedSlots) Get(key string) (string, error) {
	return s.Slots.Get(s.key(key))
}

func (s scopedSlots) Set(key, value string) error {
	return s.Slots.Set(s.key(key), value)
}

func (s scopedSlots) Remove(key string) error {
	return s.Slots.Remove(s.key(key))
}

type options struct {
	username string
	password string
	reason   string
	minutes  int
}

// withApp opens the store, logs in as the operator and runs fn. The
// operator's session is cleared afterwards.
func withApp(opts *options, fn func(cmd *cobra.Command, aura *app.App, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		config, err := boot.Load()
		if err != nil {
			return fmt.Errorf("boot: %w", err)
		}
		slots, err := localstore.New(config)
		if err != nil {
			return fmt.Errorf("opening local store: %w", err)
		}
		aura, err := app.New(config, scopedSlots{slots}, clockwork.NewRealClock())
		if err != nil {
			slots.Close()
			return err
		}
		defer aura.Close()

		if err := aura.InitStore(); err != nil {
			return err
		}
		if _, err := aura.Login(opts.username, opts.password); err != nil {
			return fmt.Errorf("logging in as %s: %w", opts.username, err)
		}
		defer aura.Logout()

		return fn(cmd, aura, args)
	}
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

type userRow struct {
	ID       model.UserID `json:"id"`
	Username string       `json:"username"`
	Name     string       `json:"name"`
	Role     string       `json:"role"`
	Verified bool         `json:"verified"`
	Banned   bool         `json:"banned"`
	Muted    bool         `json:"muted"`
	Warnings int          `json:"warnings"`
}

func newUserRow(u *model.User) userRow {
	return userRow{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role().String(),
		Verified: u.Verified,
		Banned:   u.Banned,
		Muted:    u.Muted,
		Warnings: u.Warnings,
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "aura-admin",
		Short:         "Moderate an Aura store from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.username, "username", "u", "owner", "operator username")
	rootCmd.PersistentFlags().StringVarP(&opts.password, "password", "p", "", "operator password")

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List users, owners and admins first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
			users, err := aura.ListUsers()
			if err != nil {
				return err
			}
			rows := make([]userRow, 0, len(users))
			for i := range users {
				rows = append(rows, newUserRow(&users[i]))
			}
			return printJSON(cmd, rows)
		}),
	}

	warningsCmd := &cobra.Command{
		Use:   "warnings",
		Short: "Show the moderation log, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
			warnings, err := aura.ListWarnings()
			if err != nil {
				return err
			}
			return printJSON(cmd, warnings)
		}),
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show security statistics",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
			stats, err := aura.SecurityStats()
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		}),
	}

	toggle := func(use, short string, fn func(aura *app.App, id model.UserID) (*model.User, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <userId>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
				user, err := fn(aura, model.UserID(args[0]))
				if err != nil {
					return err
				}
				return printJSON(cmd, newUserRow(user))
			}),
		}
	}

	verifyCmd := toggle("verify", "Toggle the verified badge", (*app.App).ToggleVerified)
	officialCmd := toggle("official", "Toggle the official badge", (*app.App).ToggleOfficial)
	creatorCmd := toggle("creator", "Toggle the content creator badge", (*app.App).ToggleContentCreator)

	banCmd := toggle("ban", "Ban for 30 days, or lift an active ban", func(aura *app.App, id model.UserID) (*model.User, error) {
		return aura.BanUser(id, opts.reason)
	})
	banCmd.Flags().StringVar(&opts.reason, "reason", "", "reason recorded in the moderation log")

	warnCmd := toggle("warn", "Warn a user; the third warning bans", func(aura *app.App, id model.UserID) (*model.User, error) {
		return aura.WarnUser(id, opts.reason)
	})
	warnCmd.Flags().StringVar(&opts.reason, "reason", "", "reason recorded in the moderation log")

	var muteCmd *cobra.Command
	muteCmd = toggle("mute", "Mute a user, or lift an active mute", func(aura *app.App, id model.UserID) (*model.User, error) {
		var minutes *int
		if muteCmd.Flags().Changed("minutes") {
			minutes = &opts.minutes
		}
		return aura.MuteUser(id, opts.reason, minutes)
	})
	muteCmd.Flags().StringVar(&opts.reason, "reason", "", "reason recorded in the moderation log")
	muteCmd.Flags().IntVar(&opts.minutes, "minutes", 60, "mute duration in minutes")

	deletePostCmd := &cobra.Command{
		Use:   "delete-post <postId>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
			if err := aura.DeletePost(model.PostID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "DANGER: replace the document with a freshly seeded one",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
			if !aura.Current().Role().CanConfigure() {
				return model.ErrorForbidden
			}
			if err := aura.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "store reset")
			return nil
		}),
	}

	rootCmd.AddCommand(usersCmd, warningsCmd, statsCmd, verifyCmd, officialCmd, creatorCmd,
		banCmd, muteCmd, warnCmd, deletePostCmd, newSettingsCmd(opts), resetCmd)
	return rootCmd
}

func newSettingsCmd(opts *options) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change system settings",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show system settings",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
			settings, err := aura.Settings()
			if err != nil {
				return err
			}
			return printJSON(cmd, settings)
		}),
	}

	var (
		registration bool
		antiSpam     bool
		maintenance  bool
		maxPosts     int
		maxComments  int
		maxAttempts  int
	)

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change system settings (owner only)",
		Args:  cobra.NoArgs,
	}
	setCmd.RunE = withApp(opts, func(cmd *cobra.Command, aura *app.App, args []string) error {
		flags := cmd.Flags()
		patch := &model.SettingsPatch{}
		if flags.Changed("registration-enabled") {
			patch.RegistrationEnabled = &registration
		}
		if flags.Changed("anti-spam") {
			patch.AntiSpamEnabled = &antiSpam
		}
		if flags.Changed("maintenance") {
			patch.MaintenanceMode = &maintenance
		}
		if flags.Changed("max-posts") {
			patch.MaxPostsPerUser = &maxPosts
		}
		if flags.Changed("max-comments") {
			patch.MaxCommentsPerPost = &maxComments
		}
		if flags.Changed("max-login-attempts") {
			patch.MaxLoginAttempts = &maxAttempts
		}

		settings, err := aura.UpdateSettings(patch)
		if err != nil {
			return err
		}
		return printJSON(cmd, settings)
	})
	setCmd.Flags().BoolVar(&registration, "registration-enabled", true, "allow new registrations")
	setCmd.Flags().BoolVar(&antiSpam, "anti-spam", true, "reject bursts of posts")
	setCmd.Flags().BoolVar(&maintenance, "maintenance", false, "only moderators may log in and post")
	setCmd.Flags().IntVar(&maxPosts, "max-posts", 100, "posts allowed per user, 0 for unlimited")
	setCmd.Flags().IntVar(&maxComments, "max-comments", 50, "comments allowed per post")
	setCmd.Flags().IntVar(&maxAttempts, "max-login-attempts", 5, "failed logins per minute before lockout, 0 to disable")

	settingsCmd.AddCommand(getCmd, setCmd)
	return settingsCmd
}
