package cli

import (
	"DadBot/src/boot"
	"DadBot/src/domain"
	"DadBot/src/storage"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var settingsPath string

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dadbot",
		Short:         "Discord bot enforcing a nightly quiet time",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	root.PersistentFlags().StringVarP(&settingsPath, "config", "c", domain.ConfigFileName, "bot settings file")

	root.AddCommand(newShowCommand(), newValidateCommand())
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

func run() error {
	config, err := boot.LoadConfig(settingsPath)
	if err != nil {
		return fmt.Errorf("loadConfig: %w", err)
	}

	bot, err := boot.Init(config, settingsPath)
	defer func() {
		if bot != nil {
			if err := bot.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR shutdown: %v\n", err)
			}
		}
	}()
	if err != nil {
		return fmt.Errorf("inits: %w", err)
	}

	stopBot := make(chan os.Signal, 1)
	signal.Notify(stopBot, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stopBot

	bot.Logger.Info("Shutting down the bot...")
	return nil
}

func newShowCommand() *cobra.Command {
	var (
		userID  string
		roleIDs []string
		at      string
	)

	cmd := &cobra.Command{
		Use:   "show <guild-id>",
		Short: "Print the effective quiet time of a guild or member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := boot.LoadConfig(settingsPath)
			if err != nil {
				return err
			}
			location, err := config.Quiet.Location()
			if err != nil {
				return err
			}

			now := time.Now().In(location)
			if at != "" {
				now, err = time.ParseInLocation(time.RFC3339, at, location)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = now.In(location)
			}

			guild, err := storage.NewGuildConfigStore(config.Quiet.ConfigFile).Guild(args[0])
			if err != nil {
				return err
			}

			var member *domain.Member
			if userID != "" || len(roleIDs) > 0 {
				member = &domain.Member{ID: userID}
				// Role positions are unknown offline, so flag order stands in for them.
				for position, roleID := range roleIDs {
					member.Roles = append(member.Roles, domain.Role{ID: roleID, Position: position})
				}
			}

			printWindow(cmd.OutOrStdout(), guild.Resolve(member), now)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "member ID")
	cmd.Flags().StringSliceVar(&roleIDs, "role", nil, "role IDs, lowest position first")
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC 3339 time instead of now")
	return cmd
}

func printWindow(w io.Writer, window domain.Window, now time.Time) {
	fmt.Fprintf(w, "start:      %s\n", window.Start)
	fmt.Fprintf(w, "end:        %s\n", window.End)
	fmt.Fprintf(w, "days:       %s\n", window.Days)
	fmt.Fprintf(w, "grace:      %d minutes (voice disconnect from %s)\n", window.GracePeriod, window.DisconnectStart())
	fmt.Fprintf(w, "quiet:      %v at %s\n", window.IsQuietAt(now), now.Format(time.RFC3339))
	fmt.Fprintf(w, "disconnect: %v\n", window.IsDisconnectAt(now))
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the guild config file parses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := boot.LoadConfig(settingsPath)
			if err != nil {
				return err
			}
			store := storage.NewGuildConfigStore(config.Quiet.ConfigFile)
			root, err := store.Load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d servers\n", store.Path(), len(root.Servers))
			for _, guild := range root.Servers {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d user overrides, %d role overrides, %d holidays\n",
					guild.ServerID, len(guild.Overrides.Users), len(guild.Overrides.Roles), len(guild.Holidays))
			}
			return nil
		},
	}
}
