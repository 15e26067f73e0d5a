package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/logging"
	"tysmp/whitelist/internal/store"
)

var secretSettings = []string{store.KeyToken, store.KeyRconPassword, store.KeyClientSecret}

func settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change the runtime settings kept in the store",
		Long: "Inspect or change the runtime settings kept in the store.\n" +
			"The bot must not be running while the embedded store is in use.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSettings(cmd, func(s config.Settings, _ *config.KVSettings) error {
					return printSettings(cmd.OutOrStdout(), s)
				})
			},
		},
		&cobra.Command{
			Use:       "get KEY",
			Short:     "Print one setting",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.SettingKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(cmd, func(s config.Settings, _ *config.KVSettings) error {
					v, ok := settingValue(s, args[0])
					if !ok {
						return errors.NotValidf("setting %q", args[0])
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "set KEY VALUE",
			Short:     "Change one setting",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.SettingKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(cmd, func(_ config.Settings, kv *config.KVSettings) error {
					if err := kv.Set(store.WithActor(cmd.Context(), "cli"), args[0], args[1]); err != nil {
						return errors.Trace(err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func withSettings(cmd *cobra.Command, fn func(config.Settings, *config.KVSettings) error) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	logger := logging.New(cmd.ErrOrStderr(), "warn", cfg.LogFormat)
	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return errors.Trace(err)
	}
	defer st.Close()

	kv := config.NewKVSettings(st)
	s, err := kv.Load(cmd.Context())
	if err != nil {
		return errors.Trace(err)
	}
	return fn(s, kv)
}

func settingValue(s config.Settings, key string) (string, bool) {
	values := map[string]string{
		store.KeyToken:            s.Token,
		store.KeyGuild:            s.GuildID,
		store.KeyChannel:          s.ReviewChannelID,
		store.KeyChatChannel:      s.ChatChannelID,
		store.KeyIntroChannel:     s.IntroChannelID,
		store.KeyWhitelistCommand: s.WhitelistCommand,
		store.KeyRconHost:         s.RconHost,
		store.KeyRconPassword:     s.RconPassword,
		store.KeyMemberRole:       s.MemberRoleID,
		store.KeyDomain:           s.Domain,
		store.KeyClientID:         s.ClientID,
		store.KeyClientSecret:     s.ClientSecret,
		store.KeyManagedRoles:     strings.Join(s.ManagedRoleIDs, ","),
	}
	if s.RconPort != 0 {
		values[store.KeyRconPort] = fmt.Sprint(s.RconPort)
	} else {
		values[store.KeyRconPort] = ""
	}
	v, ok := values[key]
	return v, ok
}

func printSettings(w io.Writer, s config.Settings) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, key := range append(config.SettingKeys(), store.KeyManagedRoles) {
		v, _ := settingValue(s, key)
		switch {
		case v == "":
			v = "(unset)"
		case slices.Contains(secretSettings, key):
			v = "********"
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, v)
	}
	return tw.Flush()
}
