package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ely.by/yggrelay/internal/yggdrasil"
)

var errNotFound = errors.New("not found at any of the providers")

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Runs a single query through the configured providers and prints the result as JSON",
}

var lookupUuidCmd = &cobra.Command{
	Use:          "uuid NAME...",
	Short:        "Resolves UUIDs of the passed names",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *yggdrasil.Client) error {
			resolved := client.QueryUUIDs(ctx, args)
			if len(resolved) == 0 {
				return errNotFound
			}

			result := make(map[string]string, len(resolved))
			for name, id := range resolved {
				result[name] = yggdrasil.ToUnsigned(id)
			}

			return printJson(cmd.OutOrStdout(), result)
		})
	},
}

var lookupProfileCmd = &cobra.Command{
	Use:          "profile UUID",
	Short:        "Fetches the profile with the passed UUID",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := yggdrasil.FromUnsigned(args[0])
		if err != nil {
			return err
		}

		signed, _ := cmd.Flags().GetBool("signed")

		return withClient(func(ctx context.Context, client *yggdrasil.Client) error {
			return printProfile(cmd.OutOrStdout(), client.QueryProfile(ctx, id, signed), signed)
		})
	},
}

var lookupJoinedCmd = &cobra.Command{
	Use:          "joined USERNAME SERVER_ID",
	Short:        "Checks whether the player has joined the server",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *yggdrasil.Client) error {
			return printProfile(cmd.OutOrStdout(), client.HasJoined(ctx, args[0], args[1]), true)
		})
	},
}

func withClient(fn func(ctx context.Context, client *yggdrasil.Client) error) error {
	container := shouldGetContainer()

	var ctx context.Context
	if err := container.Resolve(&ctx); err != nil {
		return err
	}

	var client *yggdrasil.Client
	if err := container.Resolve(&client); err != nil {
		return err
	}

	return fn(ctx, client)
}

func printProfile(out io.Writer, profile *yggdrasil.Profile, withSignature bool) error {
	if profile == nil {
		return errNotFound
	}

	body, err := yggdrasil.SerializeProfile(profile, withSignature)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, string(body))

	return err
}

func printJson(out io.Writer, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, string(body))

	return err
}

func init() {
	lookupProfileCmd.Flags().Bool("signed", false, "request the properties signatures")

	lookupCmd.AddCommand(lookupUuidCmd, lookupProfileCmd, lookupJoinedCmd)
	RootCmd.AddCommand(lookupCmd)
}
