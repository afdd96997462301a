package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"icarus/internal/client"
	"icarus/internal/logging"
)

const (
	defaultAPIURL  = "http://localhost:8080"
	authAnnotation = "auth"
)

// app is the state shared by every command of one invocation.
type app struct {
	apiURL  string
	timeout time.Duration
	jsonOut bool
	verbose bool

	logger *zap.Logger
	tokens *client.TokenStore
	client *client.Client
	agg    *client.Aggregator
	user   string
}

func apiURLFromEnv() string {
	if v := os.Getenv("ICARUS_API_URL"); v != "" {
		return v
	}
	return defaultAPIURL
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "icarus",
		Short:         "Track daily protein intake",
		Long:          "Command line client for the icarus protein tracking API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", apiURLFromEnv(), "API base URL (env ICARUS_API_URL)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print raw JSON instead of tables")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log requests and failures")

	root.AddCommand(
		a.signupCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.goalCmd(),
		a.addCmd(),
		a.deleteCmd(),
		a.todayCmd(),
		a.pastCmd(),
		a.historyCmd(),
		a.importCmd(),
	)
	return root
}

// requireAuth marks cmd as needing a verified session before it runs.
func requireAuth(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[authAnnotation] = "true"
	return cmd
}

// setup runs once before any command. Commands marked with requireAuth go through the
// session guard here instead of checking the token themselves.
func (a *app) setup(cmd *cobra.Command) error {
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New("dev", level)
	if err != nil {
		return err
	}
	a.logger = logger

	tokens, err := client.DefaultTokenStore()
	if err != nil {
		return err
	}
	a.tokens = tokens
	a.client = client.New(a.apiURL, a.timeout)
	a.agg = client.NewAggregator(a.client, time.Local, logger)

	if cmd.Annotations[authAnnotation] != "true" {
		return nil
	}
	user, err := client.Guard(cmd.Context(), a.client, a.tokens)
	if err != nil {
		if errors.Is(err, client.ErrNotAuthenticated) {
			a.logger.Debug("session rejected", zap.Error(err))
			return fmt.Errorf("not logged in; run `icarus login` first")
		}
		return err
	}
	a.user = user
	return nil
}
