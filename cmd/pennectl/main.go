// Command pennectl connects to a NOODLES server, mirrors its scene and exposes the
// session over a small admin HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/penne/internal/admin"
	"github.com/danmuck/penne/internal/auth"
	"github.com/danmuck/penne/internal/client"
	"github.com/danmuck/penne/internal/config"
	"github.com/danmuck/penne/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	url        string
	name       string
	strict     bool
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pennectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:           "pennectl",
		Short:         "NOODLES client: watch a scene, list and invoke methods",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (toml)")
	root.PersistentFlags().StringVar(&flags.url, "url", "", "server address, ws:// or wss://")
	root.PersistentFlags().StringVar(&flags.name, "name", "", "client name sent in the intro")
	root.PersistentFlags().BoolVar(&flags.strict, "strict", false, "treat invalid messages and method exceptions as errors")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "trace|debug|info|warn|error|off")

	root.AddCommand(
		newWatchCmd(&flags),
		newMethodsCmd(&flags),
		newInvokeCmd(&flags),
		newConfigCmd(),
	)
	return root
}

// resolve loads the config file and applies flags the user set explicitly.
func (f *rootFlags) resolve(cmd *cobra.Command) (config.ClientConfig, error) {
	cfg, err := loadClientConfig(f.configPath)
	if err != nil {
		return config.ClientConfig{}, err
	}
	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.URL = f.url
	}
	if changed("name") {
		cfg.Name = f.name
	}
	if changed("strict") {
		cfg.Strict = f.strict
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return config.ClientConfig{}, err
	}

	// PENNE_LOG_LEVEL beats the config file; --log-level beats both.
	logCfg := logging.RuntimeConfig()
	if changed("log-level") || os.Getenv(logging.EnvLogLevel) == "" {
		if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logCfg.Level = level
		}
	}
	logging.Apply(logCfg)
	return cfg, nil
}

func connect(ctx context.Context, cfg config.ClientConfig, extra ...client.Option) (*client.Client, error) {
	opts := append(cfg.Options(), extra...)
	return client.Dial(ctx, cfg.URL, opts...)
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var adminAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Mirror the scene until interrupted, optionally serving the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("admin") {
				cfg.AdminAddr = adminAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := connect(ctx, cfg, client.WithOnConnected(func() {
				log.Info().Msg("pennectl.watch document initialized")
			}))
			if err != nil {
				return err
			}
			defer c.Shutdown()
			log.Info().Msgf("pennectl.watch session=%s url=%s delegates=%d", c.SessionID(), c.URL(), c.Len())

			if cfg.AdminAddr != "" {
				srv := admin.New("pennectl", c, cfg.CorsOrigins)
				if cfg.AdminToken != "" {
					srv.RequireToken(auth.StaticToken{Token: cfg.AdminToken})
				}
				go func() {
					if err := srv.ListenAndServe(ctx, cfg.AdminAddr); err != nil {
						log.Error().Msgf("pennectl.watch admin err=%v", err)
						stop()
					}
				}()
			}

			if err := c.ServeCallbacks(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			c.Shutdown()
			select {
			case <-c.Done():
			case <-time.After(2 * time.Second):
			}
			return c.Err()
		},
	}
	cmd.Flags().StringVar(&adminAddr, "admin", "", "admin listen address, empty disables")
	return cmd
}

func newMethodsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the methods the server offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			c, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			fmt.Fprintln(cmd.OutOrStdout(), c.ShowMethods())
			return nil
		},
	}
}

func newInvokeCmd(flags *rootFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "invoke <method> [args...]",
		Short: "Invoke a document method and print its result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			callArgs, err := parseArgs(args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			m, err := c.MethodByName(args[0])
			if err != nil {
				return err
			}
			reply, err := c.Call(ctx, m.ID, callArgs)
			if err != nil {
				return err
			}
			var result any
			if err := reply.Decode(&result); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connect and reply deadline")
	return cmd
}

// parseArgs reads each argument as JSON, falling back to a plain string.
func parseArgs(raw []string) ([]any, error) {
	out := make([]any, 0, len(raw))
	for _, arg := range raw {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			out = append(out, arg)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check pennectl config files",
	}

	var kind string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config template to %s\n", kind, args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&kind, "kind", "client", "template kind: client|minimal")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a config file, rejecting unknown keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated config at %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}
