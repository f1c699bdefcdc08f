package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enricher/internal/server"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as YAML with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.Masked().YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <mode>",
	Short: "Check that the configuration is complete for serve, enrich, worker or migrate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if cfg.Server.JWTSecret == "" {
			return eris.New("server.jwt_secret is required")
		}
		tok, err := server.NewToken(cfg.Server.JWTSecret, cfg.Server.JWTIssuer, subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("subject", "cli", "token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	configCmd.AddCommand(configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd, tokenCmd)
}
