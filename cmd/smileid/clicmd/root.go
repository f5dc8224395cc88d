// Package clicmd holds the smileid command tree. Every setting is read from
// its SMILEID_* environment variable and may be overridden by a flag.
package clicmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"smileid/internal/platform/config"
)

const (
	partnerIDFlagName   = "partner-id"
	apiKeyFlagName      = "api-key"
	serverFlagName      = "server"
	apiVersionFlagName  = "api-version"
	callbackURLFlagName = "callback-url"
	logLevelFlagName    = "log-level"
	metricsFlagName     = "metrics"
)

// Cmd builds the root command. Results are written to out as JSON.
func Cmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "smileid",
		Short:         "Smile ID verification client",
		Long:          `Submit verification jobs, query their status and check identity documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String(partnerIDFlagName, "", "partner id (SMILEID_PARTNER_ID)")
	flags.String(apiKeyFlagName, "", "service public key, PEM or base64 (SMILEID_API_KEY)")
	flags.String(serverFlagName, "", "test, live or a base URL (SMILEID_SERVER)")
	flags.String(apiVersionFlagName, "", "endpoint layout: empty, v1 or v2 (SMILEID_API_VERSION)")
	flags.String(callbackURLFlagName, "", "default callback URL (SMILEID_CALLBACK_URL)")
	flags.String(logLevelFlagName, "", "debug, info, warn or error (SMILEID_LOG_LEVEL)")
	flags.Bool(metricsFlagName, false, "print collected metrics to stderr on exit")

	root.AddCommand(
		servicesCmd(),
		validateCmd(),
		submitCmd(),
		statusCmd(),
		verifyCmd(),
	)
	return root
}

// loadConfig reads the environment and applies flags the user set.
func loadConfig(cmd *cobra.Command) config.Client {
	cfg := config.FromEnv()
	override := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	override(partnerIDFlagName, &cfg.PartnerID)
	override(apiKeyFlagName, &cfg.APIKey)
	override(serverFlagName, &cfg.Server)
	override(apiVersionFlagName, &cfg.APIVersion)
	override(callbackURLFlagName, &cfg.CallbackURL)
	override(logLevelFlagName, &cfg.LogLevel)
	return cfg
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
