package config

import (
	"fmt"
	"io"

	"github.com/AD7six/shop-images/internal/commands/version"
	internalconfig "github.com/AD7six/shop-images/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd returns a cobra command that displays current configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long:  "Shows the current configuration values as ENV_VAR: value pairs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := internalconfig.LoadSettings()
			if err != nil {
				return err
			}

			displaySettings(cmd.OutOrStdout(), settings)
			return nil
		},
	}

	return cmd
}

// displaySettings prints each setting as "ENV_VAR: value"
func displaySettings(w io.Writer, s *internalconfig.Settings) {
	fmt.Fprintf(w, "CDN_BASE_URL: %s\n", s.CDNBaseURL)
	fmt.Fprintf(w, "MAX_CONCURRENT_DOWNLOADS: %d\n", s.MaxConcurrent)
	// HTTP_TIMEOUT is configured in seconds, convert duration to whole seconds
	fmt.Fprintf(w, "HTTP_TIMEOUT: %d\n", int(s.HTTPTimeout.Seconds()))
	fmt.Fprintf(w, "HTTP_RETRIES: %d\n", s.HTTPRetries)
	fmt.Fprintf(w, "HTTP_MAX_BODY_SIZE: %d\n", s.HTTPMaxBodySize)
	userAgent := s.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	fmt.Fprintf(w, "HTTP_USER_AGENT: %s\n", userAgent)
	fmt.Fprintf(w, "LOG_LEVEL: %s\n", s.LogLevel)
}
