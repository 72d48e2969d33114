package root

import (
	"fmt"
	"net/http"

	"github.com/AD7six/shop-images/internal/collect"
	configcmd "github.com/AD7six/shop-images/internal/commands/config"
	"github.com/AD7six/shop-images/internal/commands/version"
	"github.com/AD7six/shop-images/internal/config"
	"github.com/AD7six/shop-images/internal/download"
	"github.com/AD7six/shop-images/internal/httpclient"
	"github.com/AD7six/shop-images/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// deps holds what the command touches outside the process.
type deps struct {
	fs         afero.Fs
	httpClient *http.Client // replaces the client's transport when set
}

// NewRootCmd returns the shop-images command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(deps{fs: afero.NewOsFs()})
}

func newRootCmd(d deps) *cobra.Command {
	var (
		opts     config.Options
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "shop-images",
		Short: "Download the images referenced by a theme project or a list of URLs",
		Long: `Collects image URLs and downloads them into an output directory.

When --in is a directory it is treated as a theme project: every JSON file under
config/ and templates/ is scanned for shopify://shop_images/ references, which
are resolved against --cdn. Otherwise --in is read as a file of URLs, one per line.`,
		Example: "  shop-images --in=./theme --out=./images --cdn=https://cdn.shopify.com/s/files/1/0000/0001/files\n" +
			"  shop-images --in=urls.txt --out=./images",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitLogger(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, d, opts)
		},
	}

	bindFlags(cmd.Flags(), &opts)
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL, else info)")

	cmd.AddCommand(version.NewVersionCmd())
	cmd.AddCommand(configcmd.NewConfigCmd())

	return cmd
}

func bindFlags(flags *pflag.FlagSet, opts *config.Options) {
	flags.StringVar(&opts.Input, "in", config.DefaultInput, "Project directory, or file of newline-delimited URLs")
	flags.StringVar(&opts.Output, "out", config.DefaultOutput, "Output directory (created if missing, parent must exist)")
	flags.StringVar(&opts.CDN, "cdn", "", "CDN base URL for resolving project images (default from CDN_BASE_URL)")
	flags.BoolVar(&opts.List, "list", false, "Print the collected URLs instead of downloading them")
	flags.IntVar(&opts.Concurrency, "concurrency", 0, "Maximum downloads in flight (default from MAX_CONCURRENT_DOWNLOADS, else 8)")
}

func run(cmd *cobra.Command, d deps, opts config.Options) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	// LOG_LEVEL may only just have been read from .env.
	if f := cmd.Flag("log-level"); f == nil || !f.Changed {
		logging.InitLogger(settings.LogLevel)
	}
	if opts.CDN == "" {
		opts.CDN = settings.CDNBaseURL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = settings.MaxConcurrent
	}
	if settings.UserAgent == "" {
		settings.UserAgent = version.UserAgent()
	}

	urls, err := collect.Collect(d.fs, opts)
	if err != nil {
		return err
	}
	urls = collect.Deduplicate(urls)

	out := cmd.OutOrStdout()
	if opts.List {
		for _, u := range urls {
			fmt.Fprintln(out, u)
		}
		return nil
	}

	return downloadAll(cmd, d, settings, opts, urls)
}

func downloadAll(cmd *cobra.Command, d deps, settings *config.Settings, opts config.Options, urls []string) error {
	out := cmd.OutOrStdout()

	client := httpclient.New(settings, opts.Concurrency)
	if d.httpClient != nil {
		client.UnderlyingHTTP = d.httpClient
	}
	downloader := download.New(client, d.fs,
		download.WithMaxBodySize(settings.HTTPMaxBodySize),
		download.WithProgress(cmd.ErrOrStderr()),
	)

	fmt.Fprintf(out, "Found %d files. Downloading...\n", len(urls))

	summary, err := downloader.Download(cmd.Context(), urls, opts.Output)
	if err != nil {
		return err
	}

	failed := summary.Failed()
	for _, r := range failed {
		logging.Logger.Warn("download failed", "url", r.URL, "error", r.Err)
	}

	fmt.Fprintf(out, "Finished downloading %d of %d files.\n", len(urls)-len(failed), len(urls))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed to download", len(failed), len(urls))
	}
	return nil
}
