package main

import (
	"strings"

	"github.com/spf13/cobra"
	"xhscrawler/pkg/extractor"
)

var detailFlags struct {
	download       bool
	index          string
	cookie         string
	promptCookie   bool
	proxy          string
	skipDownloaded bool
}

var detailCmd = &cobra.Command{
	Use:   "detail <text-or-url>",
	Short: "Extract one note's detail, optionally downloading its files",
	Long: `detail resolves the first note link found in the argument (share text,
xhslink.com short links and explore links are accepted) and prints its detail.
The xhs_downloader section of the config must be enabled.`,
	Example: `  xhscrawler detail "https://www.xiaohongshu.com/explore/64f1...?xsec_token=AB..." --download --index "1 3"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(nil)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}

		cookie := detailFlags.cookie
		if detailFlags.promptCookie && cookie == "" {
			if cookie, err = promptSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Cookie: "); err != nil {
				return err
			}
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		if err := a.details.Startup(ctx); err != nil {
			return err
		}
		defer a.details.Shutdown(ctx)

		d, err := a.details.FetchDetail(ctx, extractor.Request{
			URL:            strings.Join(args, " "),
			Download:       detailFlags.download,
			Index:          extractor.ParseIndex(detailFlags.index),
			Cookie:         cookie,
			Proxy:          detailFlags.proxy,
			SkipDownloaded: detailFlags.skipDownloaded,
		})
		if err != nil {
			return err
		}
		return printDetail(cmd.OutOrStdout(), d)
	},
}

func init() {
	rootCmd.AddCommand(detailCmd)
	f := detailCmd.Flags()
	f.BoolVarP(&detailFlags.download, "download", "d", false, "download the note's files")
	f.StringVar(&detailFlags.index, "index", "", "gallery images to download, 1-based, e.g. \"1 3 5\"")
	f.StringVar(&detailFlags.cookie, "cookie", "", "cookie header overriding the configured default")
	f.BoolVar(&detailFlags.promptCookie, "prompt-cookie", false, "read the cookie header from the terminal without echo")
	f.StringVar(&detailFlags.proxy, "proxy", "", "proxy URL")
	f.BoolVar(&detailFlags.skipDownloaded, "skip-downloaded", false, "skip notes already in the download record")
}
