package main

import (
	"strings"

	"github.com/spf13/cobra"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/models"
	"xhscrawler/pkg/spider"
	"xhscrawler/pkg/xhs"
)

// crawlFlags are shared by every fetch command
type crawlFlags struct {
	save         string
	excelName    string
	cookies      string
	promptCookie bool
	proxy        string
}

func (f *crawlFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.save, "save", "s", "none", "save choice: none, media, media-image, media-video, excel, all")
	cmd.Flags().StringVar(&f.excelName, "excel-name", "", "export file name without extension")
	cmd.Flags().StringVar(&f.cookies, "cookies", "", "cookie header overriding the configured default")
	cmd.Flags().BoolVar(&f.promptCookie, "prompt-cookie", false, "read the cookie header from the terminal without echo")
	cmd.Flags().StringVar(&f.proxy, "proxy", "", "proxy URL for upstream requests")
}

func (f *crawlFlags) options(cmd *cobra.Command) (spider.Options, error) {
	choice, err := models.ParseSaveChoice(f.save)
	if err != nil {
		return spider.Options{}, err
	}
	cookies := f.cookies
	if f.promptCookie && cookies == "" {
		if cookies, err = promptSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Cookie: "); err != nil {
			return spider.Options{}, err
		}
	}
	opts := spider.Options{
		SaveChoice: choice,
		ExcelName:  strings.TrimSpace(f.excelName),
		Cookies:    cookies,
	}
	if f.proxy != "" {
		opts.Proxies = xhs.Proxies{"http": f.proxy, "https": f.proxy}
	}
	return opts, nil
}

// spiderRun loads config, builds the crawler and calls run with it
func spiderRun(f *crawlFlags, run func(cmd *cobra.Command, args []string, svc *spider.Service, opts spider.Options) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		opts, err := f.options(cmd)
		if err != nil {
			return err
		}
		cfg, log, err := loadConfig(nil)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		if a.spider == nil {
			return xerrors.New(xerrors.KindDisabled, "spider_xhs is disabled in the configuration")
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		cmd.SetContext(ctx)
		return run(cmd, args, a.spider, opts)
	}
}

func newNotesCmd() *cobra.Command {
	f := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "notes <url>...",
		Short: "Fetch notes by URL",
		Example: `  xhscrawler notes "https://www.xiaohongshu.com/explore/64f1...?xsec_token=AB..." --save all
  xhscrawler notes url1 url2 --save excel --excel-name picks`,
		Args: cobra.MinimumNArgs(1),
		RunE: spiderRun(f, func(cmd *cobra.Command, args []string, svc *spider.Service, opts spider.Options) error {
			res, err := svc.FetchNotes(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			return printNotes(cmd.OutOrStdout(), res)
		}),
	}
	f.register(cmd)
	return cmd
}

func newUserCmd() *cobra.Command {
	f := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "user <profile-url>",
		Short: "Fetch every note a user has posted",
		Args:  cobra.ExactArgs(1),
		RunE: spiderRun(f, func(cmd *cobra.Command, args []string, svc *spider.Service, opts spider.Options) error {
			res, err := svc.FetchUserNotes(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printNotes(cmd.OutOrStdout(), res)
		}),
	}
	f.register(cmd)
	return cmd
}

func newUsersCmd() *cobra.Command {
	f := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "users <profile-url>...",
		Short: "Fetch user profiles",
		Args:  cobra.MinimumNArgs(1),
		RunE: spiderRun(f, func(cmd *cobra.Command, args []string, svc *spider.Service, opts spider.Options) error {
			res, err := svc.FetchUsers(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			return printUsers(cmd.OutOrStdout(), res)
		}),
	}
	f.register(cmd)
	return cmd
}

type searchFlags struct {
	requireNum int
	filter     xhs.SearchFilter
	latitude   float64
	longitude  float64
}

func newSearchCmd() *cobra.Command {
	f := &crawlFlags{}
	sf := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search notes by keyword",
		Example: `  xhscrawler search 露营装备 --num 50 --sort 2 --save excel
  xhscrawler search 咖啡 --distance 2 --lat 31.23 --lon 121.47`,
		Args: cobra.ExactArgs(1),
		RunE: spiderRun(f, func(cmd *cobra.Command, args []string, svc *spider.Service, opts spider.Options) error {
			q := spider.SearchQuery{Query: args[0], RequireNum: sf.requireNum, Filter: sf.filter}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				q.Geo = map[string]any{"latitude": sf.latitude, "longitude": sf.longitude}
			} else if sf.filter.NeedsGeo() {
				return xerrors.New(xerrors.KindInvalidInput, "--lat and --lon are required with --distance 1 or 2")
			}
			res, err := svc.SearchNotes(cmd.Context(), q, opts)
			if err != nil {
				return err
			}
			return printNotes(cmd.OutOrStdout(), res)
		}),
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&sf.requireNum, "num", "n", 10, "number of notes to collect")
	cmd.Flags().IntVar(&sf.filter.SortType, "sort", 0, "0 general, 1 newest, 2 most liked, 3 most commented, 4 most collected")
	cmd.Flags().IntVar(&sf.filter.NoteType, "type", 0, "0 any, 1 video, 2 image")
	cmd.Flags().IntVar(&sf.filter.NoteTime, "time", 0, "0 any, 1 day, 2 week, 3 half year")
	cmd.Flags().IntVar(&sf.filter.NoteRange, "range", 0, "0 any, 1 seen, 2 unseen, 3 followed")
	cmd.Flags().IntVar(&sf.filter.PosDistance, "distance", 0, "0 any, 1 same city, 2 nearby")
	cmd.Flags().Float64Var(&sf.latitude, "lat", 0, "latitude for distance filters")
	cmd.Flags().Float64Var(&sf.longitude, "lon", 0, "longitude for distance filters")
	return cmd
}

func newCommentsCmd() *cobra.Command {
	f := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "comments <note-url>",
		Short: "Fetch the top-level comments of a note",
		Args:  cobra.ExactArgs(1),
		RunE: spiderRun(f, func(cmd *cobra.Command, args []string, svc *spider.Service, opts spider.Options) error {
			res, err := svc.FetchNoteComments(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printComments(cmd.OutOrStdout(), res)
		}),
	}
	f.register(cmd)
	return cmd
}

func newPublishedCmd() *cobra.Command {
	f := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "published",
		Short: "List the notes published by the cookie's creator account",
		Args:  cobra.NoArgs,
		RunE: spiderRun(f, func(cmd *cobra.Command, args []string, svc *spider.Service, opts spider.Options) error {
			items, err := svc.FetchPublishedNotes(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printPublished(cmd.OutOrStdout(), items)
		}),
	}
	f.register(cmd)
	return cmd
}

func init() {
	rootCmd.AddCommand(
		newNotesCmd(),
		newUserCmd(),
		newUsersCmd(),
		newSearchCmd(),
		newCommentsCmd(),
		newPublishedCmd(),
	)
}
