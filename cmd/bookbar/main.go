package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/JohnDeved/bookbar/internal/cache"
	"github.com/JohnDeved/bookbar/internal/catalog"
	"github.com/JohnDeved/bookbar/internal/client"
	"github.com/JohnDeved/bookbar/internal/config"
	"github.com/JohnDeved/bookbar/internal/logger"
	"github.com/JohnDeved/bookbar/internal/nav"
	"github.com/JohnDeved/bookbar/internal/prefs"
	"github.com/JohnDeved/bookbar/internal/session"
	"github.com/JohnDeved/bookbar/internal/tui"
	"github.com/JohnDeved/bookbar/internal/util"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bookbar [url]",
		Short: "A terminal reader for chaptered online books",
		Long: `bookbar - Read a book published as one web page per chapter, with a
table of contents, previous/next navigation and full-text search across
every chapter, directly in your terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRead,
	}

	readCmd := &cobra.Command{
		Use:   "read [url]",
		Short: "Open the interactive reader at a chapter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRead,
	}

	tocCmd := &cobra.Command{
		Use:   "toc [url]",
		Short: "Print the table of contents",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runToc,
	}
	tocCmd.Flags().Bool("json", false, "Output JSON")

	navCmd := &cobra.Command{
		Use:   "nav [url]",
		Short: "Show previous/next navigation for a chapter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runNav,
	}
	navCmd.Flags().Bool("json", false, "Output JSON")

	searchCmd := &cobra.Command{
		Use:   "search <url> <query>",
		Short: "Search every chapter of a book",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSearch,
	}
	searchCmd.Flags().Bool("json", false, "Output JSON")
	searchCmd.Flags().Bool("no-wait", false, "Do not prefetch chapters, only search the page at url")

	showCmd := &cobra.Command{
		Use:   "show [url]",
		Short: "Print a chapter as Markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
	showCmd.Flags().StringP("query", "q", "", "Highlight matches of this term")

	prefsCmd := &cobra.Command{
		Use:   "prefs [key [value]]",
		Short: "Read or change reader preferences (font, size, theme)",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runPrefs,
	}
	prefsCmd.Flags().Bool("json", false, "Output JSON")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE:  runConfig,
	}
	configCmd.Flags().Bool("init", false, "Write a default config file if none exists")

	rootCmd.AddCommand(readCmd, tocCmd, navCmd, searchCmd, showCmd, prefsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *client.Client {
	c := client.New(cfg.BaseURL, cfg.RequestsPerSecond, cfg.FetchTimeout)
	c.SetUserAgent(cfg.UserAgent)
	return c
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(logger.Config{
		Writer: os.Stderr,
		Format: cfg.LogFormat,
		Level:  logger.ParseLevel(cfg.LogLevel),
	})
}

// resolveTarget picks the book and the chapter to open. An explicit argument
// wins; otherwise the reader resumes the last book, then falls back to the
// configured base URL.
func resolveTarget(c *client.Client, db *prefs.DB, args []string) (bookURL, startURL string, err error) {
	if len(args) > 0 {
		u, err := c.Resolve(args[0])
		if err != nil {
			return "", "", err
		}
		return u, u, nil
	}
	if db != nil {
		b, ok, err := db.LastBook()
		if err != nil {
			return "", "", fmt.Errorf("reading last book: %w", err)
		}
		if ok {
			start := b.Current
			if start == "" {
				start = b.URL
			}
			return b.URL, start, nil
		}
	}
	if c.BaseURL() != "" {
		return c.BaseURL(), c.BaseURL(), nil
	}
	return "", "", errors.New("no book given: pass a chapter URL or set base_url in the config")
}

// openPrefs opens the preference store. Failure is not fatal for reading.
func openPrefs() *prefs.DB {
	db, err := prefs.OpenDB(config.PrefsDBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open preferences: %v\n", err)
		return nil
	}
	return db
}

// openSession loads the config and opens the book for a one-shot command.
func openSession(ctx context.Context, args []string) (*session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	c := newClient(cfg)

	db := openPrefs()
	if db != nil {
		defer db.Close()
	}
	_, start, err := resolveTarget(c, db, args)
	if err != nil {
		return nil, err
	}
	return session.Open(ctx, c, start, newLogger(cfg))
}

func runRead(cmd *cobra.Command, args []string) error {
	if !isInteractiveTerminal() {
		return runShow(cmd, args)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newClient(cfg)

	db := openPrefs()
	if db != nil {
		defer db.Close()
	}

	bookURL, start, err := resolveTarget(c, db, args)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so log to a file.
	logFile, err := logger.OpenFile(config.LogPath())
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	log := logger.New(logger.Config{
		Writer:  logFile,
		Format:  cfg.LogFormat,
		Level:   logger.ParseLevel(cfg.LogLevel),
		NoColor: true,
	})

	fmt.Fprintf(os.Stderr, "Opening %s...\n", start)
	s, err := session.Open(context.Background(), c, start, log)
	if err != nil {
		return err
	}
	defer s.Close()

	p := prefs.Defaults()
	if db != nil {
		if p, err = db.Load(); err != nil {
			log.Warn("loading preferences", "error", err)
			p = prefs.Defaults()
		}
		if err := db.RememberBook(bookURL, s.Current()); err != nil {
			log.Warn("remembering book", "error", err)
		}
	}

	log.Info("reader started", "book", bookURL, "chapters", s.Catalog().Len())
	return tui.Run(s, db, p, log, bookURL)
}

func runToc(cmd *cobra.Command, args []string) error {
	s, err := openSession(context.Background(), args)
	if err != nil {
		return err
	}
	defer s.Close()
	cat := s.Catalog()

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cat)
	}

	printParts(cat, cat.Flatten(), s.Current())
	fmt.Fprintf(os.Stderr, "\n%d chapters in %d parts.\n", cat.Len(), len(cat.Parts))
	return nil
}

// printParts lists chapters grouped under their part names, marking current.
func printParts(cat *catalog.Catalog, chapters []catalog.Chapter, current string) {
	visible := make(map[string]bool, len(chapters))
	for _, ch := range chapters {
		visible[ch.Ref] = true
	}
	for _, p := range cat.Parts {
		printed := false
		for _, ch := range p.Chapters {
			if !visible[ch.Ref] {
				continue
			}
			if !printed {
				fmt.Println(p.Name)
				printed = true
			}
			marker := " "
			if ch.Ref == current {
				marker = "*"
			}
			fmt.Printf("%s %3d. %-50s  %s\n", marker, ch.Number, ch.Title, util.ShortRef(ch.Ref, 40))
		}
	}
}

func runNav(cmd *cobra.Command, args []string) error {
	s, err := openSession(context.Background(), args)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.Nav()
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	printNav(info)
	return nil
}

func printNav(info nav.Info) {
	fmt.Printf("Chapter %d/%d: %s (%s)\n", info.Position+1, info.Total, info.Current.Title, info.Current.PartName)
	if info.Prev.Active {
		fmt.Printf("  Previous:  %s\n", info.Prev.Ref)
	}
	if !info.Next.Active {
		fmt.Printf("  %s\n", nav.NoNextChapterNotice)
		return
	}
	fmt.Printf("  %s:  %s\n", info.Next.Label, info.Next.Ref)
	fmt.Printf("  Heading:   %s\n", info.Next.Heading)
	if info.Next.Summary.Visible {
		fmt.Printf("  Summary:   %s\n", info.Next.Summary.Text)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args[1:], " ")
	jsonMode, _ := cmd.Flags().GetBool("json")
	noWait, _ := cmd.Flags().GetBool("no-wait")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s, err := openSession(ctx, args[:1])
	if err != nil {
		return err
	}
	defer s.Close()

	if !noWait {
		bar := progressbar.NewOptions(s.Catalog().Len(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Prefetching chapters"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		s.Cache().SetOnChange(func(st cache.Stats) {
			_ = bar.Set(st.Entries + int(st.Failed))
		})
		select {
		case <-s.StartPrefetch():
			_ = bar.Finish()
			if st := s.Cache().Stats(); st.Failed > 0 {
				fmt.Fprintf(os.Stderr, "%d chapters could not be fetched.\n", st.Failed)
			}
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\nInterrupted, searching what was fetched so far.")
		}
	}

	res := s.Query(query)
	chapters := res.VisibleChapters(s.Catalog())
	st := s.Cache().Stats()

	if jsonMode {
		if chapters == nil {
			chapters = []catalog.Chapter{}
		}
		out := struct {
			Query     string            `json:"query"`
			Term      string            `json:"term"`
			NoResults bool              `json:"no_results"`
			Matches   int               `json:"matches_on_page"`
			Cached    int               `json:"cached_chapters"`
			Count     int               `json:"count"`
			Chapters  []catalog.Chapter `json:"chapters"`
		}{
			Query:     query,
			Term:      res.Term,
			NoResults: res.NoResults,
			Matches:   res.Matches,
			Cached:    st.Entries,
			Count:     len(chapters),
			Chapters:  chapters,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if res.NoResults {
		fmt.Println("No results found.")
		return nil
	}

	printParts(s.Catalog(), chapters, s.Current())
	fmt.Fprintf(os.Stderr, "\n%d chapters match (%d of %d cached, %s).\n",
		len(chapters), st.Entries, s.Catalog().Len(), util.FormatBytes(st.Bytes))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")

	s, err := openSession(context.Background(), args)
	if err != nil {
		return err
	}
	defer s.Close()

	if query != "" {
		res := s.Query(query)
		fmt.Fprintf(os.Stderr, "%d matches on this page.\n", res.Matches)
	}

	body, err := s.Document().RegionHTML("strong")
	if err != nil {
		return err
	}
	markdown, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return fmt.Errorf("converting chapter to markdown: %w", err)
	}
	fmt.Println(strings.TrimSpace(markdown))

	if info, err := s.Nav(); err == nil {
		fmt.Println()
		fmt.Println("---")
		printNav(info)
	}
	return nil
}

func runPrefs(cmd *cobra.Command, args []string) error {
	db, err := prefs.OpenDB(config.PrefsDBPath())
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}
	defer db.Close()

	if len(args) == 2 {
		value, err := db.Set(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", strings.ToLower(args[0]), value)
		return nil
	}

	p, err := db.Load()
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if len(args) == 1 {
		value, err := p.Get(args[0])
		if err != nil {
			return err
		}
		if jsonMode {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{strings.ToLower(args[0]): value})
		}
		fmt.Println(value)
		return nil
	}

	if jsonMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	for _, key := range prefs.Keys() {
		value, _ := p.Get(key)
		fmt.Printf("  %-6s %-8s (%s)\n", key+":", value, strings.Join(prefs.Values(key), "|"))
	}
	return nil
}

func runConfig(cmd *cobra.Command, _ []string) error {
	path := config.ConfigPath()

	initMode, _ := cmd.Flags().GetBool("init")
	if initMode {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Config already exists at %s\n", path)
		} else {
			if err := config.DefaultConfig().Save(path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", path, out)
	fmt.Printf("# preferences: %s\n# log: %s\n", config.PrefsDBPath(), config.LogPath())
	return nil
}

func isInteractiveTerminal() bool {
	inInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	outInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (inInfo.Mode()&os.ModeCharDevice) != 0 && (outInfo.Mode()&os.ModeCharDevice) != 0
}
