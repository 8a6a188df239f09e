package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/fetch"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/mcp"
	"github.com/hpungsan/shelf/internal/ops"
	"github.com/hpungsan/shelf/internal/web"
)

// runtime carries what commands share once the global flags are parsed.
type runtime struct {
	stdout io.Writer
	stderr io.Writer

	// fetcher overrides the HTTP fetch pipeline (tests).
	fetcher ops.Producer

	baseDir string
	cfg     *config.Config
	shelf   *ops.Shelf
}

// open resolves the base directory, loads config and opens the shelf.
func (rt *runtime) open(c *cli.Context) error {
	baseDir, err := config.ResolveBaseDir(c.String("home"))
	if err != nil {
		return fmt.Errorf("could not determine base directory: %w", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}
	logger.SetupWriter(rt.stderr, cfg.LogLevel, cfg.LogFormat)

	fetcher := rt.fetcher
	if fetcher == nil {
		fetcher = fetch.New(cfg)
	}

	sh, err := ops.Open(baseDir, cfg, fetcher)
	if err != nil {
		return fmt.Errorf("failed to open shelf: %w", err)
	}

	rt.baseDir = baseDir
	rt.cfg = cfg
	rt.shelf = sh
	return nil
}

func (rt *runtime) close() error {
	if rt.shelf == nil {
		return nil
	}
	err := rt.shelf.Close()
	rt.shelf = nil
	return err
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:      "shelf",
		Usage:     "Save web pages as markdown and search them",
		Version:   Version,
		Writer:    rt.stdout,
		ErrWriter: rt.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "home", Usage: "Storage directory (default: $SHELF_HOME or ~/.shelf)"},
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
			jsonFlag(),
		},
		Before: func(c *cli.Context) error {
			// Help and version need no storage.
			if c.NArg() == 0 || c.Args().First() == "help" || c.Args().First() == "version" {
				return nil
			}
			return rt.open(c)
		},
		After: func(_ *cli.Context) error {
			return rt.close()
		},
		Commands: []*cli.Command{
			collectionCmd(rt),
			createCmd(rt),
			addCmd(rt),
			lsCmd(rt),
			latestCmd(rt),
			showCmd(rt),
			rmCmd(rt),
			searchCmd(rt),
			inventoryCmd(rt),
			reindexCmd(rt),
			serveCmd(rt),
			openCmd(rt),
			mcpCmd(rt),
			configCmd(rt),
			versionCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"}
}

// collectionCmd creates the collection command group.
func collectionCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "collection",
		Usage: "Manage collections",
		Subcommands: []*cli.Command{
			createCmd(rt),
		},
	}
}

// createCmd creates a collection. It is mounted both as "collection create"
// and as a top-level "create".
func createCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create an empty collection",
		ArgsUsage: "NAME",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: shelf create NAME"))
			}
			out, err := ops.CreateCollection(c.Context, rt.shelf, ops.CreateCollectionInput{Name: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return newPrinter(rt.stdout, c.Bool("json")).created(out)
		},
	}
}

// addCmd creates the add command.
func addCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Fetch URLs and save them to a collection (created if missing)",
		ArgsUsage: "COLLECTION URL...",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: shelf add COLLECTION URL..."))
			}
			args := c.Args().Slice()
			out, err := ops.Add(c.Context, rt.shelf, ops.AddInput{
				Collection: args[0],
				URLs:       args[1:],
			})
			if err != nil {
				return outputError(err)
			}

			p := newPrinter(rt.stdout, c.Bool("json"))
			if err := p.added(out); err != nil {
				return err
			}
			if len(out.Errors) > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d URLs failed", len(out.Errors), len(args)-1), 1)
			}
			return nil
		},
	}
}

// lsCmd creates the ls command.
func lsCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List collections, or the documents of one collection",
		ArgsUsage: "[COLLECTION]",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max documents to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			p := newPrinter(rt.stdout, c.Bool("json"))

			if c.NArg() == 0 {
				out, err := ops.ListCollections(c.Context, rt.shelf, ops.ListCollectionsInput{})
				if err != nil {
					return outputError(err)
				}
				return p.collections(out)
			}

			out, err := ops.ListDocuments(c.Context, rt.shelf, ops.ListDocumentsInput{
				Collection: c.Args().First(),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return p.documents(out)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "latest",
		Usage:     "Show the most recently added document of a collection",
		ArgsUsage: "COLLECTION",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("usage: shelf latest COLLECTION"))
			}
			out, err := ops.Latest(c.Context, rt.shelf, ops.LatestInput{Collection: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return newPrinter(rt.stdout, c.Bool("json")).latest(out)
		},
	}
}

// showCmd creates the show command.
func showCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a document's markdown (ID is a slug, filename or position)",
		ArgsUsage: "COLLECTION ID",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{Name: "no-body", Usage: "Print metadata only"},
			&cli.BoolFlag{Name: "outline", Usage: "Print the document's headings instead of its body"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: shelf show COLLECTION ID"))
			}
			input := ops.ShowInput{
				Collection: c.Args().Get(0),
				ID:         c.Args().Get(1),
			}
			if c.Bool("no-body") {
				includeBody := false
				input.IncludeBody = &includeBody
			}

			out, err := ops.Show(c.Context, rt.shelf, input)
			if err != nil {
				return outputError(err)
			}
			p := newPrinter(rt.stdout, c.Bool("json"))
			if c.Bool("outline") {
				return p.outline(out)
			}
			return p.show(out)
		},
	}
}

// rmCmd creates the rm command.
func rmCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove a document, or a whole collection when no ID is given",
		ArgsUsage: "COLLECTION [ID]",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deleting a whole collection"},
		},
		Action: func(c *cli.Context) error {
			p := newPrinter(rt.stdout, c.Bool("json"))

			switch c.NArg() {
			case 1:
				if !c.Bool("yes") {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf(
						"refusing to delete collection %q without --yes", c.Args().First())))
				}
				out, err := ops.Destroy(c.Context, rt.shelf, ops.DestroyInput{Collection: c.Args().First()})
				if err != nil {
					return outputError(err)
				}
				return p.destroyed(out)
			case 2:
				out, err := ops.Remove(c.Context, rt.shelf, ops.RemoveInput{
					Collection: c.Args().Get(0),
					ID:         c.Args().Get(1),
				})
				if err != nil {
					return outputError(err)
				}
				return p.removed(out)
			default:
				return outputError(errors.NewInvalidRequest("usage: shelf rm COLLECTION [ID]"))
			}
		},
	}
}

// searchCmd creates the search command.
func searchCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Case-insensitive substring search over saved documents",
		ArgsUsage: "[COLLECTION] QUERY...",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Search one collection"},
		},
		Action: func(c *cli.Context) error {
			collection, words := splitSearchArgs(rt, c.String("collection"), c.Args().Slice())
			out, err := ops.Search(c.Context, rt.shelf, ops.SearchInput{
				Query:      strings.Join(words, " "),
				Collection: collection,
			})
			if err != nil {
				return outputError(err)
			}
			return newPrinter(rt.stdout, c.Bool("json")).search(out)
		},
	}
}

// splitSearchArgs picks the collection to search. With no --collection and at
// least two arguments, a first argument naming an existing collection is the
// collection and the rest is the query.
func splitSearchArgs(rt *runtime, flag string, args []string) (string, []string) {
	if flag != "" || len(args) < 2 {
		return flag, args
	}
	if rt.shelf.Store.Exists(args[0]) {
		return args[0], args[1:]
	}
	return "", args
}

// inventoryCmd creates the inventory command.
func inventoryCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "List documents across all collections, newest first",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Filter by collection"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Filter by title substring"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultInventoryLimit, Usage: "Max documents to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			input := ops.InventoryInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}
			if collection := c.String("collection"); collection != "" {
				input.Collection = &collection
			}
			if title := c.String("title"); title != "" {
				input.TitleQuery = &title
			}

			out, err := ops.Inventory(c.Context, rt.shelf, input)
			if err != nil {
				return outputError(err)
			}
			return newPrinter(rt.stdout, c.Bool("json")).inventory(out)
		},
	}
}

// reindexCmd creates the reindex command.
func reindexCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the global index from the collection logs",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{Name: "search", Usage: "Also rebuild the search index"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Reindex(c.Context, rt.shelf, ops.ReindexInput{Search: c.Bool("search")})
			if err != nil {
				return outputError(err)
			}
			return newPrinter(rt.stdout, c.Bool("json")).reindexed(out)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI",
		Flags: serveFlags(),
		Action: func(c *cli.Context) error {
			return rt.serveUI(c, nil)
		},
	}
}

// openCmd creates the open command.
func openCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Run the web UI and open it in the browser",
		Flags: serveFlags(),
		Action: func(c *cli.Context) error {
			return rt.serveUI(c, func(url string) {
				if err := openBrowser(url); err != nil {
					logger.WithComponent("cli").Warn("could not open browser", "url", url, "error", err)
				}
			})
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (default from config)"},
		&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config)"},
	}
}

// serveUI runs the web server until interrupted. onStart, if set, is called
// with the UI address shortly after the listener starts.
func (rt *runtime) serveUI(c *cli.Context, onStart func(url string)) error {
	if c.IsSet("port") {
		rt.cfg.Port = c.Int("port")
	}
	if c.IsSet("bind") {
		rt.cfg.Bind = c.String("bind")
	}

	srv, err := web.NewServer(rt.shelf, rt.cfg, Version)
	if err != nil {
		return outputError(errors.NewInternal(err))
	}
	if onStart != nil {
		url := uiURL(rt.cfg.Bind, rt.cfg.Port)
		timer := time.AfterFunc(browserDelay, func() { onStart(url) })
		defer timer.Stop()
	}
	return web.Run(c.Context, srv)
}

// mcpCmd creates the mcp command.
func mcpCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(_ *cli.Context) error {
			return mcp.Run(rt.shelf, rt.cfg, Version)
		},
	}
}

// configCmd creates the config command.
func configCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Open config.json in $EDITOR (written with defaults if missing)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "path", Usage: "Print the config file path and exit"},
		},
		Action: func(c *cli.Context) error {
			path := config.Path(rt.baseDir)
			if c.Bool("path") {
				_, err := fmt.Fprintln(rt.stdout, path)
				return err
			}

			if err := config.WriteDefault(rt.baseDir); err != nil {
				return outputError(errors.NewInternal(err))
			}

			editor := strings.Fields(rt.cfg.Editor)
			if len(editor) == 0 {
				return outputError(errors.NewInvalidRequest("no editor configured"))
			}
			cmd := exec.CommandContext(c.Context, editor[0], append(editor[1:], path)...)
			cmd.Stdin = os.Stdin
			cmd.Stdout = rt.stdout
			cmd.Stderr = rt.stderr
			if err := cmd.Run(); err != nil {
				return outputError(errors.NewInternal(fmt.Errorf("run editor: %w", err)))
			}
			return nil
		},
	}
}

// versionCmd creates the version command.
func versionCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version",
		Action: func(_ *cli.Context) error {
			_, err := fmt.Fprintf(rt.stdout, "shelf %s\n", Version)
			return err
		},
	}
}

// Helper functions

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
