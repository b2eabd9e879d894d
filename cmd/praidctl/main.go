// Command praidctl drives the web console from a terminal: upload files with a live
// progress bar, search, check service health and chat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"praid/internal/logger"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

const usage = `usage: praidctl [flags] <command> [args]

commands:
  upload <file>    upload an image or PDF and follow its progress
  search <query>   search the indexed corpus
  health           show the service dependency tree
  chat [question]  ask one question, or start an interactive session

flags:
`

type options struct {
	console    string
	timeout    time.Duration
	kind       string
	results    int
	refresh    bool
	session    string
	useContext bool
}

func main() {
	log := logger.New("praidctl").Function("main")

	var opts options
	flags := pflag.NewFlagSet("praidctl", pflag.ExitOnError)
	flags.StringVar(&opts.console, "console", envOr("PRAID_CONSOLE", "http://localhost:8080"), "web console base URL")
	flags.DurationVar(&opts.timeout, "timeout", 60*time.Second, "timeout for non-streaming requests")
	flags.StringVarP(&opts.kind, "kind", "k", "", "upload kind, image or pdf (guessed from the extension)")
	flags.IntVarP(&opts.results, "results", "n", 10, "number of search results")
	flags.BoolVar(&opts.refresh, "refresh", false, "probe the services now instead of reading the last snapshot")
	flags.StringVar(&opts.session, "session", "", "continue an existing chat session")
	flags.BoolVar(&opts.useContext, "context", false, "send the last search results as chat sources")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	c := newConsole(opts.console, opts.timeout)
	if err := run(ctx, c, opts, args[0], args[1:]); err != nil {
		log.Er("command failed", err, "command", args[0])
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, c *console, opts options, command string, args []string) error {
	switch command {
	case "upload":
		if len(args) != 1 {
			return fmt.Errorf("upload takes exactly one file")
		}
		return runUpload(ctx, c, opts, args[0])

	case "search":
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("search needs a query")
		}
		hits, err := c.search(ctx, query, opts.results)
		if err != nil {
			return err
		}
		printSearch(os.Stdout, hits)
		return nil

	case "health":
		root, err := c.health(ctx, opts.refresh)
		if err != nil {
			return err
		}
		printHealth(os.Stdout, root, 0)
		return nil

	case "chat":
		if len(args) == 0 {
			return chatREPL(ctx, c, opts.session, opts.useContext)
		}
		_, err := askOnce(ctx, c, os.Stdout, opts.session, strings.Join(args, " "), opts.useContext)
		return err

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runUpload(ctx context.Context, c *console, opts options, path string) error {
	kind := opts.kind
	if kind == "" {
		kind = "image"
		if strings.HasSuffix(strings.ToLower(path), ".pdf") {
			kind = "pdf"
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	line := newProgressLine(os.Stdout)
	result, err := c.upload(ctx, kind, path, line.update)
	line.done()
	if result != nil {
		printUpload(os.Stdout, result)
	}
	return err
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
