package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hanpama/pagegraph/internal/config"
	"github.com/hanpama/pagegraph/internal/eventbus"
	"github.com/hanpama/pagegraph/internal/httptp"
	"github.com/hanpama/pagegraph/internal/onchain"
	"github.com/hanpama/pagegraph/internal/otel"
	"github.com/hanpama/pagegraph/internal/paginate"
	"github.com/hanpama/pagegraph/internal/server"
)

const rootUsage = `pagegraph: paginated GraphQL traversal & onchain graph tools

USAGE:
  pagegraph <command> [flags]

COMMANDS:
  paginate         Run a query and page through every branch of it
  graph            Build the ranked onchain graph of an identity
  serve            Serve onchain graphs over HTTP
  help             Show help for any command

Every command reads the API key from AIRSTACK_API_KEY unless -api-key or the
config file sets it.
`

const commonUsage = `  -config <file>                      YAML config file
  -endpoint <url>                     GraphQL endpoint (default: https://api.airstack.xyz/gql)
  -api-key <key>                      Airstack API key
  -timeout <duration>                 Per round trip timeout (default: 60s)
  -verbose                            Log debug output to stderr
`

const paginateUsage = `paginate FLAGS:
  -query <file>                       Query document, "-" for stdin (required)
  -vars <json>                        Variables as a JSON object
  -pages <n>                          Follow-up pages to fetch after the first (default: 10)
  -direction next|prev                Direction of the follow-up pages (default: next)
` + commonUsage

const graphUsage = `graph FLAGS:
  -identity <id>                      Address, ENS name or social handle (required)
  -top <n>                            Print only the n best ranked profiles
  -concurrent                         Collect the categories in parallel
` + commonUsage

const serveUsage = `serve FLAGS:
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout (default: 2m)
  -server.max-body-bytes <n>          Request body limit
  -server.cors <origin>               Allowed CORS origin. Repeatable
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: pagegraph)
  -concurrent                         Collect the categories in parallel
` + commonUsage

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("pagegraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "paginate":
		return cmdPaginate(cmdArgs, os.Stdout)
	case "graph":
		return cmdGraph(cmdArgs, os.Stdout)
	case "serve":
		return cmdServe(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "paginate":
		fmt.Print(paginateUsage)
	case "graph":
		fmt.Print(graphUsage)
	case "serve":
		fmt.Print(serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// commonFlags are accepted by every command. They override the config file
// only when given on the command line.
type commonFlags struct {
	configPath string
	endpoint   string
	apiKey     string
	timeout    time.Duration
	verbose    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file")
	fs.StringVar(&c.endpoint, "endpoint", "", "GraphQL endpoint")
	fs.StringVar(&c.apiKey, "api-key", "", "Airstack API key")
	fs.DurationVar(&c.timeout, "timeout", 0, "Per round trip timeout")
	fs.BoolVar(&c.verbose, "verbose", false, "Log debug output")
}

// load reads the config file, then applies the environment and the flags
// that were set explicitly.
func (c *commonFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "endpoint":
			cfg.Endpoint = c.endpoint
		case "api-key":
			cfg.APIKey = c.apiKey
		case "timeout":
			cfg.Timeout = c.timeout
		case "concurrent":
			cfg.Concurrent = f.Value.String() == "true"
		}
	})
	return cfg, nil
}

func (c *commonFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newClient(cfg *config.Config, logger *slog.Logger) (*paginate.Client, *httptp.Transport) {
	tp := httptp.New(cfg.TransportOptions()...)
	return paginate.NewClient(tp, paginate.WithLogger(logger)), tp
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// pageOutput is one line of paginate's output.
type pageOutput struct {
	Page        int                       `json:"page"`
	Query       string                    `json:"query"`
	Data        map[string]any            `json:"data"`
	PageInfo    map[string]map[string]any `json:"pageInfo"`
	HasNextPage bool                      `json:"hasNextPage"`
	HasPrevPage bool                      `json:"hasPrevPage"`
}

func cmdPaginate(args []string, out io.Writer) error {
	var common commonFlags
	queryFile := ""
	varsJSON := ""
	pages := 10
	direction := string(paginate.Next)

	fs := flag.NewFlagSet("paginate", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	common.register(fs)
	fs.StringVar(&queryFile, "query", queryFile, "Query document")
	fs.StringVar(&varsJSON, "vars", varsJSON, "Variables JSON")
	fs.IntVar(&pages, "pages", pages, "Follow-up pages")
	fs.StringVar(&direction, "direction", direction, "next or prev")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, paginateUsage)
		return err
	}
	if queryFile == "" {
		fmt.Fprint(os.Stderr, paginateUsage)
		return fmt.Errorf("-query is required")
	}
	d := paginate.Direction(direction)
	if d != paginate.Next && d != paginate.Prev {
		return fmt.Errorf("invalid -direction %q", direction)
	}

	var query []byte
	var err error
	if queryFile == "-" {
		query, err = io.ReadAll(os.Stdin)
	} else {
		query, err = os.ReadFile(queryFile)
	}
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	vars := map[string]any{}
	if varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &vars); err != nil {
			return fmt.Errorf("invalid -vars: %w", err)
		}
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	client, tp := newClient(cfg, common.logger())
	defer tp.Close()

	ctx := context.Background()
	enc := json.NewEncoder(out)
	page, err := client.ExecutePaginated(ctx, string(query), vars)
	for i := 0; ; i++ {
		if err != nil {
			return err
		}
		if err := enc.Encode(toPageOutput(i, page)); err != nil {
			return err
		}
		more := page.HasNextPage
		if d == paginate.Prev {
			more = page.HasPrevPage
		}
		if i >= pages || !more {
			return nil
		}
		page, err = page.Advance(ctx, d)
	}
}

func toPageOutput(i int, p *paginate.Page) pageOutput {
	info := make(map[string]map[string]any, len(p.PageInfo))
	for key, pi := range p.PageInfo {
		info[key] = map[string]any{"nextCursor": pi.NextCursor, "prevCursor": pi.PrevCursor}
	}
	return pageOutput{
		Page:        i,
		Query:       p.Query,
		Data:        p.Data,
		PageInfo:    info,
		HasNextPage: p.HasNextPage,
		HasPrevPage: p.HasPrevPage,
	}
}

func cmdGraph(args []string, out io.Writer) error {
	var common commonFlags
	identity := ""
	top := 0
	concurrent := false

	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	common.register(fs)
	fs.StringVar(&identity, "identity", identity, "Identity")
	fs.IntVar(&top, "top", top, "Best ranked profiles to print")
	fs.BoolVar(&concurrent, "concurrent", concurrent, "Collect categories in parallel")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, graphUsage)
		return err
	}
	if identity == "" {
		fmt.Fprint(os.Stderr, graphUsage)
		return fmt.Errorf("-identity is required")
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := common.logger()
	client, tp := newClient(cfg, logger)
	defer tp.Close()

	fetcher := onchain.NewFetcher(client, onchain.WithLogger(logger), onchain.WithConcurrency(cfg.Concurrent))
	ranked, err := fetcher.Graph(context.Background(), identity, cfg.ScoreWeights())
	if err != nil && len(ranked) == 0 {
		return err
	}
	if err != nil {
		logger.Warn("onchain graph is partial", "error", err)
	}
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}

func cmdServe(args []string) error {
	var common commonFlags
	var cors stringListFlag
	addr := ""
	pretty := false
	timeout := time.Duration(0)
	maxBody := int64(0)
	otelEndpoint := ""
	otelService := ""
	concurrent := false

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	common.register(fs)
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body-bytes", maxBody, "Request body limit")
	fs.Var(&cors, "server.cors", "Allowed CORS origin")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	fs.BoolVar(&concurrent, "concurrent", concurrent, "Collect categories in parallel")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server.addr":
			cfg.Server.Addr = addr
		case "server.pretty":
			cfg.Server.Pretty = pretty
		case "server.timeout":
			cfg.Server.Timeout = timeout
		case "server.max-body-bytes":
			cfg.Server.MaxBodyBytes = maxBody
		case "server.cors":
			cfg.Server.CORSOrigins = cors
		case "otel.endpoint":
			cfg.Otel.Endpoint = otelEndpoint
		case "otel.service":
			cfg.Otel.Service = otelService
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	logger := common.logger()
	client, tp := newClient(cfg, logger)
	defer tp.Close()
	fetcher := onchain.NewFetcher(client, onchain.WithLogger(logger), onchain.WithConcurrency(cfg.Concurrent))

	var sopts []server.Option
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		sopts = append(sopts, server.WithTimeout(cfg.Server.Timeout))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h := server.New(fetcher, cfg.ScoreWeights(), sopts...)

	mux := http.NewServeMux()
	mux.Handle("/onchain-graph", h)

	log.Printf("onchain graph server listening on %s", cfg.Server.Addr)
	return http.ListenAndServe(cfg.Server.Addr, mux)
}
