package onchain

import (
	"context"
	"log/slog"
	"time"

	"github.com/ohler55/ojg/jp"
	"golang.org/x/sync/errgroup"

	eventbus "github.com/hanpama/pagegraph/internal/eventbus"
	events "github.com/hanpama/pagegraph/internal/events"
	"github.com/hanpama/pagegraph/internal/paginate"
)

var (
	pathPoaps          = mustPath("$.Poaps.Poap[*]")
	pathVirtualEvent   = mustPath("$.poapEvent.isVirtualEvent")
	pathFollowings     = mustPath("$.SocialFollowings.Following[*].followingAddress")
	pathFollowers      = mustPath("$.SocialFollowers.Follower[*].followerAddress")
	pathTokenBalances  = mustPath("$.TokenBalances.TokenBalance[*]")
	pathTokenAddresses = mustPath("$.TokenBalances.TokenBalance[*].tokenAddress")
)

// Fetcher builds the onchain graph of an identity by paging through every
// category with a paginate.Client.
type Fetcher struct {
	client     *paginate.Client
	logger     *slog.Logger
	concurrent bool
}

type FetchOption func(*Fetcher)

// WithLogger sets the logger used for per-category diagnostics.
func WithLogger(l *slog.Logger) FetchOption { return func(f *Fetcher) { f.logger = l } }

// WithConcurrency collects the categories in parallel. Batches are still
// merged once, in category order, so the result does not change.
func WithConcurrency(on bool) FetchOption { return func(f *Fetcher) { f.concurrent = on } }

func NewFetcher(c *paginate.Client, opts ...FetchOption) *Fetcher {
	f := &Fetcher{client: c, logger: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// batch is every record one category yielded, with its formatter.
type batch struct {
	records []any
	format  Formatter
}

type collector func(ctx context.Context, identity string) (batch, error)

func (f *Fetcher) collectors() []collector {
	return []collector{
		f.poaps,
		f.follows(DappFarcaster, false),
		f.follows(DappLens, false),
		f.follows(DappFarcaster, true),
		f.follows(DappLens, true),
		f.transfers(false),
		f.transfers(true),
		f.nfts(ChainEthereum),
		f.nfts(ChainPolygon),
		f.nfts(ChainBase),
	}
}

// Fetch returns the unranked profiles related to identity. On failure it
// returns the profiles merged so far together with an *Error naming the
// failing category. In concurrent mode every category that completed is
// merged.
func (f *Fetcher) Fetch(ctx context.Context, identity string) ([]Profile, error) {
	if f.concurrent {
		return f.fetchConcurrent(ctx, identity)
	}
	var profiles []Profile
	for i, run := range f.collectors() {
		b, err := run(ctx, identity)
		if err != nil {
			return profiles, f.fail(ctx, Categories[i], err)
		}
		profiles = f.merge(ctx, profiles, b)
	}
	return profiles, nil
}

// Graph fetches and ranks the profiles related to identity. Partial results
// are ranked too when err is non-nil.
func (f *Fetcher) Graph(ctx context.Context, identity string, w Weights) ([]Profile, error) {
	profiles, err := f.Fetch(ctx, identity)
	return Rank(profiles, identity, w), err
}

func (f *Fetcher) fetchConcurrent(ctx context.Context, identity string) ([]Profile, error) {
	runs := f.collectors()
	batches := make([]*batch, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	for i, run := range runs {
		g.Go(func() error {
			b, err := run(gctx, identity)
			if err != nil {
				return f.fail(gctx, Categories[i], err)
			}
			batches[i] = &b
			return nil
		})
	}
	err := g.Wait()

	var profiles []Profile
	for _, b := range batches {
		if b != nil {
			profiles = f.merge(ctx, profiles, *b)
		}
	}
	return profiles, err
}

func (f *Fetcher) merge(ctx context.Context, profiles []Profile, b batch) []Profile {
	out := Merge(profiles, b.records, b.format)
	eventbus.Publish(ctx, events.CategoryFetched{
		Category: string(b.format.Category()),
		Records:  len(b.records),
		Profiles: len(out),
	})
	f.logger.DebugContext(ctx, "category merged",
		"category", b.format.Category(),
		"records", len(b.records),
		"profiles", len(out),
	)
	return out
}

func (f *Fetcher) fail(ctx context.Context, c Category, err error) error {
	eventbus.Publish(ctx, events.CategoryFetched{Category: string(c), Err: err})
	f.logger.WarnContext(ctx, "category failed", "category", c, "error", err)
	return &Error{Category: c, Err: err}
}

// traverse pages forward through query until no branch has a next page,
// calling visit with the data of every page.
func (f *Fetcher) traverse(ctx context.Context, query string, vars map[string]any, visit func(data map[string]any) error) error {
	start := time.Now()
	page, err := f.client.ExecutePaginated(ctx, query, vars)
	pages := 0
	for {
		if err != nil {
			return err
		}
		pages++
		if err := visit(page.Data); err != nil {
			return err
		}
		if !page.HasNextPage {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err = page.Next(ctx)
	}
	f.logger.DebugContext(ctx, "traversal done", "pages", pages, "elapsed", time.Since(start))
	return nil
}

func collect(x jp.Expr, records *[]any) func(map[string]any) error {
	return func(data map[string]any) error {
		*records = append(*records, x.Get(data)...)
		return nil
	}
}

func (f *Fetcher) poaps(ctx context.Context, identity string) (batch, error) {
	b := batch{format: PoapFormat{}}
	err := f.traverse(ctx, poapEventsQuery, map[string]any{"user": identity}, func(data map[string]any) error {
		var ids []any
		for _, p := range pathPoaps.Get(data) {
			if virtual, _ := first(pathVirtualEvent, p).(bool); virtual {
				continue
			}
			if id := str(pathEventID, p); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		return f.traverse(ctx, poapHoldersQuery, map[string]any{"eventIds": ids}, collect(pathPoaps, &b.records))
	})
	return b, err
}

func (f *Fetcher) follows(dapp string, followers bool) collector {
	return func(ctx context.Context, identity string) (batch, error) {
		b := batch{format: FollowFormat{Dapp: dapp, Followers: followers}}
		query, path := socialFollowingsQuery, pathFollowings
		if followers {
			query, path = socialFollowersQuery, pathFollowers
		}
		vars := map[string]any{"user": identity, "dappName": dapp}
		err := f.traverse(ctx, query, vars, collect(path, &b.records))
		return b, err
	}
}

func (f *Fetcher) transfers(received bool) collector {
	paths := make([]jp.Expr, len(transferBranches))
	for i, branch := range transferBranches {
		paths[i] = mustPath("$." + branch + ".TokenTransfer[*].account")
	}
	return func(ctx context.Context, identity string) (batch, error) {
		b := batch{format: TransferFormat{Received: received}}
		err := f.traverse(ctx, transfersQuery(received), map[string]any{"user": identity}, func(data map[string]any) error {
			for _, x := range paths {
				b.records = append(b.records, x.Get(data)...)
			}
			return nil
		})
		return b, err
	}
}

func (f *Fetcher) nfts(chain string) collector {
	return func(ctx context.Context, identity string) (batch, error) {
		b := batch{format: NFTFormat{Chain: chain}}
		vars := map[string]any{"user": identity, "chain": chain}
		err := f.traverse(ctx, nftCollectionsQuery, vars, func(data map[string]any) error {
			addrs := pathTokenAddresses.Get(data)
			if len(addrs) == 0 {
				return nil
			}
			holders := map[string]any{"tokenAddresses": addrs, "chain": chain}
			return f.traverse(ctx, nftHoldersQuery, holders, collect(pathTokenBalances, &b.records))
		})
		return b, err
	}
}
