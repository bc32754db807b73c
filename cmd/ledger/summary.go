package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/domain/summary"
)

type summaryCmd struct {
	*env
	accounts string
	from, to string
	by       string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "report money flow per currency or per category" }
func (*summaryCmd) Usage() string {
	return `ledger summary [-accounts <id,...>] [-from <date>] [-to <date>] [-by expense|income]

  Without -by, totals expenses, incomes and transfers per currency. With -by,
  groups expenses or incomes under their top-level category.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.accounts, "accounts", "", "Comma separated account ids; all accessible when empty.")
	f.StringVar(&c.from, "from", "", "Inclusive start date.")
	f.StringVar(&c.to, "to", "", "Exclusive end date.")
	f.StringVar(&c.by, "by", "", "Group by expense or income categories.")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		ids, err := parseIDs(c.accounts)
		if err != nil {
			return nil, err
		}
		from, err := optionalTime(c.from)
		if err != nil {
			return nil, err
		}
		to, err := optionalTime(c.to)
		if err != nil {
			return nil, err
		}
		req := &summary.Request{AccountIDs: ids, From: from, To: to}

		kind, err := parseKind(c.by)
		if err != nil {
			return nil, err
		}
		if kind == ledger.KindInvalid {
			return a.summary.Summary(ctx, a.user, req)
		}
		return a.summary.Categories(ctx, a.user, kind, req)
	})
}
