package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/hirosato/finance-ledger/internal/domain/account"
)

type accountsCmd struct {
	*env
	currency string
	search   string
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accessible accounts with their balances" }
func (*accountsCmd) Usage() string {
	return `ledger accounts [-currency <code>] [-search <text>]
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Only accounts in this currency.")
	f.StringVar(&c.search, "search", "", "Case-insensitive substring of the account name or address.")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		return a.accounts.ListAccounts(ctx, a.user, &account.Filter{Currency: c.currency, SearchTerm: c.search})
	})
}

type accountAddCmd struct {
	*env
	group    int64
	name     string
	currency string
	scale    int
	start    string
	address  string
}

func (*accountAddCmd) Name() string     { return "account-add" }
func (*accountAddCmd) Synopsis() string { return "create an account in one of your groups" }
func (*accountAddCmd) Usage() string {
	return `ledger account-add -group <id> -name <name> -currency <code> [-scale <n>] [-start <amount>] [-address <addr>]

  The scale defaults to the currency's minor unit digits.
`
}

func (c *accountAddCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.group, "group", 1, "Account group id.")
	f.StringVar(&c.name, "name", "", "Account name.")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 code or token symbol.")
	f.IntVar(&c.scale, "scale", -1, "Decimal digits kept in minor units; -1 uses the currency default.")
	f.StringVar(&c.start, "start", "0", "Start balance in major units.")
	f.StringVar(&c.address, "address", "", "Wallet address for blockchain accounts.")
}

func (c *accountAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		start, err := parseAmount("start balance", c.start)
		if err != nil {
			return nil, err
		}
		req := &account.CreateRequest{
			GroupID:      c.group,
			Name:         c.name,
			Currency:     c.currency,
			StartBalance: start,
			Address:      c.address,
		}
		if c.scale >= 0 {
			s := int32(c.scale)
			req.Scale = &s
		}
		return a.accounts.CreateAccount(ctx, a.user, req)
	})
}

type accountEditCmd struct {
	*env
	id      int64
	name    string
	address string
}

func (*accountEditCmd) Name() string     { return "account-edit" }
func (*accountEditCmd) Synopsis() string { return "rename an account or change its address" }
func (*accountEditCmd) Usage() string {
	return `ledger account-edit -id <id> [-name <name>] [-address <addr>]
`
}

func (c *accountEditCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Account id.")
	f.StringVar(&c.name, "name", "", "New name.")
	f.StringVar(&c.address, "address", "", "New wallet address.")
}

func (c *accountEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req := &account.UpdateRequest{}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			req.Name = &c.name
		case "address":
			req.Address = &c.address
		}
	})
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		return a.accounts.UpdateAccount(ctx, a.user, c.id, req)
	})
}

type accountRmCmd struct {
	*env
	id    int64
	force bool
}

func (*accountRmCmd) Name() string     { return "account-rm" }
func (*accountRmCmd) Synopsis() string { return "delete an account" }
func (*accountRmCmd) Usage() string {
	return `ledger account-rm -id <id> [-force]

  Without -force only accounts with a zero balance are deleted. With -force
  the account's expenses and incomes are removed and its transfers become
  one-sided.
`
}

func (c *accountRmCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Account id.")
	f.BoolVar(&c.force, "force", false, "Delete even with a non-zero balance.")
}

func (c *accountRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		if err := a.accounts.DeleteAccount(ctx, a.user, c.id, c.force); err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": c.id}, nil
	})
}
