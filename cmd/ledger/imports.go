package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/domain/reconcile"
)

type proposeCmd struct {
	*env
	account int64
	file    string
	stage   bool
	commit  bool
}

func (*proposeCmd) Name() string     { return "propose" }
func (*proposeCmd) Synopsis() string { return "match statement records against an account" }
func (*proposeCmd) Usage() string {
	return `ledger propose -account <id> -file <records.json|-> [-stage | -commit]

  Reads normalized statement records (a JSON array) and annotates each with
  the matched transaction, the rule-derived category and whether it would be
  created. -stage keeps the proposal as an import session for a later
  "ledger commit"; -commit applies it immediately.
`
}

func (c *proposeCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.account, "account", 0, "Account the statement belongs to.")
	f.StringVar(&c.file, "file", "-", "JSON file with records, - for stdin.")
	f.BoolVar(&c.stage, "stage", false, "Store the proposal as an import session.")
	f.BoolVar(&c.commit, "commit", false, "Commit the proposal right away.")
}

func (c *proposeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		if c.stage && c.commit {
			return nil, errors.NewValidationError("-stage and -commit are exclusive")
		}
		var records []ledger.ImportRecord
		if err := decodeFile(c.file, &records); err != nil {
			return nil, err
		}
		switch {
		case c.stage:
			return a.imports.ProposeSession(ctx, a.user, c.account, records)
		case c.commit:
			proposed, err := a.imports.Propose(ctx, a.user, c.account, records)
			if err != nil {
				return nil, err
			}
			return a.imports.Commit(ctx, a.user, c.account, proposed)
		default:
			return a.imports.Propose(ctx, a.user, c.account, records)
		}
	})
}

type commitCmd struct {
	*env
	session string
	edits   string
}

func (*commitCmd) Name() string     { return "commit" }
func (*commitCmd) Synopsis() string { return "commit a staged import session" }
func (*commitCmd) Usage() string {
	return `ledger commit -session <id> [-edits <edits.json>]

  Edits address records by index and may change "selected", "categoryId" or
  "transactionId" before the session is committed.
`
}

func (c *commitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.session, "session", "", "Import session id.")
	f.StringVar(&c.edits, "edits", "", "JSON file with edits, - for stdin.")
}

func (c *commitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		var edits []reconcile.Edit
		if c.edits != "" {
			if err := decodeFile(c.edits, &edits); err != nil {
				return nil, err
			}
		}
		return a.imports.CommitSession(ctx, a.user, c.session, edits)
	})
}

type sessionsCmd struct{ *env }

func (*sessionsCmd) Name() string     { return "sessions" }
func (*sessionsCmd) Synopsis() string { return "list pending import sessions" }
func (*sessionsCmd) Usage() string {
	return `ledger sessions
`
}
func (*sessionsCmd) SetFlags(*flag.FlagSet) {}

func (c *sessionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		return a.imports.ListSessions(ctx, a.user)
	})
}

type migrateCmd struct{ *env }

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the Postgres schema and root categories" }
func (*migrateCmd) Usage() string {
	return `ledger migrate
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, logger *slog.Logger) (interface{}, error) {
		if a.pg == nil {
			return nil, errors.NewValidationError("migrate needs the postgres store")
		}
		if err := a.pg.Migrate(ctx, a.roots); err != nil {
			return nil, err
		}
		logger.Info("schema applied", "roots", a.roots)
		return a.roots, nil
	})
}
