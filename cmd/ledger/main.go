package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	envconfig "github.com/hirosato/finance-ledger/internal/common/config"
	"github.com/hirosato/finance-ledger/internal/common/logging"
)

func main() {
	cfg, err := envconfig.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logger, sync, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sync()

	e := &env{cfg: cfg, logger: logger}
	flag.StringVar(&e.store, "store", "", "Ledger store: memory or postgres (defaults to postgres when a database is configured).")
	flag.Int64Var(&e.user, "user", 1, "Id of the user the command runs as.")
	flag.StringVar(&e.dsn, "dsn", "", "Postgres connection string; overrides DATABASE_URL and DATABASE_SECRET_ID.")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for group, cmds := range commands(e) {
		for _, c := range cmds {
			commander.Register(c, group)
		}
	}

	flag.Parse()
	status := commander.Execute(context.Background())
	sync()
	os.Exit(int(status))
}

func commands(e *env) map[string][]subcommands.Command {
	return map[string][]subcommands.Command{
		"accounts": {
			&accountsCmd{env: e},
			&accountAddCmd{env: e},
			&accountEditCmd{env: e},
			&accountRmCmd{env: e},
		},
		"transactions": {
			&transactionsCmd{env: e},
			&txSaveCmd{env: e},
			&txRmCmd{env: e},
			&checkpointCmd{env: e},
		},
		"categories": {
			&categoriesCmd{env: e},
			&categorySaveCmd{env: e},
			&categoryRmCmd{env: e},
			&rulesCmd{env: e},
			&ruleSaveCmd{env: e},
			&ruleRmCmd{env: e},
		},
		"reports": {
			&summaryCmd{env: e},
		},
		"import": {
			&proposeCmd{env: e},
			&commitCmd{env: e},
			&sessionsCmd{env: e},
		},
		"admin": {
			&migrateCmd{env: e},
		},
	}
}
