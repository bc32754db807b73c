package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/hirosato/finance-ledger/internal/api/middleware"
	"github.com/hirosato/finance-ledger/internal/api/response"
	envconfig "github.com/hirosato/finance-ledger/internal/common/config"
	"github.com/hirosato/finance-ledger/internal/domain/account"
	"github.com/hirosato/finance-ledger/internal/domain/balance"
	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/domain/reconcile"
	"github.com/hirosato/finance-ledger/internal/domain/rule"
	"github.com/hirosato/finance-ledger/internal/domain/summary"
	"github.com/hirosato/finance-ledger/internal/domain/transaction"
	dynamoClient "github.com/hirosato/finance-ledger/internal/platform/dynamodb/client"
	dynamodbRepository "github.com/hirosato/finance-ledger/internal/platform/dynamodb/repository"
	"github.com/hirosato/finance-ledger/internal/platform/memstore"
	"github.com/hirosato/finance-ledger/internal/platform/postgres"
	"github.com/hirosato/finance-ledger/internal/platform/secrets"
)

// env carries process-wide configuration and global flags
type env struct {
	cfg    *envconfig.Config
	logger *slog.Logger

	store string
	user  int64
	dsn   string
}

// app holds the services one command works with
type app struct {
	user         int64
	roots        ledger.Roots
	pg           *postgres.Store
	accounts     *account.Service
	transactions *transaction.Service
	categories   *category.Service
	rules        *rule.Service
	summary      *summary.Service
	imports      *reconcile.Service
	close        func()
}

// page marks a listing result that should carry pagination metadata
type page struct {
	items  interface{}
	window response.Pagination
}

type action func(ctx context.Context, a *app, logger *slog.Logger) (interface{}, error)

// run executes fn inside the middleware chain and prints its envelope
func (e *env) run(ctx context.Context, f *flag.FlagSet, fn action) subcommands.ExitStatus {
	req := middleware.Request{
		Command:     f.Name(),
		OperationID: uuid.NewString(),
		Flags:       map[string]string{},
	}
	f.VisitAll(func(fl *flag.Flag) { req.Flags[fl.Name] = fl.Value.String() })
	logger := e.logger.With("operationId", req.OperationID, "userId", e.user)

	h := middleware.Chain(func(ctx context.Context, logger *slog.Logger, _ middleware.Request) (interface{}, error) {
		a, err := e.open(ctx, logger)
		if err != nil {
			return nil, err
		}
		defer a.close()
		return fn(ctx, a, logger)
	}, middleware.NewRecoveryMiddleware(), middleware.NewLoggingMiddleware())

	result, err := h(ctx, logger, req)
	if err != nil {
		_ = response.Error(os.Stderr, err, req.OperationID)
		return subcommands.ExitStatus(response.ExitCode(err))
	}
	if p, ok := result.(page); ok {
		err = response.Paginated(os.Stdout, p.items, p.window, req.OperationID)
	} else {
		err = response.Success(os.Stdout, result, req.OperationID)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (e *env) storeKind() string {
	if e.store != "" {
		return e.store
	}
	if e.dsn != "" || e.cfg.UsesPostgres() {
		return "postgres"
	}
	return "memory"
}

// open wires the services against the selected store
func (e *env) open(ctx context.Context, logger *slog.Logger) (*app, error) {
	roots := e.cfg.Roots
	a := &app{user: e.user, roots: roots, close: func() {}}

	var (
		store  ledger.Store
		acl    ledger.AccessControl
		groups account.Groups
	)
	switch e.storeKind() {
	case "memory":
		m := memstore.NewStore(roots, logger)
		m.AddUser(e.user, fmt.Sprintf("user%d@localhost", e.user))
		m.AddGroup(1, e.user)
		store, acl, groups = m, m, m
	case "postgres":
		dsn, err := e.resolveDSN(ctx, logger)
		if err != nil {
			return nil, err
		}
		pg, err := postgres.NewStore(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		a.pg = pg
		a.close = pg.Close
		store, acl, groups = pg, pg, pg
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown store %q, want memory or postgres", e.store))
	}

	sessions, err := e.sessions(ctx, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	engine := balance.NewEngine(roots, logger)
	resolver := category.NewResolver(roots, logger)
	categories := category.NewService(store, acl, resolver, roots, logger)

	a.categories = categories
	a.accounts = account.NewService(store, acl, groups, engine, logger)
	a.transactions = transaction.NewService(store, acl, engine, resolver, categories, logger)
	a.rules = rule.NewService(store, resolver, categories, roots, logger)
	a.summary = summary.NewService(store, acl, categories, roots, logger)
	a.imports = reconcile.NewService(store, acl, engine, resolver, categories, sessions, e.cfg.ImportSessionTTL, logger)
	return a, nil
}

func (e *env) resolveDSN(ctx context.Context, logger *slog.Logger) (string, error) {
	switch {
	case e.dsn != "":
		return e.dsn, nil
	case e.cfg.DatabaseSecretID != "":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(e.cfg.AWSRegion))
		if err != nil {
			return "", errors.NewInternalError("failed to load AWS config", err)
		}
		return secrets.NewDSNResolver(awsCfg, logger).DSN(ctx, e.cfg.DatabaseSecretID)
	case e.cfg.DatabaseURL != "":
		return e.cfg.DatabaseURL, nil
	default:
		return "", errors.NewValidationError("no database configured, set DATABASE_URL or DATABASE_SECRET_ID")
	}
}

// sessions picks the import staging store; without a table sessions only
// live for the current process
func (e *env) sessions(ctx context.Context, logger *slog.Logger) (reconcile.SessionRepository, error) {
	if e.cfg.ImportSessionTable == "" {
		return memstore.NewSessions(), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(e.cfg.AWSRegion))
	if err != nil {
		return nil, errors.NewInternalError("failed to load AWS config", err)
	}
	client := dynamoClient.NewDynamoDBClient(awsCfg, logger)
	return dynamodbRepository.NewFactory(client, e.cfg.ImportSessionTable, logger).ImportSessionRepository(), nil
}
