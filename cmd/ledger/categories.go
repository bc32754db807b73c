package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/rule"
)

type categoriesCmd struct{ *env }

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list visible categories by full name" }
func (*categoriesCmd) Usage() string {
	return `ledger categories
`
}
func (*categoriesCmd) SetFlags(*flag.FlagSet) {}

func (c *categoriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		return a.categories.ListCategories(ctx, a.user)
	})
}

type categorySaveCmd struct {
	*env
	id     int64
	parent int64
	name   string
}

func (*categorySaveCmd) Name() string     { return "category-save" }
func (*categorySaveCmd) Synopsis() string { return "create or rename a category" }
func (*categorySaveCmd) Usage() string {
	return `ledger category-save [-id <id>] -parent <id> -name <name>

  Saving under a name that already exists merges the two categories.
`
}

func (c *categorySaveCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Category to rename.")
	f.Int64Var(&c.parent, "parent", 0, "Parent category id.")
	f.StringVar(&c.name, "name", "", "Category name.")
}

func (c *categorySaveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		return a.categories.SaveCategory(ctx, a.user, &category.SaveRequest{ID: c.id, ParentID: c.parent, Name: c.name})
	})
}

type categoryRmCmd struct {
	*env
	id int64
}

func (*categoryRmCmd) Name() string     { return "category-rm" }
func (*categoryRmCmd) Synopsis() string { return "delete a category, moving its content to the parent" }
func (*categoryRmCmd) Usage() string {
	return `ledger category-rm -id <id>
`
}

func (c *categoryRmCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Category id.")
}

func (c *categoryRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		if err := a.categories.DeleteCategory(ctx, a.user, c.id); err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": c.id}, nil
	})
}

type rulesCmd struct{ *env }

func (*rulesCmd) Name() string     { return "rules" }
func (*rulesCmd) Synopsis() string { return "list categorization rules" }
func (*rulesCmd) Usage() string {
	return `ledger rules
`
}
func (*rulesCmd) SetFlags(*flag.FlagSet) {}

func (c *rulesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		return a.rules.ListRules(ctx, a.user)
	})
}

type ruleSaveCmd struct {
	*env
	id        int64
	condition string
	value     string
	category  int64
}

func (*ruleSaveCmd) Name() string     { return "rule-save" }
func (*ruleSaveCmd) Synopsis() string { return "create a rule, or update one with -id" }
func (*ruleSaveCmd) Usage() string {
	return `ledger rule-save [-id <id>] -type <condition> -value <text> -category <id>

  Conditions: party-equals, party-contains, details-equals, details-contains,
  category-name-equals, category-name-contains (or their codes 1-6).
`
}

func (c *ruleSaveCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Rule to update.")
	f.StringVar(&c.condition, "type", "", "Condition type.")
	f.StringVar(&c.value, "value", "", "Value compared case-insensitively.")
	f.Int64Var(&c.category, "category", 0, "Category assigned on match.")
}

func (c *ruleSaveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		cond, err := parseCondition(c.condition)
		if err != nil {
			return nil, err
		}
		req := &rule.Request{ConditionType: cond, ConditionValue: c.value, CategoryID: c.category}
		if c.id != 0 {
			return a.rules.UpdateRule(ctx, a.user, c.id, req)
		}
		return a.rules.CreateRule(ctx, a.user, req)
	})
}

type ruleRmCmd struct {
	*env
	id int64
}

func (*ruleRmCmd) Name() string     { return "rule-rm" }
func (*ruleRmCmd) Synopsis() string { return "delete a rule" }
func (*ruleRmCmd) Usage() string {
	return `ledger rule-rm -id <id>
`
}

func (c *ruleRmCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Rule id.")
}

func (c *ruleRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		if err := a.rules.DeleteRule(ctx, a.user, c.id); err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": c.id}, nil
	})
}
