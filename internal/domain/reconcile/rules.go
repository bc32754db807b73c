package reconcile

import (
	"strings"

	"github.com/hirosato/finance-ledger/internal/domain/category"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// cascade is the order rule conditions are tried in; the first hit wins
var cascade = []ledger.ConditionType{
	ledger.DetailsEquals,
	ledger.PartyEquals,
	ledger.CategoryNameEquals,
	ledger.DetailsContains,
	ledger.PartyContains,
	ledger.CategoryNameContains,
}

type ruleKey struct {
	condition ledger.ConditionType
	kind      ledger.Kind
}

// RuleSet indexes a user's rules by condition type and the kind of the
// category they assign
type RuleSet struct {
	index map[ruleKey][]ledger.Rule
}

// NewRuleSet groups rules using tree to classify their categories. Rules
// whose category is not in tree are ignored.
func NewRuleSet(rules []ledger.Rule, tree *category.Tree) *RuleSet {
	index := map[ruleKey][]ledger.Rule{}
	for _, r := range rules {
		if _, ok := tree.Get(r.CategoryID); !ok {
			continue
		}
		k := ruleKey{condition: r.ConditionType, kind: tree.Kind(r.CategoryID)}
		index[k] = append(index[k], r)
	}
	return &RuleSet{index: index}
}

// Match returns the first rule that applies to rec, or nil
func (s *RuleSet) Match(rec *ledger.ImportRecord) *ledger.Rule {
	kind := rec.Kind()
	for _, condition := range cascade {
		subject := subjectOf(rec, condition)
		if subject == "" {
			continue
		}
		for i, r := range s.index[ruleKey{condition: condition, kind: kind}] {
			if applies(condition, subject, r.ConditionValue) {
				return &s.index[ruleKey{condition: condition, kind: kind}][i]
			}
		}
	}
	return nil
}

func subjectOf(rec *ledger.ImportRecord, condition ledger.ConditionType) string {
	switch condition {
	case ledger.PartyEquals, ledger.PartyContains:
		return rec.Party
	case ledger.DetailsEquals, ledger.DetailsContains:
		return rec.Details
	case ledger.CategoryNameEquals, ledger.CategoryNameContains:
		return rec.CategoryHint
	default:
		return ""
	}
}

func applies(condition ledger.ConditionType, subject, value string) bool {
	switch condition {
	case ledger.PartyEquals, ledger.DetailsEquals, ledger.CategoryNameEquals:
		return strings.EqualFold(subject, value)
	default:
		return strings.Contains(strings.ToLower(subject), strings.ToLower(value))
	}
}
