package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/finance-ledger/internal/common/utils"
	"github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// parseIDs reads a comma separated id list
func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid id %q", part))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := utils.ParseISODate(s)
	if err != nil {
		return time.Time{}, errors.NewValidationError(fmt.Sprintf("invalid date %q", s))
	}
	return t, nil
}

// optionalTime returns nil for an empty flag
func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseAmount(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.NewValidationError(fmt.Sprintf("invalid %s %q", name, s))
	}
	return d, nil
}

func parseKind(s string) (ledger.Kind, error) {
	switch strings.ToLower(s) {
	case "":
		return ledger.KindInvalid, nil
	case "expense":
		return ledger.KindExpense, nil
	case "income":
		return ledger.KindIncome, nil
	default:
		return ledger.KindInvalid, errors.NewValidationError(fmt.Sprintf("kind must be expense or income, got %q", s))
	}
}

// parseCondition accepts the numeric code or the name of a condition type
func parseCondition(s string) (ledger.ConditionType, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return ledger.ConditionType(n), nil
	}
	for c := ledger.PartyEquals; c <= ledger.CategoryNameContains; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, errors.NewValidationError(fmt.Sprintf("unknown condition type %q", s))
}

// decodeFile reads JSON from path, or from stdin when path is "-"
func decodeFile(path string, v interface{}) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.NewValidationError(fmt.Sprintf("cannot open %s", path))
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.NewValidationError(fmt.Sprintf("invalid JSON in %s: %v", path, err))
	}
	return nil
}
