package db

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
)

// MissingRelationPolicy decides how queries against a not-yet-provisioned
// table behave. Early deployments may run ahead of their migrations; the
// policy makes that degradation explicit and logged instead of a silent
// per-call special case.
type MissingRelationPolicy int

const (
	// MissingRelationStrict propagates the error unchanged.
	MissingRelationStrict MissingRelationPolicy = iota
	// MissingRelationEmpty logs the condition and reports it as softened so
	// the caller substitutes an empty result.
	MissingRelationEmpty
)

// ParseMissingRelationPolicy maps a config string onto a policy. Anything
// other than "empty" is strict.
func ParseMissingRelationPolicy(raw string) MissingRelationPolicy {
	if raw == "empty" {
		return MissingRelationEmpty
	}
	return MissingRelationStrict
}

// undefined_table
const undefinedTableCode = "42P01"

// IsMissingRelation reports whether err is Postgres undefined_table.
func IsMissingRelation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}

// Soften applies the policy to a query error. It returns (true, nil) when the
// error was a missing relation and the policy allows treating it as empty;
// otherwise (false, err) unchanged.
func (p MissingRelationPolicy) Soften(err error, logger *slog.Logger, relation string) (bool, error) {
	if err == nil {
		return false, nil
	}
	if p == MissingRelationEmpty && IsMissingRelation(err) {
		if logger != nil {
			logger.Warn("relation not provisioned, treating as empty",
				slog.String("relation", relation))
		}
		return true, nil
	}
	return false, err
}
