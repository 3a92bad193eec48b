// Package ident validates and quotes SQL identifiers.
//
// Identifiers that reach generated SQL come from the catalog, never from a
// request. The checks here are applied to catalog entries at load time and
// to user-chosen column aliases, which are the only request strings that
// are ever emitted as identifiers.
package ident

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxLength is the PostgreSQL identifier length limit (NAMEDATALEN - 1).
const MaxLength = 63

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var reserved = map[string]bool{
	"ALL": true, "ALTER": true, "AND": true, "ANY": true, "AS": true,
	"ASC": true, "BETWEEN": true, "BY": true, "CASE": true, "CAST": true,
	"CHECK": true, "COLUMN": true, "CONSTRAINT": true, "CREATE": true,
	"CROSS": true, "DEFAULT": true, "DELETE": true, "DESC": true,
	"DISTINCT": true, "DROP": true, "ELSE": true, "END": true,
	"EXCEPT": true, "EXEC": true, "EXECUTE": true, "EXISTS": true,
	"FALSE": true, "FETCH": true, "FOR": true, "FOREIGN": true,
	"FROM": true, "FULL": true, "GRANT": true, "GROUP": true,
	"HAVING": true, "IN": true, "INNER": true, "INSERT": true,
	"INTERSECT": true, "INTO": true, "IS": true, "JOIN": true,
	"LEFT": true, "LIKE": true, "LIMIT": true, "NOT": true, "NULL": true,
	"OFFSET": true, "ON": true, "OR": true, "ORDER": true, "OUTER": true,
	"PRIMARY": true, "REFERENCES": true, "REVOKE": true, "RIGHT": true,
	"SELECT": true, "SET": true, "TABLE": true, "THEN": true, "TO": true,
	"TRUE": true, "TRUNCATE": true, "UNION": true, "UNIQUE": true,
	"UPDATE": true, "USER": true, "USING": true, "VALUES": true,
	"WHEN": true, "WHERE": true, "WITH": true,
}

// Error reports an identifier that failed validation.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Invalid SQL identifier %q: %s", e.Input, e.Reason)
}

// IsReserved reports whether name is a reserved SQL keyword (case-insensitive).
func IsReserved(name string) bool {
	return reserved[strings.ToUpper(name)]
}

// SafeIdentifier checks a single, unqualified identifier.
func SafeIdentifier(name string) (string, error) {
	switch {
	case name == "":
		return "", &Error{Input: name, Reason: "empty"}
	case len(name) > MaxLength:
		return "", &Error{Input: name, Reason: fmt.Sprintf("longer than %d characters", MaxLength)}
	case !identPattern.MatchString(name):
		return "", &Error{Input: name, Reason: "must contain only letters, digits and underscores and not start with a digit"}
	case IsReserved(name):
		return "", &Error{Input: name, Reason: "reserved keyword"}
	}
	return name, nil
}

// SafeTableName checks a table name, optionally schema-qualified ("public.members").
func SafeTableName(name string) (string, error) {
	return safeQualified(name, 2)
}

// SafeColumnName checks a column name, optionally table-qualified ("members.first_name").
func SafeColumnName(name string) (string, error) {
	return safeQualified(name, 2)
}

// safeQualified validates each dot-separated part separately.
func safeQualified(name string, maxParts int) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > maxParts {
		return "", &Error{Input: name, Reason: fmt.Sprintf("at most %d name parts allowed", maxParts)}
	}
	for _, p := range parts {
		if _, err := SafeIdentifier(p); err != nil {
			return "", &Error{Input: name, Reason: err.(*Error).Reason}
		}
	}
	return name, nil
}

// Quote quotes a SQL identifier, escaping embedded double quotes.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes each part of a dot-qualified name.
func QuoteQualified(parts ...string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		quoted = append(quoted, Quote(p))
	}
	return strings.Join(quoted, ".")
}
