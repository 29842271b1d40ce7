package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption narrows or shapes a repository query before it runs.
type QueryOption func(*gorm.DB) *gorm.DB

// Apply folds the options into a gorm query chain.
func Apply(tx *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		tx = opt(tx)
	}
	return tx
}

// QuerySortBy orders a result set. SortBy must appear in Allow when the
// value comes from user input; an empty SortBy falls back to created_at.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		column := sort.SortBy
		if column == "" {
			column = "created_at"
		}

		if sort.Allow != nil && !sort.Allow[column] {
			return tx
		}

		direction := "ASC"
		if strings.EqualFold(sort.OrderBy, "desc") {
			direction = "DESC"
		}

		return tx.Order(fmt.Sprintf("%s %s", column, direction))
	}
}

type Operator string

const (
	EQ    Operator = "="
	NEQ   Operator = "<>"
	GT    Operator = ">"
	GTE   Operator = ">="
	LT    Operator = "<"
	LTE   Operator = "<="
	LIKE  Operator = "LIKE"
	ILIKE Operator = "ILIKE"
)

// Condition is a single comparison on a column, for predicates a
// query-by-example struct cannot express.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(conditions ...Condition) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		for _, c := range conditions {
			switch c.Operator {
			case ILIKE:
				// lower/lower keeps the match case-insensitive on every
				// supported dialect, not just postgres.
				tx = tx.Where(fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", c.Field), c.Value)
			case LIKE:
				tx = tx.Where(fmt.Sprintf("%s LIKE ?", c.Field), c.Value)
			default:
				tx = tx.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
			}
		}
		return tx
	}
}

// LockingUpdate is a gorm scope enabling SELECT ... FOR UPDATE inside a
// transaction.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func WithLockingUpdate() QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return LockingUpdate(tx)
	}
}

func WithLimit(limit int) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	}
}
