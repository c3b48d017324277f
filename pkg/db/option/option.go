package option

import (
	"fmt"
	"strings"

	"teamfit-platform/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a query scope before execution.
type QueryOption func(*gorm.DB) *gorm.DB

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		sortBy := sort.SortBy
		if sortBy == "" {
			sortBy = "created_at"
		}
		if sort.Allow != nil && !sort.Allow[sortBy] {
			sortBy = "created_at"
		}

		orderBy := strings.ToUpper(sort.OrderBy)
		if orderBy != "ASC" && orderBy != "DESC" {
			orderBy = "DESC"
		}

		return tx.Order(fmt.Sprintf("%s %s", sortBy, orderBy))
	}
}

func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		limit := p.Limit
		if limit <= 0 {
			limit = 10
		}
		return tx.Limit(limit)
	}
}

func ApplyOperator(conds ...Condition) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		for _, c := range conds {
			switch c.Operator {
			case IN:
				tx = tx.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
			default:
				tx = tx.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
			}
		}
		return tx
	}
}

func WithLockingUpdate() QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Scopes(LockingUpdate)
	}
}

// LockingUpdate is a gorm scope enabling row-level FOR UPDATE locking.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
