package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

// baseRepository is embedded by every table repository
type baseRepository struct {
	db *gorm.DB
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (b baseRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return b.db
}

// handleDBError wraps a database error with the failed operation. Wrapping
// keeps gorm.ErrRecordNotFound visible to repositories.IsNotFoundError.
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// whereEmail matches an email column case-insensitively. Stored emails are
// lower-cased on write but legacy rows may not be.
func whereEmail(query *gorm.DB, column, email string) *gorm.DB {
	return query.Where("LOWER("+column+") = ?", models.NormalizeEmail(email))
}

// whereLike is a case-insensitive substring match on any of columns. LIKE
// wildcards in term are escaped.
func whereLike(query *gorm.DB, term string, columns ...string) *gorm.DB {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	pattern := "%" + strings.ToLower(r.Replace(term)) + "%"

	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		clauses[i] = "LOWER(" + c + ") LIKE ? ESCAPE '\\'"
		args[i] = pattern
	}
	return query.Where(strings.Join(clauses, " OR "), args...)
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection.
// allowed is the sort column whitelist; the first entry is the default.
func ApplyPaginationAndSort(query *gorm.DB, allowed []string, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column := allowed[0]
	for _, c := range allowed {
		if c == sortBy {
			column = c
			break
		}
	}

	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}

	query = query.Order(column + " " + order)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// countByColumn groups rows of model by column for the given ids
func countByColumn(db *gorm.DB, model any, column string, ids []string, extra func(*gorm.DB) *gorm.DB) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	type row struct {
		GroupKey string
		Total    int64
	}
	var rows []row

	query := db.Model(model).
		Select(column+" AS group_key, COUNT(*) AS total").
		Where(column+" IN ?", ids)
	if extra != nil {
		query = extra(query)
	}
	if err := query.Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		counts[r.GroupKey] = r.Total
	}
	return counts, nil
}
