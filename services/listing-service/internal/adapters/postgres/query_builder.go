package postgres_adapter

import (
	"fmt"
	"strings"

	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"
)

type queryBuilder struct {
	conditions []string
	args       []interface{}
	argId      int
}

func newQueryBuilder(base ...string) *queryBuilder {
	return &queryBuilder{
		argId:      1,
		conditions: append([]string{}, base...),
		args:       make([]interface{}, 0),
	}
}

func (qb *queryBuilder) addCondition(condition string, fieldName string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, fieldName, qb.argId))
	qb.args = append(qb.args, arg)
	qb.argId++
}

// addArg добавляет аргумент и возвращает его номер плейсхолдера.
func (qb *queryBuilder) addArg(arg interface{}) int {
	qb.args = append(qb.args, arg)
	qb.argId++
	return qb.argId - 1
}

func (qb *queryBuilder) AddFloatFilter(fieldName string, min *float64, max *float64) {
	if min != nil {
		qb.addCondition("%s >= $%d", fieldName, *min)
	}
	if max != nil {
		qb.addCondition("%s <= $%d", fieldName, *max)
	}
}

// addKeyset добавляет условие "после курсора" для сортировки (key, id).
func (qb *queryBuilder) addKeyset(keyExpr, idExpr string, desc bool, key interface{}, id interface{}) {
	op := ">"
	if desc {
		op = "<"
	}
	keyArg := qb.addArg(key)
	idArg := qb.addArg(id)
	qb.conditions = append(qb.conditions, fmt.Sprintf("(%s, %s) %s ($%d, $%d)", keyExpr, idExpr, op, keyArg, idArg))
}

func (qb *queryBuilder) build() (string, []interface{}) {
	whereClause := ""
	if len(qb.conditions) > 0 {
		whereClause = "WHERE " + strings.Join(qb.conditions, " AND ")
	}
	return whereClause, qb.args
}

// applyFilters разбирает общие фильтры поиска.
func applyFilters(qb *queryBuilder, f domain.ListingFilters) {
	if f.Category != "" {
		qb.addCondition("%s = $%d", "l.category", string(f.Category))
	}
	if f.Query != "" {
		n := qb.addArg("%" + escapeLike(f.Query) + "%")
		qb.conditions = append(qb.conditions, fmt.Sprintf("(l.title ILIKE $%[1]d OR l.description ILIKE $%[1]d)", n))
	}
	if f.City != "" {
		qb.addCondition("%s ILIKE $%d", "l.city", escapeLike(f.City))
	}
	if f.Region != "" {
		qb.addCondition("%s ILIKE $%d", "l.region", escapeLike(f.Region))
	}
	qb.AddFloatFilter("l.price", f.PriceMin, f.PriceMax)

	if f.Near != nil && len(f.Near.Prefixes) > 0 {
		qb.addCondition("%s = ANY($%d)", fmt.Sprintf("left(l.geohash, %d)", f.Near.Precision), f.Near.Prefixes)
	}
}

// orderFor возвращает ORDER BY и добавляет условие курсора.
func orderFor(qb *queryBuilder, sort string, cursor *pagination.Cursor) string {
	switch sort {
	case domain.SortPriceAsc, domain.SortPriceDesc:
		desc := sort == domain.SortPriceDesc
		if cursor != nil && cursor.Value != nil {
			qb.addKeyset("l.price", "l.id", desc, *cursor.Value, cursor.ID)
		}
		if desc {
			return "ORDER BY l.price DESC, l.id DESC"
		}
		return "ORDER BY l.price ASC, l.id ASC"
	case domain.SortNewest:
		if cursor != nil && cursor.Time != nil {
			qb.addKeyset("l.published_at", "l.id", true, *cursor.Time, cursor.ID)
		}
		return "ORDER BY l.published_at DESC, l.id DESC"
	default:
		if cursor != nil && cursor.Time != nil {
			qb.addKeyset("l.created_at", "l.id", true, *cursor.Time, cursor.ID)
		}
		return "ORDER BY l.created_at DESC, l.id DESC"
	}
}

// cursorFor строит курсор следующей страницы из последней строки.
func cursorFor(sort string) func(domain.Listing) pagination.Cursor {
	return func(l domain.Listing) pagination.Cursor {
		switch sort {
		case domain.SortPriceAsc, domain.SortPriceDesc:
			return pagination.ValueCursor(sort, l.Price, l.ID)
		case domain.SortNewest:
			if l.PublishedAt != nil {
				return pagination.TimeCursor(sort, *l.PublishedAt, l.ID)
			}
		}
		return pagination.TimeCursor(domain.SortCreated, l.CreatedAt, l.ID)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
