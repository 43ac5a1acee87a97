package postgres_adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB - подмножество *pgxpool.Pool, которое нужно репозиториям.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const uniqueViolation = "23505"

type queryBuilder struct {
	conditions []string
	args       []interface{}
	argId      int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{argId: 1}
}

func (qb *queryBuilder) addCondition(condition string, fieldName string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, fieldName, qb.argId))
	qb.args = append(qb.args, arg)
	qb.argId++
}

func (qb *queryBuilder) addArg(arg interface{}) int {
	qb.args = append(qb.args, arg)
	qb.argId++
	return qb.argId - 1
}

// addKeyset - условие "после курсора" для сортировки (key, id).
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

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
