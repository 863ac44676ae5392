package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-side view of an error: its typed code, the unwrap
// chain, and Postgres diagnostics from either pgx (GORM) or lib/pq (goose).
type ErrorDump struct {
	TopMessage string
	Code       Code
	Retryable  bool
	Chain      []string
	Postgres   *PostgresDiag
}

type PostgresDiag struct {
	Code       string
	Table      string
	Constraint string
	Detail     string
	Message    string
}

func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
		"retryable":   d.Retryable,
	}
	if pg := d.Postgres; pg != nil {
		fields["pg_code"] = pg.Code
		fields["pg_table"] = pg.Table
		fields["pg_constraint"] = pg.Constraint
		fields["pg_detail"] = pg.Detail
		fields["pg_message"] = pg.Message
	}
	return fields
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Postgres: postgresDiag(err)}
	if typed := As(err); typed != nil {
		d.Code, d.Retryable = typed.Code(), typed.Retryable()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

func postgresDiag(err error) *PostgresDiag {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PostgresDiag{
			Code:       pgxErr.Code,
			Table:      pgxErr.TableName,
			Constraint: pgxErr.ConstraintName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresDiag{
			Code:       string(pqErr.Code),
			Table:      pqErr.Table,
			Constraint: pqErr.Constraint,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
