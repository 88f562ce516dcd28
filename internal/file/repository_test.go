package file

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslatePgError(t *testing.T) {
	nameDup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: nameConstraint}
	assert.ErrorIs(t, translatePgError("insert", nameDup), ErrAlreadyExists)

	codeDup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: codeConstraint}
	assert.ErrorIs(t, translatePgError("insert", codeDup), ErrTokenTaken)

	other := &pgconn.PgError{Code: "53100", Message: "disk full"}
	err := translatePgError("insert", other)
	assert.ErrorIs(t, err, ErrIO)
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr), "pg error should stay reachable")

	assert.ErrorIs(t, translatePgError("list", errors.New("conn closed")), ErrIO)
}

func TestSchemaDeclaresConstraintNames(t *testing.T) {
	assert.Contains(t, schema, nameConstraint)
	assert.Contains(t, schema, codeConstraint)
}
