package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil, "noop"))

	err := classify(pgx.ErrNoRows, "get system")
	assert.ErrorIs(t, err, ErrNotFound)

	err = classify(&pgconn.PgError{Code: "23505", ConstraintName: "systems_name_key"}, "create system")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "systems_name_key")

	err = classify(&pgconn.PgError{Code: "23503"}, "delete system")
	assert.ErrorIs(t, err, ErrHasDependents)

	other := errors.New("connection reset")
	err = classify(other, "create system")
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrDuplicate)
}
