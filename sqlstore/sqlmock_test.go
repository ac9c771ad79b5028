package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-daybed/core/persistence"
)

func newMock(t *testing.T, dialect Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, dialect, nil), mock
}

func TestStore_ClaimLostOnPostgres(t *testing.T) {
	store, mock := newMock(t, DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tokens (model, token, created_at) VALUES ($1, $2, $3) ON CONFLICT (model) DO NOTHING`)).
		WithArgs("books", "loser", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT token FROM tokens WHERE model = $1`)).
		WithArgs("books").
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("winner"))
	mock.ExpectCommit()

	token, err := store.ClaimModel(context.Background(), "books", "loser", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "winner", token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ClaimWonOnPostgres(t *testing.T) {
	store, mock := newMock(t, DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tokens`).
		WithArgs("books", "mine", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO definitions (model, definition, hash, updated_at) VALUES ($1, $2, $3, $4)`)).
		WithArgs("books", `{"a":1}`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	token, err := store.ClaimModel(context.Background(), "books", "mine", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "mine", token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ClaimRollsBackOnDefinitionFailure(t *testing.T) {
	store, mock := newMock(t, DialectSQLite)
	boom := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tokens`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO definitions`).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := store.ClaimModel(context.Background(), "books", "mine", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReadFailures(t *testing.T) {
	ctx := context.Background()
	store, mock := newMock(t, DialectSQLite)
	boom := errors.New("connection refused")

	mock.ExpectQuery(`SELECT definition FROM definitions`).WithArgs("books").WillReturnError(boom)
	_, err := store.GetDefinition(ctx, "books")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, persistence.ErrNotFound)

	mock.ExpectQuery(`SELECT token FROM tokens`).WithArgs("books").WillReturnRows(sqlmock.NewRows([]string{"token"}))
	_, err = store.GetToken(ctx, "books")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	mock.ExpectQuery(`SELECT data FROM records`).WithArgs("books").WillReturnError(boom)
	_, err = store.ListRecords(ctx, "books")
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec(`INSERT INTO records`).WillReturnError(boom)
	_, err = store.InsertRecord(ctx, "books", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
