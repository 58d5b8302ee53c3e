package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/botwatch/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

func TestMapError(t *testing.T) {
	other := errors.New("some other error")
	fkErr := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"other pg error passes through", fkErr, fkErr},
		{"other error passes through", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errDuplicate)
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("MapError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func scanPostID(s repository.Scanner) (string, error) {
	var id string
	err := s.Scan(&id)
	return id, err
}

func TestQueryMany(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT post_id FROM reports").
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow("1_2").AddRow("3_4"))

	got, err := repository.QueryMany(context.Background(), db, "SELECT post_id FROM reports", nil, scanPostID)
	if err != nil {
		t.Fatalf("QueryMany() error = %v", err)
	}
	if len(got) != 2 || got[0] != "1_2" || got[1] != "3_4" {
		t.Errorf("QueryMany() = %v", got)
	}
}

func TestQueryManyEmpty(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT post_id FROM reports").
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}))

	got, err := repository.QueryMany(context.Background(), db, "SELECT post_id FROM reports", nil, scanPostID)
	if err != nil {
		t.Fatalf("QueryMany() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("QueryMany() = %v, want empty slice", got)
	}
}

func TestQueryOneNoRows(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT post_id FROM reports").
		WithArgs("9_9").
		WillReturnError(sql.ErrNoRows)

	_, err := repository.QueryOne(context.Background(), db, "SELECT post_id FROM reports WHERE post_id = $1", []any{"9_9"}, scanPostID)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("QueryOne() error = %v, want sql.ErrNoRows", err)
	}
}

func TestWithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM reports").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := repository.WithTx(context.Background(), db, func(tx *sql.Tx) (struct{}, error) {
			return struct{}{}, repository.ExecExpectOne(context.Background(), tx, "DELETE FROM reports WHERE id = $1", 1)
		})
		if err != nil {
			t.Fatalf("WithTx() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("rolls back when no row is affected", func(t *testing.T) {
		db, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM reports").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repository.WithTx(context.Background(), db, func(tx *sql.Tx) (struct{}, error) {
			return struct{}{}, repository.ExecExpectOne(context.Background(), tx, "DELETE FROM reports WHERE id = $1", 1)
		})
		if !errors.Is(err, sql.ErrNoRows) {
			t.Errorf("WithTx() error = %v, want sql.ErrNoRows", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}
