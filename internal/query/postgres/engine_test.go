package postgres

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/askdb/askdb/internal/sqlguard"
)

func TestExecuteRunsInsideReadOnlyTransaction(t *testing.T) {
	handle, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = handle.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT region, COUNT(*) AS n FROM customers GROUP BY region").
		WillReturnRows(sqlmock.NewRows([]string{"region", "n"}).
			AddRow([]byte("East"), int64(3)).
			AddRow([]byte("West"), int64(5)))
	mock.ExpectCommit()

	engine := NewEngine(handle)
	verdict := sqlguard.Validate("SELECT region, COUNT(*) AS n FROM customers GROUP BY region", []string{"customers"})

	result, err := engine.Execute(context.Background(), verdict)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !reflect.DeepEqual(result.Columns, []string{"region", "n"}) {
		t.Fatalf("columns = %v", result.Columns)
	}
	if result.Rows[0][0] != "East" {
		t.Fatalf("byte slice not normalized: %#v", result.Rows[0][0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteAppliesRowLimit(t *testing.T) {
	handle, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = handle.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM (SELECT id FROM customers) AS q LIMIT 50").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	engine := NewEngine(handle)
	engine.MaxRows = 50

	verdict := sqlguard.Validate("SELECT id FROM customers", []string{"customers"})
	if _, err := engine.Execute(context.Background(), verdict); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteRollsBackOnQueryFailure(t *testing.T) {
	handle, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = handle.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT nope FROM customers").
		WillReturnError(errors.New(`column "nope" does not exist`))
	mock.ExpectRollback()

	engine := NewEngine(handle)
	verdict := sqlguard.Validate("SELECT nope FROM customers", []string{"customers"})

	if _, err := engine.Execute(context.Background(), verdict); err == nil {
		t.Fatal("expected query error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecutePanicsOnRejectedVerdict(t *testing.T) {
	handle, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = handle.Close() }()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for rejected verdict")
		}
	}()
	engine := NewEngine(handle)
	_, _ = engine.Execute(context.Background(), sqlguard.Validate("DELETE FROM customers", nil))
}
