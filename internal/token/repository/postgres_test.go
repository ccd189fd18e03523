package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"attendance-control-plane/internal/token/domain"
)

func TestPostgresConsumeWinsWhenRowUpdated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tokens SET consumed = TRUE`)).
		WithArgs("tok-1", "dev-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	won, err := repo.Consume(context.Background(), "tok-1", "dev-1", now)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !won {
		t.Error("Consume() = false, want true when one row updated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresConsumeLosesWhenAlreadyConsumed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tokens SET consumed = TRUE`)).
		WithArgs("tok-1", "dev-2", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)
	won, err := repo.Consume(context.Background(), "tok-1", "dev-2", now)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if won {
		t.Error("Consume() = true, want false when no row matched")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresGetByValueMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, session_id`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value", "session_id", "issued_at", "superseded_at", "consumed", "consumed_by", "consumed_at"}))

	repo := NewPostgresRepository(db)
	tok, err := repo.GetByValue(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByValue() error = %v", err)
	}
	if tok != nil {
		t.Errorf("GetByValue() = %+v, want nil for missing row", tok)
	}
}

func TestPostgresGetByValueScansNullables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	issued := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"value", "session_id", "issued_at", "superseded_at", "consumed", "consumed_by", "consumed_at"}).
		AddRow("tok-1", "sess-1", issued, nil, false, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, session_id`)).
		WithArgs("tok-1").
		WillReturnRows(rows)

	repo := NewPostgresRepository(db)
	tok, err := repo.GetByValue(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetByValue() error = %v", err)
	}
	want := &domain.Token{Value: "tok-1", SessionID: "sess-1", IssuedAt: issued}
	if tok == nil || tok.Value != want.Value || tok.SessionID != want.SessionID || tok.SupersededAt != nil || tok.Consumed {
		t.Errorf("GetByValue() = %+v, want %+v", tok, want)
	}
	if !tok.Active() {
		t.Error("unconsumed, non-superseded token should be active")
	}
}
