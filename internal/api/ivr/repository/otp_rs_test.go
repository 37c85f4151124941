package ivrRepository

import (
	"ProjectIVR/internal/api/ivr"
	"ProjectIVR/internal/entity"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

func newMockClient(t *testing.T) (Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	client, err := New(sqlx.NewDb(db, "postgres"), log).NewClient(context.Background(), false)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, mock
}

var issuedAt = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func TestCreateCode(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO one_time_codes").
		WithArgs("01HOTP", "+15550100", "hash", issuedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.Codes.CreateCode(context.Background(), entity.OneTimeCode{
		ID:          "01HOTP",
		PhoneNumber: "+15550100",
		CodeHash:    "hash",
		IssuedAt:    issuedAt,
	})
	if err != nil {
		t.Fatalf("CreateCode() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetLatestCode(t *testing.T) {
	client, mock := newMockClient(t)

	rows := sqlmock.NewRows([]string{"id", "phone_number", "code_hash", "issued_at", "consumed", "consumed_at"}).
		AddRow("01HOTP", "+15550100", "hash", issuedAt, false, nil)
	mock.ExpectQuery("FROM one_time_codes").
		WithArgs("+15550100").
		WillReturnRows(rows)

	code, err := client.Codes.GetLatestCode(context.Background(), "+15550100")
	if err != nil {
		t.Fatalf("GetLatestCode() error = %v", err)
	}
	if code.ID != "01HOTP" || code.Consumed || !code.IssuedAt.Equal(issuedAt) || !code.ConsumedAt.IsZero() {
		t.Fatalf("code = %+v", code)
	}
}

func TestGetLatestCodeNone(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery("FROM one_time_codes").
		WithArgs("+15550100").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := client.Codes.GetLatestCode(context.Background(), "+15550100")
	if !errors.Is(err, ivr.ErrCodeNotFound) {
		t.Fatalf("GetLatestCode() error = %v, want ErrCodeNotFound", err)
	}
}

func TestConsumeCodeOnlyOnce(t *testing.T) {
	client, mock := newMockClient(t)
	at := issuedAt.Add(time.Minute)

	mock.ExpectExec("UPDATE one_time_codes").
		WithArgs(at, "01HOTP").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE one_time_codes").
		WithArgs(at, "01HOTP").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := client.Codes.ConsumeCode(context.Background(), "01HOTP", at); err != nil {
		t.Fatalf("first ConsumeCode() error = %v", err)
	}
	if err := client.Codes.ConsumeCode(context.Background(), "01HOTP", at); !errors.Is(err, ivr.ErrCodeConsumed) {
		t.Fatalf("second ConsumeCode() error = %v, want ErrCodeConsumed", err)
	}
}
