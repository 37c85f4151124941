package ivrRepository

import (
	"ProjectIVR/internal/entity"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	// NewClient returns query helpers bound to the pool, or to a fresh
	// transaction tied to ctx when tx is set.
	NewClient(ctx context.Context, tx bool) (Client, error)
}

func (r *repository) NewClient(ctx context.Context, tx bool) (Client, error) {
	noop := func() error { return nil }

	if !tx {
		return Client{
			Codes:    &codeRepository{q: r.DB, log: r.log},
			Commit:   noop,
			Rollback: noop,
		}, nil
	}

	txx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return Client{}, err
	}

	return Client{
		Codes:    &codeRepository{q: txx, log: r.log},
		Commit:   txx.Commit,
		Rollback: txx.Rollback,
	}, nil
}

type Client struct {
	Codes interface {
		CreateCode(c context.Context, code entity.OneTimeCode) error
		GetLatestCode(c context.Context, phoneNumber string) (entity.OneTimeCode, error)
		ConsumeCode(c context.Context, id string, at time.Time) error
	}

	Commit   func() error
	Rollback func() error
}

type codeRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
