package callsRepository

import (
	"ProjectIVR/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
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
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Calls:    &callRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Calls interface {
		CreateCall(c context.Context, call entity.CallRecord) error
		GetCallByID(c context.Context, id string) (entity.CallRecord, error)
		ListCalls(c context.Context, limit, offset int) ([]entity.CallRecord, error)
		CountCalls(c context.Context) (int, error)
		UpdateCallStatus(c context.Context, id string, status string) error
		CountByPriority(c context.Context) (map[string]int, error)
		CountByIssueType(c context.Context) (map[string]int, error)
		GetExportableConsents(c context.Context) ([]entity.ConsentRecord, error)
	}

	Commit   func() error
	Rollback func() error
}

type callRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
