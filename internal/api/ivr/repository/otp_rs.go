package ivrRepository

import (
	"ProjectIVR/internal/api/ivr"
	"ProjectIVR/internal/entity"
	contextPkg "ProjectIVR/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type CodeDB struct {
	ID          string       `db:"id"`
	PhoneNumber string       `db:"phone_number"`
	CodeHash    string       `db:"code_hash"`
	IssuedAt    time.Time    `db:"issued_at"`
	Consumed    bool         `db:"consumed"`
	ConsumedAt  sql.NullTime `db:"consumed_at"`
}

func (r *codeRepository) CreateCode(c context.Context, code entity.OneTimeCode) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryCreateCode, map[string]interface{}{
		"id":           code.ID,
		"phone_number": code.PhoneNumber,
		"code_hash":    code.CodeHash,
		"issued_at":    code.IssuedAt,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateCode")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating one-time code")
		return err
	}

	return nil
}

// GetLatestCode returns the most recently issued code for phoneNumber,
// consumed or not.
func (r *codeRepository) GetLatestCode(c context.Context, phoneNumber string) (entity.OneTimeCode, error) {
	requestID := contextPkg.GetRequestID(c)
	var row CodeDB

	query, args, err := sqlx.Named(queryGetLatestCode, map[string]interface{}{
		"phone_number": phoneNumber,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetLatestCode named query preparation err")
		return entity.OneTimeCode{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.OneTimeCode{}, ivr.ErrCodeNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetLatestCode execution err")
		return entity.OneTimeCode{}, err
	}

	code := entity.OneTimeCode{
		ID:          row.ID,
		PhoneNumber: row.PhoneNumber,
		CodeHash:    row.CodeHash,
		IssuedAt:    row.IssuedAt,
		Consumed:    row.Consumed,
	}
	if row.ConsumedAt.Valid {
		code.ConsumedAt = row.ConsumedAt.Time
	}
	return code, nil
}

// ConsumeCode flips the code to consumed. Losing a race to another
// consumer reports ErrCodeConsumed.
func (r *codeRepository) ConsumeCode(c context.Context, id string, at time.Time) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryConsumeCode, map[string]interface{}{
		"id":          id,
		"consumed_at": at,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ConsumeCode named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ConsumeCode execution err")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ivr.ErrCodeConsumed
	}

	return nil
}
