package callsRepository

import (
	"ProjectIVR/internal/api/calls"
	"ProjectIVR/internal/entity"
	contextPkg "ProjectIVR/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

type CallDB struct {
	ID               sql.NullString `db:"id"`
	CallSid          sql.NullString `db:"call_sid"`
	CallerNumber     sql.NullString `db:"caller_number"`
	CustomerName     sql.NullString `db:"customer_name"`
	AccountNumber    sql.NullString `db:"account_number"`
	IssueType        sql.NullString `db:"issue_type"`
	IssueDescription sql.NullString `db:"issue_description"`
	Priority         sql.NullString `db:"priority"`
	FullTranscript   sql.NullString `db:"full_transcript"`
	ConsentType      sql.NullString `db:"consent_type"`
	ConsentStatus    sql.NullString `db:"consent_status"`
	CallDate         sql.NullString `db:"call_date"`
	RecordingURL     sql.NullString `db:"recording_url"`
	Verified         sql.NullBool   `db:"verified"`
	Status           sql.NullString `db:"status"`
	CreatedAt        time.Time      `db:"created_at"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
}

type labelCount struct {
	Label sql.NullString `db:"label"`
	Total int            `db:"total"`
}

func (r *callRepository) CreateCall(c context.Context, call entity.CallRecord) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":                call.ID,
		"call_sid":          call.CallSid,
		"caller_number":     call.CallerNumber,
		"customer_name":     call.CustomerName,
		"account_number":    call.AccountNumber,
		"issue_type":        call.IssueType,
		"issue_description": nullString(call.IssueDescription),
		"priority":          call.Priority,
		"full_transcript":   call.FullTranscript,
		"consent_type":      nullIfUnknown(call.ConsentType),
		"consent_status":    nullIfUnknown(call.ConsentStatus),
		"call_date":         nullString(call.CallDate),
		"recording_url":     nullString(call.RecordingURL),
		"verified":          call.Verified,
		"status":            string(call.Status),
		"created_at":        call.CreatedAt,
		"completed_at":      nullTime(call.CompletedAt),
	}

	query, args, err := sqlx.Named(queryCreateCall, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateCall")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"call_sid":   call.CallSid,
			}).Warn("Call already recorded")
			return calls.ErrCallAlreadyRecorded
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating call")
		return err
	}

	return nil
}

func (r *callRepository) GetCallByID(c context.Context, id string) (entity.CallRecord, error) {
	requestID := contextPkg.GetRequestID(c)
	var call CallDB

	query, args, err := sqlx.Named(queryGetCallByID, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetCallByID named query preparation err")
		return entity.CallRecord{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&call); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
			}).Warn("GetCallByID no rows found")
			return entity.CallRecord{}, calls.ErrCallRecordNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetCallByID execution err")
		return entity.CallRecord{}, err
	}

	return r.makeCallRecord(call), nil
}

func (r *callRepository) ListCalls(c context.Context, limit, offset int) ([]entity.CallRecord, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []CallDB

	query, args, err := sqlx.Named(queryListCalls, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListCalls named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListCalls execution err")
		return nil, err
	}

	result := make([]entity.CallRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.makeCallRecord(row))
	}

	return result, nil
}

func (r *callRepository) CountCalls(c context.Context) (int, error) {
	var total int
	if err := r.q.QueryRowxContext(c, queryCountCalls).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error("CountCalls execution err")
		return 0, err
	}
	return total, nil
}

func (r *callRepository) UpdateCallStatus(c context.Context, id string, status string) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryUpdateCallStatus, map[string]interface{}{
		"id":     id,
		"status": status,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateCallStatus named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateCallStatus execution err")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return calls.ErrCallRecordNotFound
	}

	return nil
}

func (r *callRepository) CountByPriority(c context.Context) (map[string]int, error) {
	return r.countBy(c, queryCountByPriority, "CountByPriority")
}

func (r *callRepository) CountByIssueType(c context.Context) (map[string]int, error) {
	return r.countBy(c, queryCountByIssueType, "CountByIssueType")
}

func (r *callRepository) countBy(c context.Context, query string, op string) (map[string]int, error) {
	var rows []labelCount
	if err := r.q.SelectContext(c, &rows, query); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error(op + " execution err")
		return nil, err
	}

	result := make(map[string]int, len(rows))
	for _, row := range rows {
		label := entity.Unknown
		if row.Label.Valid && row.Label.String != "" {
			label = row.Label.String
		}
		result[label] += row.Total
	}
	return result, nil
}

func (r *callRepository) GetExportableConsents(c context.Context) ([]entity.ConsentRecord, error) {
	var records []entity.ConsentRecord
	if err := r.q.SelectContext(c, &records, queryGetExportableConsents); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error("GetExportableConsents execution err")
		return nil, err
	}
	return records, nil
}

func (r *callRepository) makeCallRecord(row CallDB) entity.CallRecord {
	return entity.CallRecord{
		ID:               row.ID.String,
		CallSid:          row.CallSid.String,
		CallerNumber:     row.CallerNumber.String,
		CustomerName:     orUnknown(row.CustomerName),
		AccountNumber:    orUnknown(row.AccountNumber),
		IssueType:        orUnknown(row.IssueType),
		IssueDescription: row.IssueDescription.String,
		Priority:         orUnknown(row.Priority),
		FullTranscript:   row.FullTranscript.String,
		ConsentType:      row.ConsentType.String,
		ConsentStatus:    row.ConsentStatus.String,
		CallDate:         row.CallDate.String,
		RecordingURL:     row.RecordingURL.String,
		Verified:         row.Verified.Bool,
		Status:           entity.CallStatus(row.Status.String),
		CreatedAt:        row.CreatedAt,
		CompletedAt:      row.CompletedAt.Time,
	}
}

func orUnknown(v sql.NullString) string {
	if !v.Valid || v.String == "" {
		return entity.Unknown
	}
	return v.String
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// nullIfUnknown keeps the sentinel out of the consent columns so the
// exporter's NOT NULL filter skips calls without a captured consent.
func nullIfUnknown(v string) sql.NullString {
	return nullString(entity.KnownOrEmpty(v))
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
