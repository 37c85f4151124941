package callsService

import (
	"ProjectIVR/internal/api/calls"
	"ProjectIVR/internal/entity"
	contextPkg "ProjectIVR/pkg/context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *callsService) ListCalls(ctx context.Context, q calls.ListCallsQuery) (calls.ListCallsResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = calls.DefaultPageSize
	}
	if limit > calls.MaxPageSize {
		limit = calls.MaxPageSize
	}

	repo, err := s.callsRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return calls.ListCallsResponse{}, err
	}

	total, err := repo.Calls.CountCalls(ctx)
	if err != nil {
		return calls.ListCallsResponse{}, err
	}

	records, err := repo.Calls.ListCalls(ctx, limit, (page-1)*limit)
	if err != nil {
		return calls.ListCallsResponse{}, err
	}

	res := calls.ListCallsResponse{
		Calls: make([]calls.CallResponse, 0, len(records)),
		Page:  page,
		Limit: limit,
		Total: total,
	}
	for _, r := range records {
		res.Calls = append(res.Calls, calls.NewCallResponse(r))
	}

	return res, nil
}

func (s *callsService) GetCall(ctx context.Context, id string) (calls.CallResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.callsRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return calls.CallResponse{}, err
	}

	record, err := repo.Calls.GetCallByID(ctx, id)
	if err != nil {
		return calls.CallResponse{}, err
	}

	return calls.NewCallResponse(record), nil
}

func (s *callsService) UpdateStatus(ctx context.Context, id string, req calls.UpdateStatusRequest) (calls.UpdateStatusResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	status := strings.TrimSpace(req.Status)
	if status == "" {
		return calls.UpdateStatusResponse{}, calls.ErrStatusRequired
	}

	repo, err := s.callsRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return calls.UpdateStatusResponse{}, err
	}

	if err := repo.Calls.UpdateCallStatus(ctx, id, status); err != nil {
		return calls.UpdateStatusResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"id":         id,
		"status":     status,
	}).Info("Call status updated")

	return calls.UpdateStatusResponse{ID: id, Status: status}, nil
}

func (s *callsService) GetStats(ctx context.Context) (entity.CallStats, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.callsRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.CallStats{}, err
	}

	total, err := repo.Calls.CountCalls(ctx)
	if err != nil {
		return entity.CallStats{}, err
	}

	byPriority, err := repo.Calls.CountByPriority(ctx)
	if err != nil {
		return entity.CallStats{}, err
	}

	byIssue, err := repo.Calls.CountByIssueType(ctx)
	if err != nil {
		return entity.CallStats{}, err
	}

	return entity.CallStats{
		Total:      total,
		ByPriority: byPriority,
		ByIssue:    byIssue,
	}, nil
}

// SaveCall is the single write of a finished call.
func (s *callsService) SaveCall(ctx context.Context, call entity.CallRecord) error {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.callsRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return err
	}

	return repo.Calls.CreateCall(ctx, call)
}

func (s *callsService) ExportableConsents(ctx context.Context) ([]entity.ConsentRecord, error) {
	repo, err := s.callsRepository.NewClient(false)
	if err != nil {
		return nil, err
	}

	return repo.Calls.GetExportableConsents(ctx)
}
