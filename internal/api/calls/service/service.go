package callsService

import (
	"ProjectIVR/internal/api/calls"
	callsRepository "ProjectIVR/internal/api/calls/repository"
	"ProjectIVR/internal/entity"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ICallsService interface {
	ListCalls(ctx context.Context, q calls.ListCallsQuery) (calls.ListCallsResponse, error)
	GetCall(ctx context.Context, id string) (calls.CallResponse, error)
	UpdateStatus(ctx context.Context, id string, req calls.UpdateStatusRequest) (calls.UpdateStatusResponse, error)
	GetStats(ctx context.Context) (entity.CallStats, error)
	SaveCall(ctx context.Context, call entity.CallRecord) error
	ExportableConsents(ctx context.Context) ([]entity.ConsentRecord, error)
}

type callsService struct {
	log             *logrus.Logger
	callsRepository callsRepository.Repository
}

func NewCallsService(log *logrus.Logger, cr callsRepository.Repository) ICallsService {
	return &callsService{
		log:             log,
		callsRepository: cr,
	}
}
