package service

import (
	"zoomx/internal/general/logger"
	"zoomx/internal/ports"
)

// requestService encapsulates the request lifecycle logic and dependencies.
type requestService struct {
	logger         *logger.Logger
	uow            ports.UnitOfWork
	requestRepo    ports.RequestRepository
	assignmentRepo ports.AssignmentRepository
	pub            ports.Publisher
}

// NewRequestService creates a new instance of the RequestService with the provided dependencies.
func NewRequestService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	requestRepo ports.RequestRepository,
	assignmentRepo ports.AssignmentRepository,
	pub ports.Publisher,
) ports.RequestService {
	return &requestService{
		logger:         logger,
		uow:            uow,
		requestRepo:    requestRepo,
		assignmentRepo: assignmentRepo,
		pub:            pub,
	}
}
