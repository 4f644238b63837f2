package services

import (
	"context"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

// EmergencyReaderSvc defines read operations for emergency requests.
type EmergencyReaderSvc interface {
	// GetRequestByID retrieves a specific request by its ID.
	GetRequestByID(ctx context.Context, requestID string) (*domain.EmergencyRequest, error)

	// ListRequests retrieves a filtered, paginated request list.
	ListRequests(ctx context.Context, params dto.ListEmergencyParams) (*dto.ListEmergencyResponse, error)

	// ListRequestLogs retrieves the request's transition log.
	ListRequestLogs(ctx context.Context, requestID string) ([]domain.EmergencyRequestLog, error)
}

// EmergencyWriterSvc defines the emergency allocation state machine operations.
type EmergencyWriterSvc interface {
	// CreateRequest submits an urgent blood request (PENDING). The validity
	// window closes one day after it opens.
	CreateRequest(ctx context.Context, requesterID string, req dto.CreateEmergencyRequest) (*domain.EmergencyRequest, error)

	// Approve allocates a blood unit to a pending hospital request, deducting
	// the used volume from the unit in the same transaction.
	Approve(ctx context.Context, requestID string, req dto.ApproveEmergencyRequest, staffID string) (*domain.EmergencyRequest, error)

	// Reject declines a pending hospital request with a reason.
	Reject(ctx context.Context, requestID string, req dto.RejectEmergencyRequest, staffID string) (*domain.EmergencyRequest, error)

	// RejectByBloodType bulk-rejects all pending hospital requests matching a
	// blood type and component.
	RejectByBloodType(ctx context.Context, req dto.RejectByBloodTypeRequest, staffID string) (*dto.BulkRejectResponse, error)

	// ProvideContacts answers a pending individual request with suggested
	// donor contacts instead of stock.
	ProvideContacts(ctx context.Context, requestID string, req dto.ProvideContactsRequest, staffID string) (*domain.EmergencyRequest, error)
}

// EmergencySvcFacade combines all emergency service interfaces.
type EmergencySvcFacade interface {
	EmergencyReaderSvc
	EmergencyWriterSvc
}
