package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/redcross-vn/blood_bank_app/internal/apperrors"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
	"github.com/redcross-vn/blood_bank_app/internal/middleware"
)

// cancellationLeadTime is the minimum notice a donor must give to cancel a
// confirmed appointment.
const cancellationLeadTime = 24 * time.Hour

var (
	ErrCancellationWindowExpired = fmt.Errorf("%w: confirmed appointments require 24 hours cancellation notice", apperrors.ErrValidation)
	ErrCampaignInactive          = fmt.Errorf("%w: campaign is not active", apperrors.ErrConflict)
	ErrAppointmentDateMismatch   = fmt.Errorf("%w: appointment must fall on the campaign collection day", apperrors.ErrValidation)
)

// donationService drives the campaign donation state machine.
type donationService struct {
	donationRepo portsrepo.DonationRepositoryWithTx
	campaignRepo portsrepo.CampaignRepositoryFacade
	notifier     portssvc.Notifier
}

// NewDonationService creates a new donation workflow service.
func NewDonationService(donationRepo portsrepo.DonationRepositoryWithTx, campaignRepo portsrepo.CampaignRepositoryFacade, notifier portssvc.Notifier) portssvc.DonationSvcFacade {
	return &donationService{
		donationRepo: donationRepo,
		campaignRepo: campaignRepo,
		notifier:     notifier,
	}
}

// Ensure donationService implements the portssvc.DonationSvcFacade interface
var _ portssvc.DonationSvcFacade = (*donationService)(nil)

// sameCalendarDay reports whether two instants fall on the same UTC calendar day.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// validateAppointmentDate checks a proposed appointment against the campaign.
func (s *donationService) validateAppointmentDate(campaign *domain.Campaign, appointment time.Time) error {
	if campaign.CollectionDate == nil {
		return nil
	}
	if !sameCalendarDay(appointment, *campaign.CollectionDate) {
		return fmt.Errorf("%w: campaign collects on %s, got %s",
			ErrAppointmentDateMismatch,
			campaign.CollectionDate.Format("2006-01-02"),
			appointment.Format("2006-01-02"))
	}
	return nil
}

// RequestDonation submits a donor's participation in a campaign. Donations
// always start PENDING.
func (s *donationService) RequestDonation(ctx context.Context, donorID string, req dto.CreateDonationRequest) (*domain.CampaignDonation, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	campaign, err := s.campaignRepo.FindCampaignByID(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign %s: %w", req.CampaignID, err)
	}
	if !campaign.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrCampaignInactive, campaign.CampaignID)
	}
	if req.AppointmentDate != nil {
		if err := s.validateAppointmentDate(campaign, *req.AppointmentDate); err != nil {
			return nil, err
		}
	}

	donation := domain.CampaignDonation{
		DonationID:      uuid.NewString(),
		DonorID:         donorID,
		CampaignID:      req.CampaignID,
		Status:          domain.DonationPending,
		AppointmentDate: req.AppointmentDate,
		VolumeMl:        req.VolumeMl,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     donorID,
			LastUpdatedAt: now,
			LastUpdatedBy: donorID,
		},
	}
	tx, err := s.donationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.donationRepo.Rollback(ctx, tx)

	if err := s.donationRepo.SaveDonationInTx(ctx, tx, donation); err != nil {
		return nil, fmt.Errorf("failed to save donation: %w", err)
	}
	log := domain.CampaignDonationLog{
		LogID:      uuid.NewString(),
		DonationID: donation.DonationID,
		ActorID:    donorID,
		ToStatus:   domain.DonationPending,
		Note:       "donation requested",
		OccurredAt: now,
	}
	if err := s.donationRepo.SaveLogInTx(ctx, tx, log); err != nil {
		return nil, fmt.Errorf("failed to save donation log: %w", err)
	}
	if err := s.donationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit donation request: %w", err)
	}

	logger.Info("donation requested",
		slog.String("donation_id", donation.DonationID),
		slog.String("campaign_id", donation.CampaignID),
		slog.String("donor_id", donorID),
	)
	return &donation, nil
}

// transition moves a locked donation to the target status, writing the log
// entry inside the same transaction. The caller holds the row lock via tx.
func (s *donationService) transition(ctx context.Context, tx pgx.Tx, donation *domain.CampaignDonation, to domain.DonationStatus, actorID, note string, now time.Time) error {
	if !domain.CanTransitionDonation(donation.Status, to) {
		return fmt.Errorf("%w: donation %s cannot move %s -> %s",
			apperrors.ErrInvalidTransition, donation.DonationID, donation.Status, to)
	}
	from := donation.Status
	donation.Status = to
	donation.LastUpdatedAt = now
	donation.LastUpdatedBy = actorID

	if err := s.donationRepo.UpdateDonationInTx(ctx, tx, *donation); err != nil {
		return fmt.Errorf("failed to update donation %s: %w", donation.DonationID, err)
	}
	log := domain.CampaignDonationLog{
		LogID:      uuid.NewString(),
		DonationID: donation.DonationID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		OccurredAt: now,
	}
	if err := s.donationRepo.SaveLogInTx(ctx, tx, log); err != nil {
		return fmt.Errorf("failed to save donation log: %w", err)
	}
	return nil
}

// ensureResult creates the donation's 1:1 result inside the transaction if it
// does not exist yet. A repeated completion attempt finds the existing row
// and leaves it untouched.
func (s *donationService) ensureResult(ctx context.Context, tx pgx.Tx, donation *domain.CampaignDonation, result domain.DonationResult) (*domain.DonationResult, error) {
	existing, err := s.donationRepo.FindResultByDonationIDInTx(ctx, tx, donation.DonationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up result for donation %s: %w", donation.DonationID, err)
	}
	if err := s.donationRepo.SaveResultInTx(ctx, tx, result); err != nil {
		return nil, fmt.Errorf("failed to save donation result: %w", err)
	}
	return &result, nil
}

// UpdateStatus performs a staff-driven transition through the declarative
// transition table. A transition into COMPLETED creates the donation result
// in the same transaction, so the result exists exactly once.
func (s *donationService) UpdateStatus(ctx context.Context, donationID string, req dto.UpdateDonationStatusRequest, actorID string) (*domain.CampaignDonation, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	tx, err := s.donationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.donationRepo.Rollback(ctx, tx)

	donation, err := s.donationRepo.FindDonationByIDForUpdate(ctx, tx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock donation %s: %w", donationID, err)
	}
	from := donation.Status

	if err := s.transition(ctx, tx, donation, req.Status, actorID, req.Note, now); err != nil {
		return nil, err
	}
	if req.Status == domain.DonationCompleted {
		result := domain.DonationResult{
			ResultID:   uuid.NewString(),
			DonationID: donation.DonationID,
			VolumeMl:   donation.VolumeMl,
			Status:     domain.ResultCompleted,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorID,
			},
		}
		if _, err := s.ensureResult(ctx, tx, donation, result); err != nil {
			return nil, err
		}
	}
	if err := s.donationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit donation transition: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "campaign_donation",
		EntityID:   donation.DonationID,
		OldStatus:  string(from),
		NewStatus:  string(donation.Status),
		ActorID:    actorID,
		OccurredAt: now,
	})
	logger.Info("donation status updated",
		slog.String("donation_id", donation.DonationID),
		slog.String("from", string(from)),
		slog.String("to", string(donation.Status)),
	)
	return donation, nil
}

// CustomerCancel cancels the donor's own donation. A PENDING donation can be
// cancelled at any time; a confirmed appointment only with at least 24 hours
// of notice before the appointment date.
func (s *donationService) CustomerCancel(ctx context.Context, donationID string, donorID string, note string) (*domain.CampaignDonation, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	tx, err := s.donationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.donationRepo.Rollback(ctx, tx)

	donation, err := s.donationRepo.FindDonationByIDForUpdate(ctx, tx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock donation %s: %w", donationID, err)
	}
	if donation.DonorID != donorID {
		return nil, fmt.Errorf("%w: donation %s does not belong to user %s", apperrors.ErrForbidden, donationID, donorID)
	}
	if donation.Status == domain.DonationAppointmentConfirmed {
		if donation.AppointmentDate == nil || donation.AppointmentDate.Sub(now) < cancellationLeadTime {
			return nil, fmt.Errorf("%w: donation %s", ErrCancellationWindowExpired, donationID)
		}
	}
	from := donation.Status

	if err := s.transition(ctx, tx, donation, domain.DonationCustomerCancelled, donorID, note, now); err != nil {
		return nil, err
	}
	if err := s.donationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "campaign_donation",
		EntityID:   donation.DonationID,
		OldStatus:  string(from),
		NewStatus:  string(domain.DonationCustomerCancelled),
		ActorID:    donorID,
		OccurredAt: now,
	})
	logger.Info("donation cancelled by donor",
		slog.String("donation_id", donation.DonationID),
		slog.String("donor_id", donorID),
	)
	return donation, nil
}

// Complete transitions a donation to COMPLETED and records the collection
// outcome. The transition and the result creation commit together, and a
// repeated call for an already-completed donation fails on the transition
// check rather than creating a second result.
func (s *donationService) Complete(ctx context.Context, donationID string, req dto.CompleteDonationRequest, actorID string) (*domain.DonationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	if !req.VolumeMl.IsPositive() {
		return nil, fmt.Errorf("%w: got %s ml", ErrInvalidVolume, req.VolumeMl.String())
	}

	tx, err := s.donationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.donationRepo.Rollback(ctx, tx)

	donation, err := s.donationRepo.FindDonationByIDForUpdate(ctx, tx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock donation %s: %w", donationID, err)
	}
	from := donation.Status

	donation.VolumeMl = req.VolumeMl
	if err := s.transition(ctx, tx, donation, domain.DonationCompleted, actorID, req.Note, now); err != nil {
		return nil, err
	}
	result := domain.DonationResult{
		ResultID:     uuid.NewString(),
		DonationID:   donation.DonationID,
		VolumeMl:     req.VolumeMl,
		BloodType:    req.BloodType(),
		Status:       req.ResultStatus,
		RejectReason: req.RejectReason,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}
	saved, err := s.ensureResult(ctx, tx, donation, result)
	if err != nil {
		return nil, err
	}
	if err := s.donationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	s.notifier.NotifyStatusChanged(ctx, domain.StatusChangedEvent{
		Entity:     "campaign_donation",
		EntityID:   donation.DonationID,
		OldStatus:  string(from),
		NewStatus:  string(domain.DonationCompleted),
		ActorID:    actorID,
		OccurredAt: now,
	})
	logger.Info("donation completed",
		slog.String("donation_id", donation.DonationID),
		slog.String("result_id", saved.ResultID),
		slog.String("result_status", string(saved.Status)),
	)
	return saved, nil
}

// Reschedule changes the appointment date of a donation still ahead of
// collection. The new date must satisfy the campaign's collection day rule.
func (s *donationService) Reschedule(ctx context.Context, donationID string, req dto.RescheduleDonationRequest, actorID string) (*domain.CampaignDonation, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	tx, err := s.donationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.donationRepo.Rollback(ctx, tx)

	donation, err := s.donationRepo.FindDonationByIDForUpdate(ctx, tx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock donation %s: %w", donationID, err)
	}
	if donation.Status != domain.DonationPending && donation.Status != domain.DonationAppointmentConfirmed {
		return nil, fmt.Errorf("%w: donation %s is %s, cannot reschedule",
			apperrors.ErrConflict, donationID, donation.Status)
	}

	campaign, err := s.campaignRepo.FindCampaignByID(ctx, donation.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign %s: %w", donation.CampaignID, err)
	}
	if err := s.validateAppointmentDate(campaign, req.AppointmentDate); err != nil {
		return nil, err
	}

	appointment := req.AppointmentDate
	donation.AppointmentDate = &appointment
	donation.LastUpdatedAt = now
	donation.LastUpdatedBy = actorID
	if err := s.donationRepo.UpdateDonationInTx(ctx, tx, *donation); err != nil {
		return nil, fmt.Errorf("failed to update donation %s: %w", donationID, err)
	}
	if err := s.donationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit reschedule: %w", err)
	}

	logger.Info("donation rescheduled",
		slog.String("donation_id", donation.DonationID),
		slog.String("appointment_date", appointment.Format(time.RFC3339)),
	)
	return donation, nil
}

// GetDonationByID retrieves a specific donation by its ID.
func (s *donationService) GetDonationByID(ctx context.Context, donationID string) (*domain.CampaignDonation, error) {
	donation, err := s.donationRepo.FindDonationByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	return donation, nil
}

// ListDonationsByCampaign retrieves a paginated donation list for a campaign.
func (s *donationService) ListDonationsByCampaign(ctx context.Context, campaignID string, params dto.ListDonationsParams) (*dto.ListDonationsResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	donations, nextToken, err := s.donationRepo.ListDonationsByCampaign(ctx, campaignID, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations for campaign %s: %w", campaignID, err)
	}
	return &dto.ListDonationsResponse{
		Donations: dto.ToDonationResponses(donations),
		NextToken: nextToken,
	}, nil
}

// ListDonationsByDonor retrieves every donation of one donor.
func (s *donationService) ListDonationsByDonor(ctx context.Context, donorID string) ([]domain.CampaignDonation, error) {
	donations, err := s.donationRepo.ListDonationsByDonor(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations for donor %s: %w", donorID, err)
	}
	return donations, nil
}

// GetDonationResult retrieves the result of a completed donation.
func (s *donationService) GetDonationResult(ctx context.Context, donationID string) (*domain.DonationResult, error) {
	result, err := s.donationRepo.FindResultByDonationID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find result for donation %s: %w", donationID, err)
	}
	return result, nil
}

// ListDonationLogs retrieves the donation's transition log.
func (s *donationService) ListDonationLogs(ctx context.Context, donationID string) ([]domain.CampaignDonationLog, error) {
	if _, err := s.donationRepo.FindDonationByID(ctx, donationID); err != nil {
		return nil, fmt.Errorf("failed to find donation %s: %w", donationID, err)
	}
	logs, err := s.donationRepo.ListLogsByDonation(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for donation %s: %w", donationID, err)
	}
	return logs, nil
}
