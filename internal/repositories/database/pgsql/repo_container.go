package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		BloodUnitRepo: newPgxBloodUnitRepository(dbPool),
		DonationRepo:  newPgxDonationRepository(dbPool),
		EmergencyRepo: newPgxEmergencyRepository(dbPool),
		UserRepo:      newPgxUserRepository(dbPool),
		CampaignRepo:  newPgxCampaignRepository(dbPool),
	}
}
