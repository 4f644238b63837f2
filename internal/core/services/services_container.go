package services

import (
	portsrepo "github.com/redcross-vn/blood_bank_app/internal/core/ports/repositories"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/platform/config"
	"github.com/redcross-vn/blood_bank_app/internal/utils"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, posthogClient *utils.PosthogClientWrapper) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	var notifier portssvc.Notifier
	if posthogClient != nil && posthogClient.IsInitialized() {
		notifier = NewPosthogNotifier(posthogClient)
	} else {
		notifier = NewLogNotifier()
	}

	container.User = NewUserService(repos.UserRepo)
	container.Campaign = NewCampaignService(repos.CampaignRepo)
	container.BloodUnit = NewBloodUnitService(repos.BloodUnitRepo, repos.UserRepo, notifier)
	container.Donation = NewDonationService(repos.DonationRepo, repos.CampaignRepo, notifier)
	container.Emergency = NewEmergencyService(repos.EmergencyRepo, repos.BloodUnitRepo, repos.UserRepo, notifier)
	container.Token = NewTokenService(cfg.JWTSecret, cfg.JWTExpiryDuration)

	return container
}
