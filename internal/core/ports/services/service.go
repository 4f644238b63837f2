package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	BloodUnit BloodUnitSvcFacade
	Donation  DonationSvcFacade
	Emergency EmergencySvcFacade
	User      UserSvcFacade
	Campaign  CampaignSvcFacade
	Token     TokenSvc
}
