package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

func TestCanTransitionDonation(t *testing.T) {
	assert.True(t, domain.CanTransitionDonation(domain.DonationPending, domain.DonationAppointmentConfirmed))
	assert.True(t, domain.CanTransitionDonation(domain.DonationPending, domain.DonationRejected))
	assert.True(t, domain.CanTransitionDonation(domain.DonationPending, domain.DonationCustomerCancelled))
	assert.True(t, domain.CanTransitionDonation(domain.DonationAppointmentConfirmed, domain.DonationCheckedIn))
	assert.True(t, domain.CanTransitionDonation(domain.DonationAppointmentConfirmed, domain.DonationCompleted))
	assert.True(t, domain.CanTransitionDonation(domain.DonationCheckedIn, domain.DonationCompleted))
	assert.True(t, domain.CanTransitionDonation(domain.DonationCompleted, domain.DonationResultReturned))

	// Skips and reversals are not allowed.
	assert.False(t, domain.CanTransitionDonation(domain.DonationPending, domain.DonationCompleted))
	assert.False(t, domain.CanTransitionDonation(domain.DonationPending, domain.DonationCheckedIn))
	assert.False(t, domain.CanTransitionDonation(domain.DonationCompleted, domain.DonationPending))
	assert.False(t, domain.CanTransitionDonation(domain.DonationCheckedIn, domain.DonationCustomerCancelled))
}

func TestCanTransitionDonationSelfTransition(t *testing.T) {
	for from := range domain.DonationTransitions {
		assert.False(t, domain.CanTransitionDonation(from, from), "self transition from %s must be invalid", from)
	}
}

func TestCanTransitionDonationTerminalStates(t *testing.T) {
	terminals := []domain.DonationStatus{
		domain.DonationResultReturned,
		domain.DonationAppointmentCancelled,
		domain.DonationAppointmentAbsent,
		domain.DonationCustomerCancelled,
		domain.DonationRejected,
	}
	all := []domain.DonationStatus{
		domain.DonationPending,
		domain.DonationAppointmentConfirmed,
		domain.DonationCheckedIn,
		domain.DonationCompleted,
		domain.DonationResultReturned,
		domain.DonationAppointmentCancelled,
		domain.DonationAppointmentAbsent,
		domain.DonationCustomerCancelled,
		domain.DonationRejected,
	}
	for _, terminal := range terminals {
		assert.True(t, domain.IsTerminalDonationStatus(terminal), "%s should be terminal", terminal)
		for _, to := range all {
			assert.False(t, domain.CanTransitionDonation(terminal, to), "no transition may leave %s", terminal)
		}
	}
	assert.False(t, domain.IsTerminalDonationStatus(domain.DonationPending))
}
