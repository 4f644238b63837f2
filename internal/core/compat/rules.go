// Package compat encodes ABO/Rh transfusion compatibility rules. It is pure
// and stateless: callers are expected to reject malformed blood types upstream.
package compat

import (
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// wholeBloodDonorGroups maps a recipient ABO group to the donor groups it can
// receive whole blood or red cells from. O donates to all, AB receives from all.
var wholeBloodDonorGroups = map[domain.BloodGroup][]domain.BloodGroup{
	domain.GroupA:  {domain.GroupA, domain.GroupO},
	domain.GroupB:  {domain.GroupB, domain.GroupO},
	domain.GroupAB: {domain.GroupAB, domain.GroupA, domain.GroupB, domain.GroupO},
	domain.GroupO:  {domain.GroupO},
}

// plasmaDonorGroups is the inverse of the whole-blood table: AB is the
// universal plasma donor and O the universal plasma recipient.
var plasmaDonorGroups = map[domain.BloodGroup][]domain.BloodGroup{
	domain.GroupA:  {domain.GroupA, domain.GroupAB},
	domain.GroupB:  {domain.GroupB, domain.GroupAB},
	domain.GroupAB: {domain.GroupAB},
	domain.GroupO:  {domain.GroupO, domain.GroupA, domain.GroupB, domain.GroupAB},
}

// CompatibleDonorsForWholeBlood returns the donor blood types whose whole
// blood (or red cells) a recipient of the given type can receive. Rh- donors
// serve both Rh factors; Rh+ donors serve Rh+ recipients only. Returns an
// empty slice for malformed input.
func CompatibleDonorsForWholeBlood(recipient domain.BloodType) []domain.BloodType {
	groups, ok := wholeBloodDonorGroups[recipient.Group]
	if !ok || !recipient.IsValid() {
		return nil
	}
	donors := make([]domain.BloodType, 0, len(groups)*2)
	for _, g := range groups {
		// Rh- is always acceptable; Rh+ only for Rh+ recipients.
		donors = append(donors, domain.BloodType{Group: g, Rh: domain.RhNegative})
		if recipient.Rh == domain.RhPositive {
			donors = append(donors, domain.BloodType{Group: g, Rh: domain.RhPositive})
		}
	}
	return donors
}

// CompatibleDonorsForPlasma returns the donor blood types whose plasma a
// recipient of the given type can receive. Plasma carries no red cells, so the
// Rh factor is not restrictive. Returns an empty slice for malformed input.
func CompatibleDonorsForPlasma(recipient domain.BloodType) []domain.BloodType {
	groups, ok := plasmaDonorGroups[recipient.Group]
	if !ok || !recipient.IsValid() {
		return nil
	}
	donors := make([]domain.BloodType, 0, len(groups)*2)
	for _, g := range groups {
		donors = append(donors,
			domain.BloodType{Group: g, Rh: domain.RhPositive},
			domain.BloodType{Group: g, Rh: domain.RhNegative},
		)
	}
	return donors
}

// CompatibleDonorsForPlatelets returns donor blood types for platelet
// transfusion. ABO-matched platelets are preferred and listed first, but under
// the emergency fallback a recipient may receive platelets from any ABO group,
// so the full set is returned. Rh is non-critical for platelets. Returns an
// empty slice for malformed input.
func CompatibleDonorsForPlatelets(recipient domain.BloodType) []domain.BloodType {
	if !recipient.IsValid() {
		return nil
	}
	matched := make([]domain.BloodType, 0, 2)
	rest := make([]domain.BloodType, 0, 6)
	for _, bt := range domain.AllBloodTypes() {
		if bt.Group == recipient.Group {
			matched = append(matched, bt)
		} else {
			rest = append(rest, bt)
		}
	}
	return append(matched, rest...)
}

// CompatibleDonors dispatches on the requested component type.
func CompatibleDonors(recipient domain.BloodType, component domain.ComponentType) []domain.BloodType {
	switch component {
	case domain.Plasma:
		return CompatibleDonorsForPlasma(recipient)
	case domain.Platelets:
		return CompatibleDonorsForPlatelets(recipient)
	case domain.WholeBlood, domain.RedCells:
		return CompatibleDonorsForWholeBlood(recipient)
	default:
		return nil
	}
}

// CanDonate reports whether a donor of the given type can serve a recipient
// for the given component.
func CanDonate(donor, recipient domain.BloodType, component domain.ComponentType) bool {
	for _, bt := range CompatibleDonors(recipient, component) {
		if bt.Equal(donor) {
			return true
		}
	}
	return false
}
