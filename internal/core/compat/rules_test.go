package compat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redcross-vn/blood_bank_app/internal/core/compat"
	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

func bt(s string) domain.BloodType {
	parsed, err := domain.ParseBloodType(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestCompatibleDonorsForWholeBlood(t *testing.T) {
	testCases := []struct {
		recipient string
		donors    []string
	}{
		{"O-", []string{"O-"}},
		{"O+", []string{"O-", "O+"}},
		{"A-", []string{"A-", "O-"}},
		{"A+", []string{"A-", "A+", "O-", "O+"}},
		{"B-", []string{"B-", "O-"}},
		{"B+", []string{"B-", "B+", "O-", "O+"}},
		{"AB-", []string{"AB-", "A-", "B-", "O-"}},
		{"AB+", []string{"AB-", "AB+", "A-", "A+", "B-", "B+", "O-", "O+"}},
	}
	for _, tc := range testCases {
		t.Run(tc.recipient, func(t *testing.T) {
			got := compat.CompatibleDonorsForWholeBlood(bt(tc.recipient))
			want := make([]domain.BloodType, 0, len(tc.donors))
			for _, d := range tc.donors {
				want = append(want, bt(d))
			}
			assert.ElementsMatch(t, want, got)
		})
	}
}

func TestCompatibleDonorsForPlasma(t *testing.T) {
	// Plasma compatibility is the inverse of red cell compatibility: AB is the
	// universal donor and O the universal recipient. Rh does not restrict.
	got := compat.CompatibleDonorsForPlasma(bt("O+"))
	assert.Len(t, got, 8, "O recipients accept plasma from every ABO group")

	got = compat.CompatibleDonorsForPlasma(bt("AB-"))
	assert.ElementsMatch(t, []domain.BloodType{bt("AB+"), bt("AB-")}, got)

	got = compat.CompatibleDonorsForPlasma(bt("A+"))
	assert.ElementsMatch(t, []domain.BloodType{bt("A+"), bt("A-"), bt("AB+"), bt("AB-")}, got)
}

func TestCompatibleDonorsForPlatelets(t *testing.T) {
	got := compat.CompatibleDonorsForPlatelets(bt("B-"))
	// Every type is acceptable under the fallback, ABO-matched ones ranked first.
	assert.Len(t, got, 8)
	assert.Equal(t, domain.GroupB, got[0].Group)
	assert.Equal(t, domain.GroupB, got[1].Group)
}

func TestCompatibleDonorsMalformedInput(t *testing.T) {
	bad := domain.BloodType{Group: "X", Rh: "+"}
	assert.Empty(t, compat.CompatibleDonorsForWholeBlood(bad))
	assert.Empty(t, compat.CompatibleDonorsForPlasma(bad))
	assert.Empty(t, compat.CompatibleDonorsForPlatelets(bad))
	assert.Empty(t, compat.CompatibleDonors(bad, domain.WholeBlood))
}

func TestCanDonate(t *testing.T) {
	assert.True(t, compat.CanDonate(bt("O-"), bt("AB+"), domain.WholeBlood))
	assert.True(t, compat.CanDonate(bt("O+"), bt("A+"), domain.RedCells))
	assert.False(t, compat.CanDonate(bt("O+"), bt("A-"), domain.WholeBlood), "Rh+ donor cannot serve Rh- recipient")
	assert.False(t, compat.CanDonate(bt("A+"), bt("O+"), domain.WholeBlood))

	assert.True(t, compat.CanDonate(bt("AB+"), bt("O-"), domain.Plasma))
	assert.False(t, compat.CanDonate(bt("O-"), bt("AB+"), domain.Plasma))

	assert.True(t, compat.CanDonate(bt("A+"), bt("B-"), domain.Platelets))

	assert.False(t, compat.CanDonate(bt("O-"), bt("AB+"), domain.ComponentType("UNKNOWN")))
}
