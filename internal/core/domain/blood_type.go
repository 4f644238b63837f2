package domain

import "fmt"

// BloodGroup is the ABO group of a blood type.
type BloodGroup string

const (
	GroupA  BloodGroup = "A"
	GroupB  BloodGroup = "B"
	GroupAB BloodGroup = "AB"
	GroupO  BloodGroup = "O"
)

// RhFactor is the Rhesus factor of a blood type.
type RhFactor string

const (
	RhPositive RhFactor = "+"
	RhNegative RhFactor = "-"
)

// BloodType is the immutable ABO/Rh pair identifying transfusion compatibility.
// It is used as a composite key (two columns in the store).
type BloodType struct {
	Group BloodGroup `json:"group"`
	Rh    RhFactor   `json:"rh"`
}

// String renders the conventional notation, e.g. "A+", "O-".
func (bt BloodType) String() string {
	return string(bt.Group) + string(bt.Rh)
}

// Equal reports whether two blood types are the same ABO/Rh pair.
func (bt BloodType) Equal(other BloodType) bool {
	return bt.Group == other.Group && bt.Rh == other.Rh
}

// IsValid reports whether the pair is a well-formed ABO/Rh combination.
func (bt BloodType) IsValid() bool {
	switch bt.Group {
	case GroupA, GroupB, GroupAB, GroupO:
	default:
		return false
	}
	switch bt.Rh {
	case RhPositive, RhNegative:
	default:
		return false
	}
	return true
}

// ParseBloodType parses conventional notation ("AB-", "O+") into a BloodType.
func ParseBloodType(s string) (BloodType, error) {
	if len(s) < 2 {
		return BloodType{}, fmt.Errorf("malformed blood type %q", s)
	}
	bt := BloodType{
		Group: BloodGroup(s[:len(s)-1]),
		Rh:    RhFactor(s[len(s)-1:]),
	}
	if !bt.IsValid() {
		return BloodType{}, fmt.Errorf("malformed blood type %q", s)
	}
	return bt, nil
}

// AllBloodTypes lists every valid ABO/Rh combination.
func AllBloodTypes() []BloodType {
	groups := []BloodGroup{GroupA, GroupB, GroupAB, GroupO}
	factors := []RhFactor{RhPositive, RhNegative}
	types := make([]BloodType, 0, len(groups)*len(factors))
	for _, g := range groups {
		for _, rh := range factors {
			types = append(types, BloodType{Group: g, Rh: rh})
		}
	}
	return types
}
