package enums

import "fmt"

// VoteOption identifies one of the fixed products a visitor can vote for.
type VoteOption string

const (
	VoteOptionHandle         VoteOption = "handle"
	VoteOptionSiliconeBottom VoteOption = "siliconeBottom"
	VoteOptionCupSleeve      VoteOption = "cupSleeve"
	VoteOptionBabyBottle     VoteOption = "babyBottle"
)

// VoteOptions lists the options in display order.
var VoteOptions = []VoteOption{
	VoteOptionHandle,
	VoteOptionSiliconeBottom,
	VoteOptionCupSleeve,
	VoteOptionBabyBottle,
}

var voteOptionNames = map[VoteOption]string{
	VoteOptionHandle:         "DAMP Handle v1.0",
	VoteOptionSiliconeBottom: "Silicone Bottom v1.0",
	VoteOptionCupSleeve:      "Cup Sleeve v1.0",
	VoteOptionBabyBottle:     "Baby Bottle v1.0",
}

// String implements fmt.Stringer.
func (v VoteOption) String() string {
	return string(v)
}

// DisplayName returns the product name shown next to the option.
func (v VoteOption) DisplayName() string {
	return voteOptionNames[v]
}

// Position returns the option's index in VoteOptions, or -1 when unknown.
func (v VoteOption) Position() int {
	for i, candidate := range VoteOptions {
		if candidate == v {
			return i
		}
	}
	return -1
}

// IsValid reports whether the value is a known VoteOption.
func (v VoteOption) IsValid() bool {
	return v.Position() >= 0
}

// ParseVoteOption converts raw input into a VoteOption.
func ParseVoteOption(value string) (VoteOption, error) {
	for _, candidate := range VoteOptions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vote option %q", value)
}
