package enums

import "fmt"

// VoteType records how the voter was identified.
type VoteType string

const (
	VoteTypePublic        VoteType = "public"
	VoteTypeAuthenticated VoteType = "authenticated"
)

var validVoteTypes = []VoteType{
	VoteTypePublic,
	VoteTypeAuthenticated,
}

// String implements fmt.Stringer.
func (v VoteType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoteType.
func (v VoteType) IsValid() bool {
	for _, candidate := range validVoteTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoteType converts raw input into a VoteType.
func ParseVoteType(value string) (VoteType, error) {
	for _, candidate := range validVoteTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vote type %q", value)
}
