package domain

import (
	"strconv"
	"strings"
	"unicode"

	dErrors "pollbook/pkg/domain-errors"
)

// MaxAddressLength bounds identity addresses. Stellar account and contract
// addresses are 56 characters; the limit leaves room for other schemes.
const MaxAddressLength = 128

// Address is an opaque, authenticable identity (voter, candidate, creator, admin).
// pollbook never interprets its contents beyond the parse-time checks below.
type Address string

// ParseAddress trims and validates an address at a trust boundary.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if len(s) > MaxAddressLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be at most 128 characters")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "address must not contain whitespace or control characters")
		}
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsNil() bool {
	return a == ""
}

// ParseAddresses parses every element, keeping order and duplicates.
func ParseAddresses(values []string) ([]Address, error) {
	out := make([]Address, 0, len(values))
	for _, v := range values {
		addr, err := ParseAddress(v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// SurveyID is the sequential, 1-based survey identifier.
type SurveyID uint64

// ParseSurveyID parses a decimal survey id from a path segment.
func ParseSurveyID(s string) (SurveyID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "survey id must be a positive integer")
	}
	if v == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "survey id must be a positive integer")
	}
	return SurveyID(v), nil
}

func (id SurveyID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
