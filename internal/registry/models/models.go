// Package models holds the candidate and user registry records.
package models

import (
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
)

var (
	ErrUnauthorized = dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated as the registering wallet")
	ErrNotFound     = dErrors.New(dErrors.CodeNotFound, "wallet is not registered")
)

// Candidate is a wallet registered to stand in surveys. Timestamp is the
// ledger time of registration in unix seconds.
type Candidate struct {
	Wallet    id.Address `json:"wallet"`
	Name      string     `json:"name"`
	RFC       string     `json:"rfc"`
	Timestamp uint64     `json:"timestamp"`
}

// User is a wallet registered as a voter profile.
type User struct {
	Wallet           id.Address `json:"wallet"`
	FirstName        string     `json:"first_name"`
	PaternalLastName string     `json:"paternal_last_name"`
	MaternalLastName string     `json:"maternal_last_name"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`
	Timestamp        uint64     `json:"timestamp"`
}

// Kind names a registry in logs, metrics and audit events.
type Kind string

const (
	KindCandidate Kind = "candidate"
	KindUser      Kind = "user"
)
