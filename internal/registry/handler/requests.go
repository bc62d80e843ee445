package handler

import (
	"strings"

	"pollbook/internal/registry/service"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
)

const maxFieldLength = 256

// RegisterCandidateRequest is the body of POST /candidates. Wallet defaults to
// the authenticated identity.
type RegisterCandidateRequest struct {
	Wallet string `json:"wallet"`
	Name   string `json:"name"`
	RFC    string `json:"rfc"`

	wallet id.Address
}

func (r *RegisterCandidateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	r.RFC = strings.ToUpper(strings.TrimSpace(r.RFC))
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.RFC == "" {
		return dErrors.New(dErrors.CodeValidation, "rfc is required")
	}
	if err := checkLengths(map[string]string{"name": r.Name, "rfc": r.RFC}); err != nil {
		return err
	}
	return parseWalletField(r.Wallet, &r.wallet)
}

func (r *RegisterCandidateRequest) toInput() service.CandidateInput {
	return service.CandidateInput{Wallet: r.wallet, Name: r.Name, RFC: r.RFC}
}

// RegisterUserRequest is the body of POST /users.
type RegisterUserRequest struct {
	Wallet           string `json:"wallet"`
	FirstName        string `json:"first_name"`
	PaternalLastName string `json:"paternal_last_name"`
	MaternalLastName string `json:"maternal_last_name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`

	wallet id.Address
}

func (r *RegisterUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.PaternalLastName = strings.TrimSpace(r.PaternalLastName)
	r.MaternalLastName = strings.TrimSpace(r.MaternalLastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.FirstName == "" || r.PaternalLastName == "" {
		return dErrors.New(dErrors.CodeValidation, "first_name and paternal_last_name are required")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if err := checkLengths(map[string]string{
		"first_name":         r.FirstName,
		"paternal_last_name": r.PaternalLastName,
		"maternal_last_name": r.MaternalLastName,
		"phone":              r.Phone,
		"email":              r.Email,
	}); err != nil {
		return err
	}
	return parseWalletField(r.Wallet, &r.wallet)
}

func (r *RegisterUserRequest) toInput() service.UserInput {
	return service.UserInput{
		Wallet:           r.wallet,
		FirstName:        r.FirstName,
		PaternalLastName: r.PaternalLastName,
		MaternalLastName: r.MaternalLastName,
		Phone:            r.Phone,
		Email:            r.Email,
	}
}

func checkLengths(fields map[string]string) error {
	for name, v := range fields {
		if len(v) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, name+" must be at most 256 characters")
		}
	}
	return nil
}

func parseWalletField(raw string, dst *id.Address) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	wallet, err := id.ParseAddress(raw)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid wallet address")
	}
	*dst = wallet
	return nil
}
