package handler

import id "pollbook/pkg/domain"

type RegisterResponse struct {
	Registered bool       `json:"registered"`
	Wallet     id.Address `json:"wallet"`
}

type ListResponse struct {
	Wallets []id.Address `json:"wallets"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}
