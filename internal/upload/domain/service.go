package domain

import "context"

type Service interface {
	GetStatus(ctx context.Context, uploadID string) (*StatusResponse, error)
}

type StatusResponse struct {
	ID             string  `json:"id"`
	Status         Status  `json:"status"`
	TotalLegs      int     `json:"total_legs"`
	TotalClients   int     `json:"total_clients"`
	TotalAmountTTC float64 `json:"total_amount_ttc"`
}
