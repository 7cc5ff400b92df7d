package model

import "github.com/google/uuid"

// PaymentInstruction is one step of the manual bank-transfer procedure.
type PaymentInstruction struct {
	ID          uuid.UUID `json:"id"`
	GatewayID   uuid.UUID `json:"gateway_id"`
	StepNumber  int       `json:"step_number"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}
