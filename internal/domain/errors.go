package domain

import "errors"

var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrProductNotFound         = errors.New("product not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderAlreadyExists      = errors.New("order already exists for session")
	ErrSignatureInvalid        = errors.New("webhook signature invalid")
	ErrIncompleteSessionData   = errors.New("checkout session data incomplete")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidID               = errors.New("invalid id")
)
