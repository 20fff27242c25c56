package domain

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderExists       = errors.New("order already exists for payment session")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
)
