package domain

import "errors"

var (
	// ErrAPI covers transport, HTTP and parse failures talking to the panel.
	ErrAPI = errors.New("panel api error")
	// ErrProvisioning means the panel explicitly rejected user creation.
	ErrProvisioning = errors.New("provisioning failed")

	ErrPlanNotFound       = errors.New("plan not found")
	ErrPlanInactive       = errors.New("plan inactive")
	ErrAlreadyPending     = errors.New("order already pending")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConfirmInProgress  = errors.New("confirmation already in progress")
	ErrInvalidRequesterID = errors.New("invalid requester id")
	ErrJournalDisabled    = errors.New("order journal disabled")
)
