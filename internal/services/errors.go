package services

import "errors"

var (
	ErrNoSession           = errors.New("you are not signed in, please sign in and try again")
	ErrLocationUnavailable = errors.New("could not determine your location")
	ErrAlreadyInitialized  = errors.New("active case service already initialized")
	ErrSOSInProgress       = errors.New("an SOS alert is already being sent")
)
