package services

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrBundleMatchNotFound = errors.New("bundle match not found")
	ErrUnknownProduct      = errors.New("unknown product")
	ErrInvalidImport       = errors.New("invalid import file")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidFilter       = errors.New("invalid order filter")
	ErrChannelUnavailable  = errors.New("sales channel not configured")
	ErrPullInProgress      = errors.New("a pull for this channel is already running")
)
