package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEntryPrice = errors.New("entry price must be a finite positive number")
	ErrInvalidDirection  = errors.New("direction must be LONG or SHORT")
	ErrFutureEntryDate   = errors.New("entry date must be in the past")
	ErrInvalidEntryDate  = errors.New("entry date is not parsable")
	ErrInvalidInterval   = errors.New("unsupported kline interval")
	ErrMalformedBar      = errors.New("malformed kline bar")
	ErrMissingSymbol     = errors.New("symbol is required")
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrUpstream          = errors.New("upstream market data error")

	// Causes carried by UpstreamError.Err for unusable response bodies.
	ErrNotJSON = errors.New("response is not JSON")
	ErrBadJSON = errors.New("response JSON does not parse")
)

// UpstreamError describes a failed call to the market-data provider.
// It matches ErrUpstream under errors.Is.
type UpstreamError struct {
	Status      int    // HTTP status, 0 when the request never completed
	Message     string
	BodyPreview string // first 400 bytes of the response body
	Err         error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status=%d", msg, e.Status)
		if e.BodyPreview != "" {
			preview := e.BodyPreview
			if len(preview) > 200 {
				preview = preview[:200]
			}
			msg += ", body=" + preview
		}
		msg += ")"
	}
	return msg
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstream, e.Err}
	}
	return []error{ErrUpstream}
}
