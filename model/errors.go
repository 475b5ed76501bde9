package model

import (
	"errors"
)

const (
	networkErrorMessage = "unable to connect. check your internet connection and try again"
	parsingErrorMessage = "an error occurred while parsing the data. please try again later"
)

var ErrInvalidQuery = errors.New("INVALID_QUERY")

// NetworkError is returned when the search endpoint could not be reached
// (no connection, DNS failure, timeout...)
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return networkErrorMessage
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ParsingError is returned when a response was received but its body could not be decoded
type ParsingError struct {
	Cause error
}

func (e *ParsingError) Error() string {
	return parsingErrorMessage
}

func (e *ParsingError) Unwrap() error {
	return e.Cause
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewAPIError(errReason error) APIError {
	var networkErr *NetworkError
	var parsingErr *ParsingError

	switch {
	case errors.As(errReason, &networkErr):
		return APIError{
			Code:    "NETWORK_ERROR",
			Message: networkErr.Error(),
		}

	case errors.As(errReason, &parsingErr):
		return APIError{
			Code:    "JSON_PARSING_ERROR",
			Message: parsingErr.Error(),
		}

	case errors.Is(errReason, ErrInvalidQuery):
		return APIError{
			Code:    ErrInvalidQuery.Error(),
			Message: "invalid search query. queries can't start with #",
		}

	case errReason != nil:
		return APIError{
			Code:    "GENERIC_ERROR",
			Message: errReason.Error(),
		}
	}

	return APIError{
		Code:    "GENERIC_ERROR",
		Message: "internal server error. contact our support with the reason code for assistance",
	}
}
