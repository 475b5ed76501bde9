package model

import "strings"

// OwnerQualifier is the search qualifier restricting results to a single user or organization
const OwnerQualifier = "user:"

// SearchRequest is the body accepted by the search endpoints
type SearchRequest struct {
	Query string `json:"query" form:"q"`
}

// OwnerQuery builds the search query listing repositories of owner
func OwnerQuery(owner string) string {
	return OwnerQualifier + owner
}

// ValidateQuery rejects queries the search screen refuses to send.
// An empty query is valid here: it is answered with the Empty state without any request.
func ValidateQuery(query string) error {
	if strings.HasPrefix(strings.TrimSpace(query), "#") {
		return ErrInvalidQuery
	}

	return nil
}
