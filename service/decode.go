package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"unicode/utf8"

	"github.com/Scalingo/sclng-repo-search/model"
	"github.com/buger/jsonparser"
	log "github.com/sirupsen/logrus"
)

var (
	errInvalidJSON       = errors.New("response body is not valid JSON")
	errEnvelopeNotObject = errors.New("response body is not a JSON object")
)

// DecodeSearchResponse converts the body of a repository search response into a State.
//
// The envelope must be a valid JSON object, anything else is a JSONParsingError.
// A missing, null or empty "items" array gives Empty. Items are decoded field by field:
// a missing field falls back to its default instead of rejecting the whole batch,
// and elements which are not objects are skipped.
func DecodeSearchResponse(body []byte) model.State {
	if !json.Valid(body) {
		return model.JSONParsingError{Err: &model.ParsingError{Cause: errInvalidJSON}}
	}

	if trimmed := bytes.TrimSpace(body); trimmed[0] != '{' {
		return model.JSONParsingError{Err: &model.ParsingError{Cause: errEnvelopeNotObject}}
	}

	rawItems, dataType, _, err := jsonparser.Get(body, "items")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return model.Empty{}
	}

	if err != nil {
		return model.JSONParsingError{Err: &model.ParsingError{Cause: err}}
	}

	// null, or anything which is not the expected array
	if dataType != jsonparser.Array {
		log.WithField("itemsType", dataType.String()).Debug("search response without items array")
		return model.Empty{}
	}

	if len(bytes.TrimSpace(rawItems[1:len(rawItems)-1])) == 0 {
		return model.Empty{}
	}

	items := make([]model.RepositoryItem, 0)
	skipped := 0

	_, err = jsonparser.ArrayEach(rawItems, func(value []byte, valueType jsonparser.ValueType, _ int, _ error) {
		if valueType != jsonparser.Object {
			skipped += 1
			return
		}

		items = append(items, decodeRepositoryItem(value))
	})

	if err != nil {
		return model.JSONParsingError{Err: &model.ParsingError{Cause: err}}
	}

	if skipped > 0 {
		log.WithField("skippedItems", skipped).Debug("search response contains items which are not objects. skipped")
	}

	if len(items) == 0 {
		return model.Empty{}
	}

	return model.Success{Items: items}
}

func decodeRepositoryItem(data []byte) model.RepositoryItem {
	return model.RepositoryItem{
		Name:            stringField(data, "", "full_name"),
		OwnerIconURL:    stringField(data, "", "owner", "avatar_url"),
		Language:        stringField(data, model.UnknownLanguage, "language"),
		StargazersCount: countField(data, "stargazers_count"),
		WatchersCount:   countField(data, "watchers_count"),
		ForksCount:      countField(data, "forks_count"),
		OpenIssuesCount: countField(data, "open_issues_count"),
	}
}

// stringField returns the string found at keys, or fallback when it is missing, null or not a string.
// Lone surrogates and invalid UTF-8 bytes are replaced by U+FFFD
func stringField(data []byte, fallback string, keys ...string) string {
	raw, dataType, _, err := jsonparser.Get(data, keys...)
	if err != nil || dataType != jsonparser.String {
		return fallback
	}

	if value, err := jsonparser.ParseString(raw); err == nil && utf8.ValidString(value) {
		return value
	}

	quoted := make([]byte, 0, len(raw)+2)
	quoted = append(append(append(quoted, '"'), raw...), '"')

	var value string
	if err := json.Unmarshal(quoted, &value); err != nil {
		return fallback
	}

	return value
}

// countField returns the non-negative integer found at key, 0 otherwise
func countField(data []byte, key string) int64 {
	if value, err := jsonparser.GetInt(data, key); err == nil {
		return max(value, 0)
	}

	// some counters may be sent as 42.0
	value, err := jsonparser.GetFloat(data, key)
	if err != nil || value < 0 || value >= math.MaxInt64 || math.IsNaN(value) {
		return 0
	}

	return int64(value)
}
