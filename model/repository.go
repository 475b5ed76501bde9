package model

import "strings"

// UnknownLanguage is used when the API does not report a primary language
const UnknownLanguage = "Unknown"

const githubWebURL = "https://github.com/"

// RepositoryItem is one repository returned by the search endpoint.
// It is a plain value: compare with == and pass it around by copy.
type RepositoryItem struct {
	Name            string `json:"name"` // owner/repo
	OwnerIconURL    string `json:"ownerIconUrl"`
	Language        string `json:"language"`
	StargazersCount int64  `json:"stargazersCount"`
	WatchersCount   int64  `json:"watchersCount"`
	ForksCount      int64  `json:"forksCount"`
	OpenIssuesCount int64  `json:"openIssuesCount"`
}

// Owner returns the login part of the repository full name
func (r RepositoryItem) Owner() string {
	owner, _, _ := strings.Cut(r.Name, "/")
	return owner
}

// HTMLURL returns the repository page on github.com
func (r RepositoryItem) HTMLURL() string {
	return githubWebURL + r.Name
}

func (r RepositoryItem) DisplayLanguage() string {
	if r.Language == "" {
		return UnknownLanguage
	}

	return r.Language
}

// SameRepository reports whether both items point to the same repository,
// regardless of the counters (which change between two searches)
func (r RepositoryItem) SameRepository(other RepositoryItem) bool {
	return r.Name == other.Name
}
