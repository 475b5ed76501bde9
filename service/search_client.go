package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Scalingo/sclng-repo-search/config"
	"github.com/Scalingo/sclng-repo-search/model"
	"github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	searchRepositoriesEndpoint = "search/repositories"

	// AcceptHeader pins the v3 version of the REST API
	AcceptHeader = "application/vnd.github.v3+json"

	networkWarningInterval = 30 * time.Second
)

// SearchClient sends one search request and converts every outcome into a terminal State.
// It never returns an error and never panics: failures are reported as Error or JSONParsingError.
type SearchClient interface {
	Search(ctx context.Context, query string) model.State
	SearchByOwner(ctx context.Context, owner string) model.State

	HandleRequestErrors(err error) error
}

type githubSearchClient struct {
	githubClient *github.Client

	// network failures are usually repeated on every search while offline
	networkWarning *rate.Sometimes
}

// NewGithubClient builds the go-github client used by the search client.
// The client is built here and passed to the search client to easily replace it with a mock in tests
func NewGithubClient(cfg config.Config) (*github.Client, error) {
	githubClient := github.NewClient(&http.Client{
		Timeout: cfg.Github.RequestTimeout(),
	})

	if cfg.Github.BaseURL == "" {
		return githubClient, nil
	}

	baseURL, err := url.Parse(cfg.Github.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github base url: %w", err)
	}

	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	githubClient.BaseURL = baseURL
	return githubClient, nil
}

func NewSearchClient(githubClient *github.Client) SearchClient {
	return &githubSearchClient{
		githubClient:   githubClient,
		networkWarning: &rate.Sometimes{Interval: networkWarningInterval},
	}
}

func (s *githubSearchClient) Search(ctx context.Context, query string) (state model.State) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("query", query).Errorf("unexpected failure while searching repositories: %v", r)
			state = model.Error{Err: fmt.Errorf("unexpected failure while searching repositories: %v", r)}
		}
	}()

	log.WithField("query", query).Info("search repositories on github")

	searchURL := searchRepositoriesEndpoint + "?" + url.Values{"q": {query}}.Encode()

	req, err := s.githubClient.NewRequest(http.MethodGet, searchURL, nil)
	if err != nil {
		log.WithError(err).Error("unable to build search request")
		return model.Error{Err: err}
	}

	req.Header.Set("Accept", AcceptHeader)

	// the body is copied as is, decoding is done by DecodeSearchResponse
	// to keep partially valid items instead of rejecting the whole response
	var body bytes.Buffer

	if _, err := s.githubClient.Do(ctx, req, &body); err != nil {
		return model.Error{Err: s.HandleRequestErrors(err)}
	}

	state = DecodeSearchResponse(body.Bytes())

	log.WithFields(log.Fields{
		"query": query,
		"state": state.Kind(),
	}).Debug("search response decoded")

	return state
}

func (s *githubSearchClient) SearchByOwner(ctx context.Context, owner string) model.State {
	return s.Search(ctx, model.OwnerQuery(owner))
}

// HandleRequestErrors classifies the errors returned by the github client.
// Transport failures (refused connection, DNS, timeout, connection dropped while reading the body)
// become a *model.NetworkError,
// any other error (cancellation, error responses, rate limit) is returned unchanged
func (s *githubSearchClient) HandleRequestErrors(err error) error {
	var rateLimitErr *github.RateLimitError
	var abuseRateLimitErr *github.AbuseRateLimitError
	var responseErr *github.ErrorResponse
	var urlErr *url.Error
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		log.Debug("search request canceled")
		return err

	case errors.As(err, &rateLimitErr), errors.As(err, &abuseRateLimitErr):
		log.WithError(err).Warning("the Github rate limit has been reached")
		return err

	case errors.As(err, &responseErr):
		log.WithError(err).Error("github answered the search request with an error")
		return err

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &urlErr), errors.As(err, &netErr):
		s.networkWarning.Do(func() {
			log.WithError(err).Warning("unable to reach github, check the network connection")
		})

		return &model.NetworkError{Cause: err}
	}

	log.WithError(err).Error("error catched when fetching data from github")
	return err
}
