package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Scalingo/sclng-repo-search/config"
	"github.com/Scalingo/sclng-repo-search/model"
	"github.com/Scalingo/sclng-repo-search/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type APIController interface {
	GetRepositories(ctx *gin.Context)
	GetOwnerRepositories(ctx *gin.Context)

	SubmitSearch(ctx *gin.Context)
	RetrySearch(ctx *gin.Context)
	GetSearchState(ctx *gin.Context)
	GetSearchStatus(ctx *gin.Context)
	StreamSearchStates(ctx *gin.Context)
}

type apiController struct {
	searchClient     service.SearchClient
	searchController service.SearchController
	config           config.Config
}

// SearchStatus describes the last search handled by the search controller
type SearchStatus struct {
	State           string     `json:"state"`
	LastQuery       string     `json:"lastQuery,omitempty"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
}

func NewAPIController(config config.Config, searchClient service.SearchClient, searchController service.SearchController) APIController {
	return apiController{
		searchClient:     searchClient,
		searchController: searchController,
		config:           config,
	}
}

// GetRepositories runs a single search and answers with its terminal state
func (s apiController) GetRepositories(c *gin.Context) {
	var searchRequest model.SearchRequest
	if err := c.ShouldBindQuery(&searchRequest); err != nil {
		c.JSON(http.StatusBadRequest, model.NewAPIError(err))
		return
	}

	if err := model.ValidateQuery(searchRequest.Query); err != nil {
		c.JSON(http.StatusBadRequest, model.NewAPIError(err))
		return
	}

	// an empty query is answered without calling github
	query := strings.TrimSpace(searchRequest.Query)
	if query == "" {
		s.respondWithState(c, model.Empty{})
		return
	}

	// execute the request
	s.respondWithState(c, s.searchClient.Search(c.Request.Context(), query))
}

// GetOwnerRepositories lists the repositories of a user or organization
func (s apiController) GetOwnerRepositories(c *gin.Context) {
	owner := strings.TrimSpace(c.Param("owner"))
	if owner == "" {
		s.respondWithState(c, model.Empty{})
		return
	}

	s.respondWithState(c, s.searchClient.SearchByOwner(c.Request.Context(), owner))
}

// SubmitSearch hands the query to the search controller. The result is observed
// with GetSearchState or StreamSearchStates
func (s apiController) SubmitSearch(c *gin.Context) {
	var searchRequest model.SearchRequest
	if err := c.ShouldBindJSON(&searchRequest); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, model.NewAPIError(err))
		return
	}

	if err := model.ValidateQuery(searchRequest.Query); err != nil {
		c.JSON(http.StatusBadRequest, model.NewAPIError(err))
		return
	}

	s.searchController.Submit(searchRequest.Query)
	c.JSON(http.StatusAccepted, model.NewStateView(s.searchController.State()))
}

func (s apiController) RetrySearch(c *gin.Context) {
	if _, found := s.searchController.LastQuery(); !found {
		c.Status(http.StatusNoContent)
		return
	}

	s.searchController.RetryLast()
	c.JSON(http.StatusAccepted, model.NewStateView(s.searchController.State()))
}

func (s apiController) GetSearchState(c *gin.Context) {
	state := s.searchController.State()
	if state == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, model.NewStateView(state))
}

func (s apiController) GetSearchStatus(c *gin.Context) {
	status := SearchStatus{State: "idle"}

	if state := s.searchController.State(); state != nil {
		status.State = string(state.Kind())
	}

	status.LastQuery, _ = s.searchController.LastQuery()

	if completedAt, found := s.searchController.LastCompletedAt(); found {
		status.LastCompletedAt = &completedAt
	}

	c.JSON(http.StatusOK, status)
}

// StreamSearchStates sends the current state then every new state as server sent events
func (s apiController) StreamSearchStates(c *gin.Context) {
	subscription := s.searchController.Subscribe()
	defer subscription.Unsubscribe()

	log.Debug("search states stream opened")

	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-subscription.C():
			if !ok {
				return false
			}

			c.SSEvent("state", model.NewStateView(state))
			return true

		case <-c.Request.Context().Done():
			return false
		}
	})

	log.Debug("search states stream closed")
}

func (s apiController) respondWithState(c *gin.Context, state model.State) {
	status := statusCodeVisitor{}
	state.Accept(&status)

	c.JSON(status.code, model.NewStateView(state))
}

// statusCodeVisitor maps a terminal state to the HTTP status returned to the caller
type statusCodeVisitor struct {
	code int
}

func (v *statusCodeVisitor) VisitLoading(model.Loading) {
	v.code = http.StatusAccepted
}

func (v *statusCodeVisitor) VisitSuccess(model.Success) {
	v.code = http.StatusOK
}

func (v *statusCodeVisitor) VisitEmpty(model.Empty) {
	v.code = http.StatusOK
}

func (v *statusCodeVisitor) VisitError(s model.Error) {
	var networkErr *model.NetworkError
	if errors.As(s.Err, &networkErr) {
		v.code = http.StatusServiceUnavailable
		return
	}

	v.code = http.StatusBadGateway
}

func (v *statusCodeVisitor) VisitJSONParsingError(model.JSONParsingError) {
	v.code = http.StatusBadGateway
}
