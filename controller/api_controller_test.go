package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Scalingo/sclng-repo-search/config"
	"github.com/Scalingo/sclng-repo-search/metrics"
	"github.com/Scalingo/sclng-repo-search/model"
	"github.com/Scalingo/sclng-repo-search/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type searchClientMock struct {
	mock.Mock
}

func (m *searchClientMock) Search(ctx context.Context, query string) model.State {
	args := m.Called(ctx, query)
	return args.Get(0).(model.State)
}

func (m *searchClientMock) SearchByOwner(ctx context.Context, owner string) model.State {
	args := m.Called(ctx, owner)
	return args.Get(0).(model.State)
}

func (m *searchClientMock) HandleRequestErrors(err error) error {
	return err
}

func setupRouter(t *testing.T, client *searchClientMock) (*gin.Engine, service.SearchController) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	cfg := config.GetDefault()
	searchController := service.NewSearchController(*cfg, client, metrics.NewRecorder(registry))
	t.Cleanup(func() {
		_ = searchController.Close()
	})

	apiController := NewAPIController(*cfg, client, searchController)
	return NewRouter(apiController, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})), searchController
}

func decodeView(t *testing.T, recorder *httptest.ResponseRecorder) model.StateView {
	t.Helper()

	var view model.StateView
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &view))
	return view
}

// waitForTerminalState polls the controller until the search is finished
func waitForTerminalState(t *testing.T, searchController service.SearchController) model.State {
	t.Helper()

	var state model.State
	require.Eventually(t, func() bool {
		state = searchController.State()
		return model.IsTerminal(state)
	}, 2*time.Second, 10*time.Millisecond)

	return state
}

// TestGetRepositories test the one shot search route
func TestGetRepositories(t *testing.T) {
	items := []model.RepositoryItem{{Name: "owner/repo", Language: "Go", StargazersCount: 3}}

	tests := []struct {
		name           string
		url            string
		query          string
		result         model.State
		expectedStatus int
		expectedKind   model.StateKind
		expectedCode   string
	}{
		{
			name:           "Success",
			url:            "/repos?q=android",
			query:          "android",
			result:         model.Success{Items: items},
			expectedStatus: http.StatusOK,
			expectedKind:   model.KindSuccess,
		},
		{
			name:           "No result",
			url:            "/repos?q=android",
			query:          "android",
			result:         model.Empty{},
			expectedStatus: http.StatusOK,
			expectedKind:   model.KindEmpty,
		},
		{
			name:           "Empty query is not sent",
			url:            "/repos",
			expectedStatus: http.StatusOK,
			expectedKind:   model.KindEmpty,
		},
		{
			name:           "Blank query is not sent",
			url:            "/repos?q=%20%20",
			expectedStatus: http.StatusOK,
			expectedKind:   model.KindEmpty,
		},
		{
			name:           "Query is trimmed",
			url:            "/repos?q=%20android%20",
			query:          "android",
			result:         model.Empty{},
			expectedStatus: http.StatusOK,
			expectedKind:   model.KindEmpty,
		},
		{
			name:           "Network error",
			url:            "/repos?q=android",
			query:          "android",
			result:         model.Error{Err: &model.NetworkError{}},
			expectedStatus: http.StatusServiceUnavailable,
			expectedKind:   model.KindError,
			expectedCode:   "NETWORK_ERROR",
		},
		{
			name:           "Parsing error",
			url:            "/repos?q=android",
			query:          "android",
			result:         model.JSONParsingError{Err: &model.ParsingError{}},
			expectedStatus: http.StatusBadGateway,
			expectedKind:   model.KindJSONParsingError,
			expectedCode:   "JSON_PARSING_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &searchClientMock{}
			if tt.query != "" {
				client.On("Search", mock.Anything, tt.query).Return(tt.result).Once()
			}

			router, _ := setupRouter(t, client)

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.expectedStatus, recorder.Code)

			view := decodeView(t, recorder)
			assert.Equal(t, tt.expectedKind, view.State)

			if tt.expectedCode != "" {
				require.NotNil(t, view.Error)
				assert.Equal(t, tt.expectedCode, view.Error.Code)
			}

			client.AssertExpectations(t)
			if tt.query == "" {
				client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestGetRepositoriesRejectsInvalidQuery(t *testing.T) {
	client := &searchClientMock{}
	router, _ := setupRouter(t, client)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/repos?q=%23android", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INVALID_QUERY")
	client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestGetOwnerRepositories(t *testing.T) {
	client := &searchClientMock{}
	client.On("SearchByOwner", mock.Anything, "octocat").
		Return(model.Success{Items: []model.RepositoryItem{{Name: "octocat/hello-world"}}}).Once()

	router, _ := setupRouter(t, client)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/owners/octocat/repos", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	view := decodeView(t, recorder)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "octocat/hello-world", view.Items[0].Name)
}

func TestGetOwnerRepositoriesBlankOwner(t *testing.T) {
	client := &searchClientMock{}
	router, _ := setupRouter(t, client)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/owners/%20/repos", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, model.KindEmpty, decodeView(t, recorder).State)
	client.AssertNotCalled(t, "SearchByOwner", mock.Anything, mock.Anything)
}

func TestSubmitAndRetrySearch(t *testing.T) {
	client := &searchClientMock{}
	client.On("Search", mock.Anything, "android").Return(model.Error{Err: &model.NetworkError{}}).Once()
	client.On("Search", mock.Anything, "android").Return(model.Empty{}).Once()

	router, searchController := setupRouter(t, client)

	// nothing to retry yet
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/search/retry", nil))
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/search/state", nil))
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": "android"}`)))
	assert.Equal(t, http.StatusAccepted, recorder.Code)
	assert.Equal(t, model.KindError, waitForTerminalState(t, searchController).Kind())

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/search/state", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	view := decodeView(t, recorder)
	assert.Equal(t, model.KindError, view.State)
	require.NotNil(t, view.Error)
	assert.Equal(t, "NETWORK_ERROR", view.Error.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/search/retry", nil))
	assert.Equal(t, http.StatusAccepted, recorder.Code)
	require.Eventually(t, func() bool {
		return searchController.State() == model.Empty{}
	}, 2*time.Second, 10*time.Millisecond)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/search/status", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	var status SearchStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal(t, "empty", status.State)
	assert.Equal(t, "android", status.LastQuery)
	assert.NotNil(t, status.LastCompletedAt)

	client.AssertNumberOfCalls(t, "Search", 2)
}

func TestSubmitSearchValidation(t *testing.T) {
	client := &searchClientMock{}
	router, searchController := setupRouter(t, client)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": "#android"}`)))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": `)))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// an empty query gives Empty immediately
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": ""}`)))
	assert.Equal(t, http.StatusAccepted, recorder.Code)
	assert.Equal(t, model.KindEmpty, decodeView(t, recorder).State)
	assert.Equal(t, model.Empty{}, searchController.State())

	client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestStreamSearchStates(t *testing.T) {
	client := &searchClientMock{}
	router, searchController := setupRouter(t, client)

	searchController.Submit("")

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/search/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var data string

	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data:") {
			data = strings.TrimPrefix(line, "data:")
			break
		}
	}

	var view model.StateView
	require.NoError(t, json.Unmarshal([]byte(data), &view))
	assert.Equal(t, model.KindEmpty, view.State)
}

func TestMetricsRoute(t *testing.T) {
	client := &searchClientMock{}
	client.On("Search", mock.Anything, "go").Return(model.Empty{}).Once()

	router, searchController := setupRouter(t, client)
	searchController.Submit("go")
	waitForTerminalState(t, searchController)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `reposearch_searches_total{outcome="empty"} 1`)
}
