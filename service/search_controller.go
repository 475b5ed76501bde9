package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Scalingo/sclng-repo-search/config"
	"github.com/Scalingo/sclng-repo-search/logger"
	"github.com/Scalingo/sclng-repo-search/metrics"
	"github.com/Scalingo/sclng-repo-search/model"
	events "github.com/docker/go-events"
	"github.com/google/uuid"
	"github.com/remeh/sizedwaitgroup"
	log "github.com/sirupsen/logrus"
)

var errNoResult = errors.New("search finished without any result")

// ErrControllerClosed ends the search which was in progress when the controller was closed
var ErrControllerClosed = errors.New("search controller closed")

// SearchController owns the state of the last search and remembers the last query for retry.
//
// Each submission publishes Loading, then its terminal state. Submitting a new query cancels
// the search in flight: its result is dropped, so the state always reflects the last submitted query.
type SearchController interface {
	Submit(query string)
	RetryLast()
	Subscribe() *Subscription

	State() model.State
	LastQuery() (string, bool)
	LastCompletedAt() (time.Time, bool)

	Close() error
}

type searchController struct {
	searchClient SearchClient
	recorder     *metrics.Recorder
	broadcaster  *events.Broadcaster
	now          func() time.Time

	// bounds the number of search goroutines, including the canceled ones still running
	inFlight sizedwaitgroup.SizedWaitGroup
	// held for reading by Submit around inFlight.Add, Close locks it before inFlight.Wait
	submitting sync.RWMutex

	mu            sync.Mutex
	state         model.State // nil until the first submission
	lastQuery     string
	lastCompleted time.Time
	generation    uint64
	cancel        context.CancelFunc
	subscriptions map[*Subscription]struct{}
	closed        bool
}

func NewSearchController(cfg config.Config, searchClient SearchClient, recorder *metrics.Recorder) SearchController {
	maxParallelTasks := cfg.Tasks.MaxParallelTasksAllowed
	if maxParallelTasks <= 0 {
		maxParallelTasks = config.GetDefault().Tasks.MaxParallelTasksAllowed
	}

	return &searchController{
		searchClient:  searchClient,
		recorder:      recorder,
		broadcaster:   events.NewBroadcaster(),
		now:           time.Now,
		inFlight:      sizedwaitgroup.New(maxParallelTasks),
		subscriptions: make(map[*Subscription]struct{}),
	}
}

// Submit starts a search for query. An empty query publishes Empty without sending any request
func (s *searchController) Submit(query string) {
	query = strings.TrimSpace(query)

	if query == "" {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.closed {
			return
		}

		s.supersede()
		s.lastCompleted = s.now()
		s.publish(model.Empty{})
		return
	}

	s.submitting.RLock()
	defer s.submitting.RUnlock()

	if s.isClosed() {
		return
	}

	s.inFlight.Add()

	s.mu.Lock()

	// closed while waiting for a free slot
	if s.closed {
		s.mu.Unlock()
		s.inFlight.Done()
		return
	}

	generation := s.supersede()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.lastQuery = query
	s.publish(model.Loading{})

	s.mu.Unlock()

	go s.run(ctx, cancel, generation, uuid.NewString(), query)
}

// RetryLast submits the last non empty query again, if any
func (s *searchController) RetryLast() {
	query, found := s.LastQuery()
	if !found {
		log.Debug("no previous search to retry")
		return
	}

	s.Submit(query)
}

// Subscribe returns a subscription receiving the current state, if any, then every new state
func (s *searchController) Subscribe() *Subscription {
	sub := newSubscription(s.removeSubscription)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		sub.detach = nil
		sub.Unsubscribe()
		return sub
	}

	if s.state != nil {
		_ = sub.queue.Write(s.state)
	}

	if err := s.broadcaster.Add(sub.queue); err != nil {
		log.WithError(err).Error("unable to register search state subscription")
	}

	s.subscriptions[sub] = struct{}{}
	return sub
}

func (s *searchController) State() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *searchController) LastQuery() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastQuery, s.lastQuery != ""
}

// LastCompletedAt returns when the last applied search, or empty submission, reached a terminal state
func (s *searchController) LastCompletedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastCompleted, !s.lastCompleted.IsZero()
}

// Close cancels the search in flight, waits for the search goroutines and closes the subscriptions.
// A search still loading ends with an Error carrying ErrControllerClosed
func (s *searchController) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	s.supersede()

	if s.state != nil && !model.IsTerminal(s.state) {
		s.publish(model.Error{Err: ErrControllerClosed})
	}

	subscriptions := make([]*Subscription, 0, len(s.subscriptions))
	for sub := range s.subscriptions {
		subscriptions = append(subscriptions, sub)
	}

	s.mu.Unlock()

	// every Submit which passed the closed check has called inFlight.Add
	s.submitting.Lock()
	s.submitting.Unlock()

	s.inFlight.Wait()

	for _, sub := range subscriptions {
		sub.Unsubscribe()
	}

	return s.broadcaster.Close()
}

func (s *searchController) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *searchController) run(ctx context.Context, cancel context.CancelFunc, generation uint64, submissionID string, query string) {
	defer s.inFlight.Done()
	defer cancel()

	entry := logger.ForSubmission(submissionID, query)
	entry.Debug("search submitted")

	started := s.now()
	s.recorder.SearchStarted()

	result := s.searchClient.Search(ctx, query)

	s.recorder.SearchFinished()

	if result == nil {
		result = model.Error{Err: errNoResult}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		entry.Debug("search superseded by a newer submission. result dropped")
		s.recorder.ObserveSuperseded()
		return
	}

	s.lastCompleted = s.now()
	s.recorder.ObserveResult(result, s.lastCompleted.Sub(started))

	entry.WithField("state", result.Kind()).Info("search completed")
	s.publish(result)
}

// supersede cancels the search in flight and returns the generation of the next submission.
// must be called with mu held
func (s *searchController) supersede() uint64 {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.generation += 1
	return s.generation
}

// publish sets and broadcasts the new state. must be called with mu held
func (s *searchController) publish(state model.State) {
	s.state = state

	if err := s.broadcaster.Write(state); err != nil {
		log.WithError(err).Warning("unable to broadcast search state")
	}
}

func (s *searchController) removeSubscription(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subscriptions, sub)

	if err := s.broadcaster.Remove(sub.queue); err != nil && !errors.Is(err, events.ErrSinkClosed) {
		log.WithError(err).Debug("unable to remove search state subscription")
	}
}
