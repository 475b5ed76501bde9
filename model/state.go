package model

// StateKind identifies the active variant of a State
type StateKind string

const (
	KindLoading          StateKind = "loading"
	KindSuccess          StateKind = "success"
	KindEmpty            StateKind = "empty"
	KindError            StateKind = "error"
	KindJSONParsingError StateKind = "json_parsing_error"
)

// State is the outcome of the most recent search.
// The set of variants is closed: Loading, Success, Empty, Error and JSONParsingError.
// Consumers must go through Accept so that a new variant breaks every consumer at compile time.
type State interface {
	Kind() StateKind
	Accept(v StateVisitor)

	isState()
}

// StateVisitor has one method per State variant
type StateVisitor interface {
	VisitLoading(s Loading)
	VisitSuccess(s Success)
	VisitEmpty(s Empty)
	VisitError(s Error)
	VisitJSONParsingError(s JSONParsingError)
}

// Loading is emitted when a search has been sent and no answer is known yet
type Loading struct{}

// Success holds the items returned by the search, in server order. Items is never empty.
type Success struct {
	Items []RepositoryItem
}

// Empty means the search succeeded without any match
type Empty struct{}

// Error wraps a network (*NetworkError) or a generic failure
type Error struct {
	Err error
}

// JSONParsingError means a response was received but could not be decoded.
// Err is a *ParsingError.
type JSONParsingError struct {
	Err error
}

func (Loading) Kind() StateKind          { return KindLoading }
func (Success) Kind() StateKind          { return KindSuccess }
func (Empty) Kind() StateKind            { return KindEmpty }
func (Error) Kind() StateKind            { return KindError }
func (JSONParsingError) Kind() StateKind { return KindJSONParsingError }

func (s Loading) Accept(v StateVisitor)          { v.VisitLoading(s) }
func (s Success) Accept(v StateVisitor)          { v.VisitSuccess(s) }
func (s Empty) Accept(v StateVisitor)            { v.VisitEmpty(s) }
func (s Error) Accept(v StateVisitor)            { v.VisitError(s) }
func (s JSONParsingError) Accept(v StateVisitor) { v.VisitJSONParsingError(s) }

func (Loading) isState()          {}
func (Success) isState()          {}
func (Empty) isState()            {}
func (Error) isState()            {}
func (JSONParsingError) isState() {}

// IsTerminal reports whether s ends a search (anything but Loading)
func IsTerminal(s State) bool {
	return s != nil && s.Kind() != KindLoading
}

// StateView is the serializable representation of a State, sent to the presentation layer
type StateView struct {
	State StateKind        `json:"state"`
	Items []RepositoryItem `json:"items,omitempty"`
	Error *APIError        `json:"error,omitempty"`
}

// NewStateView converts a state into its serializable representation
func NewStateView(s State) StateView {
	builder := stateViewBuilder{}
	s.Accept(&builder)
	return builder.view
}

type stateViewBuilder struct {
	view StateView
}

func (b *stateViewBuilder) VisitLoading(s Loading) {
	b.view = StateView{State: s.Kind()}
}

func (b *stateViewBuilder) VisitSuccess(s Success) {
	b.view = StateView{State: s.Kind(), Items: s.Items}
}

func (b *stateViewBuilder) VisitEmpty(s Empty) {
	b.view = StateView{State: s.Kind()}
}

func (b *stateViewBuilder) VisitError(s Error) {
	apiErr := NewAPIError(s.Err)
	b.view = StateView{State: s.Kind(), Error: &apiErr}
}

func (b *stateViewBuilder) VisitJSONParsingError(s JSONParsingError) {
	apiErr := NewAPIError(s.Err)
	b.view = StateView{State: s.Kind(), Error: &apiErr}
}
