package heuristic

// Score weights for each pre-DNS signal.
const (
	GibberishWeight  = 5
	SuggestionWeight = 5
	RoleWeight       = 5
	DisposableWeight = 15

	// MaxScore is the best possible pre-DNS score.
	MaxScore = GibberishWeight + SuggestionWeight + RoleWeight + DisposableWeight
)

// Result is the syntax/heuristic verdict for one address. Pointer fields are
// nil when the check did not run (everything after a syntax failure).
type Result struct {
	Email       string
	Local       string
	Domain      string
	SyntaxError bool
	Gibberish   *bool
	Role        *bool
	DidYouMean  *string
	Disposable  *bool
	Score       int
}

// Rejected reports whether the address must skip DNS resolution entirely:
// it is syntactically invalid or on a disposable domain.
func (r Result) Rejected() bool {
	return r.SyntaxError || (r.Disposable != nil && *r.Disposable)
}
