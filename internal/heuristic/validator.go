// Package heuristic scores an email address before any network lookup:
// syntax, gibberish, typo, role-account and disposable-domain checks.
package heuristic

import (
	"context"

	"emailscore/pkg/email"
)

// DisposableChecker reports whether a domain hands out throwaway mailboxes.
type DisposableChecker interface {
	Contains(ctx context.Context, domain string) bool
}

type Validator struct {
	disposable DisposableChecker
	suggester  *Suggester
}

type Option func(*Validator)

func WithSuggester(s *Suggester) Option {
	return func(v *Validator) {
		if s != nil {
			v.suggester = s
		}
	}
}

func New(disposable DisposableChecker, opts ...Option) *Validator {
	v := &Validator{
		disposable: disposable,
		suggester:  NewSuggester(DefaultKnownDomains, DefaultKnownSecondLevel),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the checks in order. A syntax failure stops immediately with
// score 0 and every other signal left nil.
func (v *Validator) Validate(ctx context.Context, address string) Result {
	address = email.Normalize(address)
	res := Result{Email: address}

	if !validSyntax(address) {
		res.SyntaxError = true
		return res
	}
	local, _, _ := email.Split(address)
	domain := email.Domain(address)
	res.Local = local
	res.Domain = domain

	gibberish := isGibberish(local)
	res.Gibberish = &gibberish
	if gibberish {
		res.Score -= GibberishWeight
	} else {
		res.Score += GibberishWeight
	}

	if suggestion := v.suggester.Suggest(local, domain); suggestion != "" {
		res.DidYouMean = &suggestion
	} else {
		res.Score += SuggestionWeight
	}

	role := isRole(local)
	res.Role = &role
	if !role {
		res.Score += RoleWeight
	}

	disposable := v.disposable != nil && v.disposable.Contains(ctx, domain)
	res.Disposable = &disposable
	if disposable {
		res.Score -= DisposableWeight
	} else {
		res.Score += DisposableWeight
	}

	return res
}
