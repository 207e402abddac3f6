// Package scoring combines heuristic and DNS signals into a single
// deliverability verdict.
package scoring

import (
	"emailscore/internal/heuristic"
	resolver "emailscore/internal/resolver/models"
	"emailscore/internal/scoring/models"
)

// DNS deltas applied on top of the heuristic score.
const (
	ActiveDelta   = 20
	InactiveDelta = -20
	MXDelta       = 30
	NoMXDelta     = -30
)

// Score produces the record for h. info may be nil only when h is rejected;
// rejected addresses always score 0 and carry no DNS fields.
func Score(h heuristic.Result, info *resolver.DomainInfo) models.EmailRecord {
	rec := models.EmailRecord{
		Email:       h.Email,
		SyntaxError: h.SyntaxError,
		Gibberish:   h.Gibberish,
		Role:        h.Role,
		DidYouMean:  h.DidYouMean,
		Disposable:  h.Disposable,
	}
	if h.Rejected() || info == nil {
		rec.Score = models.MinScore
		rec.Status = models.StatusUndeliverable
		return rec
	}

	score := h.Score
	switch info.Status {
	case resolver.StatusActive:
		score += ActiveDelta
	case resolver.StatusInactive, resolver.StatusParked:
		score += InactiveDelta
	}
	if info.HasMX() {
		score += MXDelta
		mx := info.MXRecord
		rec.MXRecord = &mx
	} else {
		score += NoMXDelta
	}
	status := info.Status.String()
	rec.DomainStatus = &status

	rec.Score = clamp(score)
	rec.Status = models.Classify(rec.Score)
	return rec
}

func clamp(score int) int {
	return min(max(score, models.MinScore), models.MaxScore)
}
