package models

// Status is the deliverability verdict for one address.
type Status string

const (
	StatusDeliverable   Status = "deliverable"
	StatusRisky         Status = "risky"
	StatusUndeliverable Status = "undeliverable"
)

func (s Status) String() string {
	return string(s)
}

// Score thresholds, checked in order.
const (
	DeliverableThreshold = 75
	RiskyThreshold       = 60

	MinScore = 0
	MaxScore = 100
)

// Classify maps a clamped score onto a Status.
func Classify(score int) Status {
	if score >= DeliverableThreshold {
		return StatusDeliverable
	}
	if score >= RiskyThreshold {
		return StatusRisky
	}
	return StatusUndeliverable
}

// EmailRecord is the scored verdict returned to callers and persisted for
// bulk lists. Nil pointers mean the signal was never computed.
type EmailRecord struct {
	Email        string  `json:"email"`
	Status       Status  `json:"status"`
	Score        int     `json:"score"`
	SyntaxError  bool    `json:"syntax_error"`
	Gibberish    *bool   `json:"gibberish"`
	Role         *bool   `json:"role"`
	DidYouMean   *string `json:"did_you_mean"`
	Disposable   *bool   `json:"disposable"`
	DomainStatus *string `json:"domain_status"`
	MXRecord     *string `json:"mx_record"`
}
