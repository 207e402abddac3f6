package models

// DomainStatus is the reachability verdict for a mail domain.
type DomainStatus string

const (
	StatusActive   DomainStatus = "active"
	StatusInactive DomainStatus = "inactive"
	StatusParked   DomainStatus = "parked"
	StatusUnknown  DomainStatus = "unknown"
)

func (s DomainStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusParked, StatusUnknown:
		return true
	}
	return false
}

func (s DomainStatus) String() string {
	return string(s)
}

// ParseDomainStatus maps unrecognised values to StatusUnknown.
func ParseDomainStatus(s string) DomainStatus {
	st := DomainStatus(s)
	if !st.IsValid() {
		return StatusUnknown
	}
	return st
}

// DomainInfo is what every provider produces for a domain. An empty
// MXRecord means no mail exchanger was found.
type DomainInfo struct {
	Status   DomainStatus
	MXRecord string
}

// Unknown is the terminal "could not tell" answer.
func Unknown() DomainInfo {
	return DomainInfo{Status: StatusUnknown}
}

func (d DomainInfo) HasMX() bool {
	return d.MXRecord != ""
}
