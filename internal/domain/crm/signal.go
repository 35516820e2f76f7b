package crm

import (
	"time"

	"github.com/google/uuid"
)

// SignalType represents the kind of business event a signal describes
type SignalType string

const (
	SignalTypeHiring           SignalType = "hiring"
	SignalTypeFunding          SignalType = "funding"
	SignalTypeExpansion        SignalType = "expansion"
	SignalTypePartnership      SignalType = "partnership"
	SignalTypeProductLaunch    SignalType = "product_launch"
	SignalTypeLeadershipChange SignalType = "leadership_change"
)

// Label returns a human-readable label for the signal type, used when
// naming provider-side objects
func (t SignalType) Label() string {
	switch t {
	case SignalTypeHiring:
		return "Job Posting / Hiring"
	case SignalTypeFunding:
		return "Funding Announcement"
	case SignalTypeExpansion:
		return "Business Expansion"
	case SignalTypePartnership:
		return "Partnership News"
	case SignalTypeProductLaunch:
		return "Product Launch"
	case SignalTypeLeadershipChange:
		return "Leadership Change"
	default:
		return string(t)
	}
}

// SignalPriority represents how urgent a signal is
type SignalPriority string

const (
	SignalPriorityHigh   SignalPriority = "high"
	SignalPriorityMedium SignalPriority = "medium"
	SignalPriorityLow    SignalPriority = "low"
)

// Label returns a human-readable label for the priority
func (p SignalPriority) Label() string {
	switch p {
	case SignalPriorityHigh:
		return "High"
	case SignalPriorityMedium:
		return "Medium"
	case SignalPriorityLow:
		return "Low"
	default:
		return string(p)
	}
}

// Signal is a detected business event about a target company. The engine
// reads signals but does not own their lifecycle.
type Signal struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CompanyName   string
	CompanyDomain string
	SignalType    SignalType
	Title         string
	Summary       string
	SourceURL     string
	SourceName    string
	Priority      SignalPriority
	// Metadata carries optional scraper-provided details such as
	// funding_amount, location, or industry
	Metadata   map[string]string
	DetectedAt time.Time
	CreatedAt  time.Time
}
