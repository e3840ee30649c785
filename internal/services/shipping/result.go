package shipping

import (
	"fmt"
	"time"
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeRejected is an expected business failure such as "no couriers
	// available"; it is not a system fault.
	OutcomeRejected
)

func (o Outcome) String() string {
	if o == OutcomeOK {
		return "ok"
	}
	return "rejected"
}

type Result struct {
	Outcome Outcome
	Message string
}

func (r Result) OK() bool { return r.Outcome == OutcomeOK }

func okResult(msg string) Result { return Result{Outcome: OutcomeOK, Message: msg} }

func rejected(msg string) Result { return Result{Outcome: OutcomeRejected, Message: msg} }

type CreateShipmentResult struct {
	Result
	ExternalOrderID    int64
	ExternalShipmentID int64
}

type Courier struct {
	ID   int64  `json:"courier_id"`
	Name string `json:"courier_name"`
}

type CouriersResult struct {
	Result
	Couriers []Courier
}

type AWBResult struct {
	Result
	AWBCode string
}

// DocumentResult carries a label or manifest URL.
type DocumentResult struct {
	Result
	URL string
}

type PickupResult struct {
	Result
	PickupAt *time.Time
}

// ValidationError reports bad or unknown local input. It is raised before
// any call to Shiprocket.
type ValidationError struct {
	Field    string
	Message  string
	NotFound bool
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func notFound(field, what string) *ValidationError {
	return &ValidationError{Field: field, Message: what + " not found", NotFound: true}
}
