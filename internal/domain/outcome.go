package domain

// Outcome is the terminal result of reconciling one notification.
type Outcome uint8

const (
	OutcomeError Outcome = iota
	OutcomeIgnored
	OutcomeNoConnection
	OutcomeFetchError
	OutcomeSkippedType
	OutcomeSkippedBeforeConnection
	OutcomeUpdated
	OutcomeDuplicate
	OutcomeCreated
)

var outcomeNames = [...]string{
	OutcomeError:                   "error",
	OutcomeIgnored:                 "ignored",
	OutcomeNoConnection:            "no_connection",
	OutcomeFetchError:              "fetch_error",
	OutcomeSkippedType:             "skipped_type",
	OutcomeSkippedBeforeConnection: "skipped_before_connection",
	OutcomeUpdated:                 "updated",
	OutcomeDuplicate:               "duplicate",
	OutcomeCreated:                 "created",
}

// String returns the status token reported to the webhook sender.
func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return outcomeNames[OutcomeError]
}

// Outcomes lists every outcome in declaration order.
func Outcomes() []Outcome {
	out := make([]Outcome, 0, len(outcomeNames))
	for i := range outcomeNames {
		out = append(out, Outcome(i))
	}
	return out
}
