package entities

// VerificationStatus classifies the outcome of a single guarded dependency
// call. It is transient: produced by the gateway, consumed immediately by the
// orchestrator, never persisted.
type VerificationStatus int

const (
	VerificationValid VerificationStatus = iota
	VerificationNotFound
	VerificationUnavailable
	VerificationRemoteError
	VerificationInvalidPayload
)

func (s VerificationStatus) String() string {
	switch s {
	case VerificationValid:
		return "valid"
	case VerificationNotFound:
		return "not_found"
	case VerificationUnavailable:
		return "unavailable"
	case VerificationRemoteError:
		return "remote_error"
	case VerificationInvalidPayload:
		return "invalid_payload"
	default:
		return "unknown"
	}
}

// Outcome carries the classification plus a short diagnostic for the
// remote_error and invalid_payload cases.
type Outcome struct {
	Status VerificationStatus
	Detail string
}

func (o Outcome) Valid() bool { return o.Status == VerificationValid }
