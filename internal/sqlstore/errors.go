package sqlstore

import "fmt"

// Phase names the connector operation that produced an error. It is carried
// on every fatal error so callers can distinguish connection validation from
// read and write failures without string matching.
type Phase string

const (
	// PhaseValidateSource is the source-side connectivity precheck.
	PhaseValidateSource Phase = "validate-source-connection"
	// PhaseValidateDestination is the destination-side connectivity precheck.
	PhaseValidateDestination Phase = "validate-destination-connection"
	// PhaseRead covers identifier enumeration and row materialization.
	PhaseRead Phase = "read"
	// PhaseWrite covers delete and insert statement execution.
	PhaseWrite Phase = "write"
)

// StoreError wraps a driver error with the phase that triggered it.
type StoreError struct {
	Phase Phase
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func sourceConnectionError(err error) error {
	return &StoreError{Phase: PhaseValidateSource, Err: fmt.Errorf("failed to validate connection: %w", err)}
}

func destinationConnectionError(err error) error {
	return &StoreError{Phase: PhaseValidateDestination, Err: fmt.Errorf("failed to validate connection: %w", err)}
}

func readError(err error) error {
	return &StoreError{Phase: PhaseRead, Err: err}
}

func writeError(err error) error {
	return &StoreError{Phase: PhaseWrite, Err: err}
}
