package dimse

import (
	"errors"
	"fmt"
)

var (
	ErrAssociationRejected   = errors.New("dimse: association rejected")
	ErrNoPresentationContext = errors.New("dimse: no accepted presentation context")
	ErrAborted               = errors.New("dimse: association aborted")
	ErrUnexpectedPDU         = errors.New("dimse: unexpected PDU")
	ErrReleased              = errors.New("dimse: association released")
)

// RejectError is an A-ASSOCIATE-RJ answer
type RejectError struct {
	Result byte // 1 permanent, 2 transient
	Source byte // 1 service user, 2 provider (ACSE), 3 provider (presentation)
	Reason byte
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("association rejected (%s): %s", e.resultString(), e.ReasonString())
}

func (e *RejectError) Unwrap() error {
	return ErrAssociationRejected
}

func (e *RejectError) resultString() string {
	if e.Result == 2 {
		return "transient"
	}
	return "permanent"
}

// ReasonString names the reject reason for its source
func (e *RejectError) ReasonString() string {
	switch e.Source {
	case 1:
		switch e.Reason {
		case 1:
			return "no reason given"
		case 2:
			return "application context name not supported"
		case 3:
			return "calling AE title not recognized"
		case 7:
			return "called AE title not recognized"
		}
	case 2:
		switch e.Reason {
		case 1:
			return "no reason given"
		case 2:
			return "protocol version not supported"
		}
	case 3:
		switch e.Reason {
		case 1:
			return "temporary congestion"
		case 2:
			return "local limit exceeded"
		}
	}
	return fmt.Sprintf("source %d reason %d", e.Source, e.Reason)
}

// StatusError is a DIMSE response that did not succeed
type StatusError struct {
	Operation string
	Status    Status
	Comment   string
}

func (e *StatusError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("%s failed with status %s: %s", e.Operation, e.Status, e.Comment)
	}
	return fmt.Sprintf("%s failed with status %s", e.Operation, e.Status)
}

// abortError describes an A-ABORT received from the peer
type abortError struct {
	Source byte
	Reason byte
}

func (e *abortError) Error() string {
	source := "service user"
	if e.Source == 2 {
		source = "service provider"
	}
	return fmt.Sprintf("association aborted by %s (reason %d)", source, e.Reason)
}

func (e *abortError) Unwrap() error {
	return ErrAborted
}
