package dimse

import "fmt"

// Status is a DIMSE response status (PS3.7 Annex C)
type Status uint16

const (
	StatusSuccess        Status = 0x0000
	StatusPending        Status = 0xFF00
	StatusPendingWarning Status = 0xFF01
	StatusCancel         Status = 0xFE00

	StatusOutOfResources        Status = 0xA700
	StatusIdentifierMismatch    Status = 0xA900
	StatusUnableToProcess       Status = 0xC000
	StatusSOPClassNotSupported  Status = 0x0122
	StatusCoercionOfDataElement Status = 0xB000
)

// IsSuccess reports a 0x0000 status
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsPending reports an intermediate C-FIND response carrying a match
func (s Status) IsPending() bool {
	return s == StatusPending || s == StatusPendingWarning
}

// IsCancel reports a response that ended a cancelled operation
func (s Status) IsCancel() bool {
	return s == StatusCancel
}

// IsWarning reports a completed operation with a warning
func (s Status) IsWarning() bool {
	switch {
	case s == 0x0001, s == 0x0107, s == 0x0116:
		return true
	case s&0xF000 == 0xB000:
		return true
	}
	return false
}

// IsFailure reports any status that is not success, pending, cancel or warning
func (s Status) IsFailure() bool {
	return !s.IsSuccess() && !s.IsPending() && !s.IsCancel() && !s.IsWarning()
}

func (s Status) String() string {
	var kind string
	switch {
	case s.IsSuccess():
		kind = "Success"
	case s.IsPending():
		kind = "Pending"
	case s.IsCancel():
		kind = "Cancel"
	case s.IsWarning():
		kind = "Warning"
	case s == StatusOutOfResources:
		kind = "Refused: Out of Resources"
	case s == StatusSOPClassNotSupported:
		kind = "Refused: SOP Class not Supported"
	case s&0xFF00 == 0xA900:
		kind = "Error: Data Set does not match SOP Class"
	case s&0xF000 == 0xC000:
		kind = "Error: Cannot understand"
	default:
		kind = "Failure"
	}
	return fmt.Sprintf("0x%04X (%s)", uint16(s), kind)
}
