package dicom

import (
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// SOP classes used by the toolkit
const (
	VerificationSOPClass         = "1.2.840.10008.1.1"
	ModalityWorklistFindSOPClass = "1.2.840.10008.5.1.4.31"
	SecondaryCaptureImageStorage = "1.2.840.10008.5.1.4.1.1.7"
	ApplicationContextName       = "1.2.840.10008.3.1.1.1"
	maxUIDLength                 = 64
)

// GenerateUID returns a UUID derived UID (2.25.<decimal uuid>), which needs
// no registered root and always fits in 64 characters.
func GenerateUID() string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	return "2.25." + n.String()
}

// GenerateUIDWithPrefix generates a UID under an organisation root using
// time and random components. Format: prefix.<timestamp>.<nanos>.<random>
func GenerateUIDWithPrefix(prefix string) string {
	now := time.Now()
	timestamp := now.Format("20060102150405")
	nano := now.Nanosecond()
	rnd := rand.Intn(10000)

	// Ensure prefix ends with dot
	if len(prefix) > 0 && prefix[len(prefix)-1] != '.' {
		prefix += "."
	}

	uid := fmt.Sprintf("%s%s.%d.%d", prefix, timestamp, nano, rnd)
	if len(uid) > maxUIDLength {
		return GenerateUID()
	}
	return uid
}

// ValidUID reports whether s is a syntactically valid UID
func ValidUID(s string) bool {
	if s == "" || len(s) > maxUIDLength {
		return false
	}
	prevDot := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if prevDot {
				return false
			}
			prevDot = true
		case c >= '0' && c <= '9':
			// leading zeros are not allowed in a component
			if c == '0' && prevDot && i+1 < len(s) && s[i+1] != '.' {
				return false
			}
			prevDot = false
		default:
			return false
		}
	}
	return !prevDot
}
