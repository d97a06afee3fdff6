package module

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// Date represents a DICOM Date (DA VR)
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// IsZero checks if Date is uninitialized
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func NewDate(t time.Time) Date {
	return Date{
		Year:  t.Year(),
		Month: int(t.Month()),
		Day:   t.Day(),
	}
}

// ParseDate reads a YYYYMMDD value
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("20060102", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYYMMDD", s)
	}
	return NewDate(t), nil
}

// Time represents a DICOM Time (TM VR). Fractional seconds are only written
// when Nano is set.
type Time struct {
	Hour   int
	Minute int
	Second int
	Nano   int
}

func (t Time) String() string {
	if t.Nano == 0 {
		return fmt.Sprintf("%02d%02d%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d%02d%02d.%06d", t.Hour, t.Minute, t.Second, t.Nano/1000)
}

func NewTime(t time.Time) Time {
	return Time{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// ParseTime reads a HHMMSS value
func ParseTime(s string) (Time, error) {
	t, err := time.Parse("150405", strings.TrimSpace(s))
	if err != nil {
		return Time{}, fmt.Errorf("invalid time %q, expected HHMMSS", s)
	}
	return NewTime(t), nil
}

// PersonName represents a DICOM Person Name (PN VR)
type PersonName struct {
	FamilyName string
	GivenName  string
	MiddleName string
	Prefix     string
	Suffix     string
}

// String renders Family^Given^Middle^Prefix^Suffix without trailing empty components
func (p PersonName) String() string {
	s := strings.Join([]string{p.FamilyName, p.GivenName, p.MiddleName, p.Prefix, p.Suffix}, "^")
	return strings.TrimRight(s, "^")
}

// ParsePersonName splits a caret separated name
func ParsePersonName(s string) PersonName {
	parts := strings.SplitN(s, "^", 5)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	return PersonName{
		FamilyName: parts[0],
		GivenName:  parts[1],
		MiddleName: parts[2],
		Prefix:     parts[3],
		Suffix:     parts[4],
	}
}

// Common module interfaces
type IODModule interface {
	ToTags() []IODElement
}

type IODElement struct {
	Tag   tag.Tag
	Value interface{}
}

// elements collects module attributes, dropping optional ones left empty
type elements []IODElement

func (e *elements) add(t tag.Tag, v interface{}) {
	*e = append(*e, IODElement{Tag: t, Value: v})
}

func (e *elements) optional(t tag.Tag, v string) {
	if v != "" {
		e.add(t, v)
	}
}
