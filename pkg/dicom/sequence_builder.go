package dicom

import (
	"errors"
	"fmt"
)

// SequenceBuilder provides a fluent API for constructing DICOM sequences.
//
// The builder accumulates errors from AddItem() calls and returns them from
// Build(), so calls can be chained.
//
// Example - a Scheduled Procedure Step Sequence:
//
//	sps := dicom.NewSequenceBuilder(tag.ScheduledProcedureStepSequence)
//	sps.AddItem(
//		dicom.WithElement(tag.ScheduledStationAETitle, "US01"),
//		dicom.WithElement(tag.Modality, "US"),
//	)
//	opt, err := sps.Build()
//	if err != nil {
//		return err
//	}
//	ds, err := dicom.NewDataset(dicom.WithElement(tag.PatientID, "PAT-001"), opt)
type SequenceBuilder struct {
	tag   Tag
	items []*Dataset
	errs  []error
}

// NewSequenceBuilder creates a new sequence builder for the specified tag.
func NewSequenceBuilder(t Tag) *SequenceBuilder {
	return &SequenceBuilder{
		tag:   t,
		items: make([]*Dataset, 0),
		errs:  make([]error, 0),
	}
}

// AddItem adds a sequence item constructed from the given options.
func (sb *SequenceBuilder) AddItem(opts ...Option) *SequenceBuilder {
	item, err := NewDataset(opts...)
	if err != nil {
		sb.errs = append(sb.errs, fmt.Errorf("item %d: %w", len(sb.items), err))
		return sb
	}
	sb.items = append(sb.items, item)
	return sb
}

// HasErrors returns true if any errors were accumulated during building.
func (sb *SequenceBuilder) HasErrors() bool {
	return len(sb.errs) > 0
}

// Errors returns all accumulated errors.
func (sb *SequenceBuilder) Errors() []error {
	return sb.errs
}

// Build returns an Option that adds the sequence to a dataset.
func (sb *SequenceBuilder) Build() (Option, error) {
	if sb.HasErrors() {
		return nil, fmt.Errorf("sequence %v: %w", sb.tag, errors.Join(sb.Errors()...))
	}
	return WithSequence(sb.tag, sb.items...), nil
}
