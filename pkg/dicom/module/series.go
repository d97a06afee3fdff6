package module

import (
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// GeneralSeriesModule represents the General Series Module
type GeneralSeriesModule struct {
	Modality          string
	SeriesInstanceUID string
	SeriesNumber      int
	SeriesDate        Date
	SeriesTime        Time
	SeriesDescription string
	OperatorsName     PersonName
}

func (m *GeneralSeriesModule) ToTags() []IODElement {
	var e elements
	e.add(tag.Modality, m.Modality)
	e.add(tag.SeriesInstanceUID, m.SeriesInstanceUID)
	e.add(tag.SeriesNumber, m.SeriesNumber)
	if !m.SeriesDate.IsZero() {
		e.add(tag.SeriesDate, m.SeriesDate.String())
		e.add(tag.SeriesTime, m.SeriesTime.String())
	}
	e.optional(tag.SeriesDescription, m.SeriesDescription)
	e.optional(tag.OperatorsName, m.OperatorsName.String())
	return e
}
