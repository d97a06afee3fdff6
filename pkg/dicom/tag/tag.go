// Package tag defines the DICOM tags used by the worklist toolkit
package tag

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Less orders tags the way they must appear in an encoded dataset
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// IsGroup0002 returns true if this tag is in the File Meta Information group
func (t Tag) IsGroup0002() bool {
	return t.Group == 0x0002
}

// IsGroupLength returns true for (gggg,0000) elements
func (t Tag) IsGroupLength() bool {
	return t.Element == 0x0000
}

// Parse reads a tag written as "GGGG,EEEE", "(GGGG,EEEE)" or "GGGGEEEE"
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.ReplaceAll(s, ",", "")
	if len(s) != 8 {
		return Tag{}, fmt.Errorf("invalid tag %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag %q: %w", s, err)
	}
	return Tag{Group: uint16(v >> 16), Element: uint16(v)}, nil
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
)

// SOP Common Module
var (
	SpecificCharacterSet = Tag{0x0008, 0x0005}
	InstanceCreationDate = Tag{0x0008, 0x0012}
	InstanceCreationTime = Tag{0x0008, 0x0013}
	SOPClassUID          = Tag{0x0008, 0x0016}
	SOPInstanceUID       = Tag{0x0008, 0x0018}
)

// Patient Module (Group 0010)
var (
	PatientName      = Tag{0x0010, 0x0010}
	PatientID        = Tag{0x0010, 0x0020}
	PatientBirthDate = Tag{0x0010, 0x0030}
	PatientSex       = Tag{0x0010, 0x0040}
	PatientAge       = Tag{0x0010, 0x1010}
	PatientSize      = Tag{0x0010, 0x1020}
	PatientWeight    = Tag{0x0010, 0x1030}
	MedicalAlerts    = Tag{0x0010, 0x2000}
	Allergies        = Tag{0x0010, 0x2110} // formerly Contrast Allergies
	PatientComments  = Tag{0x0010, 0x4000}
)

// ContrastAllergies is the pre-2011 name of Allergies
var ContrastAllergies = Allergies

// General Study Module
var (
	StudyDate              = Tag{0x0008, 0x0020}
	StudyTime              = Tag{0x0008, 0x0030}
	AccessionNumber        = Tag{0x0008, 0x0050}
	ReferringPhysicianName = Tag{0x0008, 0x0090}
	StudyDescription       = Tag{0x0008, 0x1030}
	StudyInstanceUID       = Tag{0x0020, 0x000D}
	StudyID                = Tag{0x0020, 0x0010}
)

// General Series Module
var (
	Modality          = Tag{0x0008, 0x0060}
	SeriesDate        = Tag{0x0008, 0x0021}
	SeriesTime        = Tag{0x0008, 0x0031}
	SeriesDescription = Tag{0x0008, 0x103E}
	OperatorsName     = Tag{0x0008, 0x1070}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	SeriesNumber      = Tag{0x0020, 0x0011}
)

// General Equipment and SC Equipment Modules
var (
	ConversionType        = Tag{0x0008, 0x0064}
	Manufacturer          = Tag{0x0008, 0x0070}
	InstitutionName       = Tag{0x0008, 0x0080}
	StationName           = Tag{0x0008, 0x1010}
	ManufacturerModelName = Tag{0x0008, 0x1090}
	DeviceSerialNumber    = Tag{0x0018, 0x1000}
	SoftwareVersions      = Tag{0x0018, 0x1020}
)

// General Image Module
var (
	ImageType          = Tag{0x0008, 0x0008}
	ContentDate        = Tag{0x0008, 0x0023}
	ContentTime        = Tag{0x0008, 0x0033}
	InstanceNumber     = Tag{0x0020, 0x0013}
	PatientOrientation = Tag{0x0020, 0x0020}
)

// Image Pixel Module (Group 0028)
var (
	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	PlanarConfiguration       = Tag{0x0028, 0x0006}
	NumberOfFrames            = Tag{0x0028, 0x0008}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	PixelData                 = Tag{0x7FE0, 0x0010}
)

// Query/Retrieve
var (
	QueryRetrieveLevel = Tag{0x0008, 0x0052}
)

// Modality Worklist: Scheduled Procedure Step, Requested Procedure,
// Imaging Service Request and Visit modules
var (
	ScheduledStationAETitle                = Tag{0x0040, 0x0001}
	ScheduledProcedureStepStartDate        = Tag{0x0040, 0x0002}
	ScheduledProcedureStepStartTime        = Tag{0x0040, 0x0003}
	ScheduledPerformingPhysicianName       = Tag{0x0040, 0x0006}
	ScheduledProcedureStepDescription      = Tag{0x0040, 0x0007}
	ScheduledProcedureStepID               = Tag{0x0040, 0x0009}
	ScheduledStationName                   = Tag{0x0040, 0x0010}
	ScheduledProcedureStepLocation         = Tag{0x0040, 0x0011}
	ScheduledProcedureStepStatus           = Tag{0x0040, 0x0020}
	ScheduledProcedureStepSequence         = Tag{0x0040, 0x0100}
	RequestedProcedureID                   = Tag{0x0040, 0x1001}
	RequestedProcedurePriority             = Tag{0x0040, 0x1003}
	RequestedProcedureDescription          = Tag{0x0032, 0x1060}
	RequestingPhysician                    = Tag{0x0032, 0x1032}
	PlacerOrderNumberImagingServiceRequest = Tag{0x0040, 0x2016}
	FillerOrderNumberImagingServiceRequest = Tag{0x0040, 0x2017}
	AdmissionID                            = Tag{0x0038, 0x0010}
	CurrentPatientLocation                 = Tag{0x0038, 0x0300}
)

// Sequence delimiters
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// IsDelimiter returns true for item and sequence delimitation tags
func (t Tag) IsDelimiter() bool {
	return t.Group == 0xFFFE
}
