package tag

// Info describes a dictionary entry
type Info struct {
	Tag     Tag
	VR      string
	Keyword string
}

var dictionary = map[Tag]Info{}
var byKeyword = map[string]Tag{}

func register(t Tag, vr, keyword string) {
	dictionary[t] = Info{Tag: t, VR: vr, Keyword: keyword}
	byKeyword[keyword] = t
}

func init() {
	register(FileMetaInformationGroupLength, "UL", "FileMetaInformationGroupLength")
	register(FileMetaInformationVersion, "OB", "FileMetaInformationVersion")
	register(MediaStorageSOPClassUID, "UI", "MediaStorageSOPClassUID")
	register(MediaStorageSOPInstanceUID, "UI", "MediaStorageSOPInstanceUID")
	register(TransferSyntaxUID, "UI", "TransferSyntaxUID")
	register(ImplementationClassUID, "UI", "ImplementationClassUID")
	register(ImplementationVersionName, "SH", "ImplementationVersionName")

	register(SpecificCharacterSet, "CS", "SpecificCharacterSet")
	register(ImageType, "CS", "ImageType")
	register(InstanceCreationDate, "DA", "InstanceCreationDate")
	register(InstanceCreationTime, "TM", "InstanceCreationTime")
	register(SOPClassUID, "UI", "SOPClassUID")
	register(SOPInstanceUID, "UI", "SOPInstanceUID")
	register(StudyDate, "DA", "StudyDate")
	register(SeriesDate, "DA", "SeriesDate")
	register(ContentDate, "DA", "ContentDate")
	register(StudyTime, "TM", "StudyTime")
	register(SeriesTime, "TM", "SeriesTime")
	register(ContentTime, "TM", "ContentTime")
	register(AccessionNumber, "SH", "AccessionNumber")
	register(QueryRetrieveLevel, "CS", "QueryRetrieveLevel")
	register(Modality, "CS", "Modality")
	register(ConversionType, "CS", "ConversionType")
	register(Manufacturer, "LO", "Manufacturer")
	register(InstitutionName, "LO", "InstitutionName")
	register(ReferringPhysicianName, "PN", "ReferringPhysicianName")
	register(StationName, "SH", "StationName")
	register(StudyDescription, "LO", "StudyDescription")
	register(SeriesDescription, "LO", "SeriesDescription")
	register(OperatorsName, "PN", "OperatorsName")
	register(ManufacturerModelName, "LO", "ManufacturerModelName")

	register(PatientName, "PN", "PatientName")
	register(PatientID, "LO", "PatientID")
	register(PatientBirthDate, "DA", "PatientBirthDate")
	register(PatientSex, "CS", "PatientSex")
	register(PatientAge, "AS", "PatientAge")
	register(PatientSize, "DS", "PatientSize")
	register(PatientWeight, "DS", "PatientWeight")
	register(MedicalAlerts, "LO", "MedicalAlerts")
	register(Allergies, "LO", "Allergies")
	register(PatientComments, "LT", "PatientComments")

	register(DeviceSerialNumber, "LO", "DeviceSerialNumber")
	register(SoftwareVersions, "LO", "SoftwareVersions")

	register(StudyInstanceUID, "UI", "StudyInstanceUID")
	register(SeriesInstanceUID, "UI", "SeriesInstanceUID")
	register(StudyID, "SH", "StudyID")
	register(SeriesNumber, "IS", "SeriesNumber")
	register(InstanceNumber, "IS", "InstanceNumber")
	register(PatientOrientation, "CS", "PatientOrientation")

	register(SamplesPerPixel, "US", "SamplesPerPixel")
	register(PhotometricInterpretation, "CS", "PhotometricInterpretation")
	register(PlanarConfiguration, "US", "PlanarConfiguration")
	register(NumberOfFrames, "IS", "NumberOfFrames")
	register(Rows, "US", "Rows")
	register(Columns, "US", "Columns")
	register(BitsAllocated, "US", "BitsAllocated")
	register(BitsStored, "US", "BitsStored")
	register(HighBit, "US", "HighBit")
	register(PixelRepresentation, "US", "PixelRepresentation")

	register(RequestingPhysician, "PN", "RequestingPhysician")
	register(RequestedProcedureDescription, "LO", "RequestedProcedureDescription")
	register(AdmissionID, "LO", "AdmissionID")
	register(CurrentPatientLocation, "LO", "CurrentPatientLocation")
	register(ScheduledStationAETitle, "AE", "ScheduledStationAETitle")
	register(ScheduledProcedureStepStartDate, "DA", "ScheduledProcedureStepStartDate")
	register(ScheduledProcedureStepStartTime, "TM", "ScheduledProcedureStepStartTime")
	register(ScheduledPerformingPhysicianName, "PN", "ScheduledPerformingPhysicianName")
	register(ScheduledProcedureStepDescription, "LO", "ScheduledProcedureStepDescription")
	register(ScheduledProcedureStepID, "SH", "ScheduledProcedureStepID")
	register(ScheduledStationName, "SH", "ScheduledStationName")
	register(ScheduledProcedureStepLocation, "SH", "ScheduledProcedureStepLocation")
	register(ScheduledProcedureStepStatus, "CS", "ScheduledProcedureStepStatus")
	register(ScheduledProcedureStepSequence, "SQ", "ScheduledProcedureStepSequence")
	register(RequestedProcedureID, "SH", "RequestedProcedureID")
	register(RequestedProcedurePriority, "SH", "RequestedProcedurePriority")
	register(PlacerOrderNumberImagingServiceRequest, "LO", "PlacerOrderNumberImagingServiceRequest")
	register(FillerOrderNumberImagingServiceRequest, "LO", "FillerOrderNumberImagingServiceRequest")

	register(PixelData, "OW", "PixelData")
}

// Lookup returns the dictionary entry for a tag
func Lookup(t Tag) (Info, bool) {
	info, ok := dictionary[t]
	return info, ok
}

// ByKeyword returns the tag registered under a keyword such as "PatientName"
func ByKeyword(keyword string) (Tag, bool) {
	t, ok := byKeyword[keyword]
	return t, ok
}

// VR returns the dictionary VR of a tag. Group length elements are UL and
// anything unknown is UN.
func (t Tag) VR() string {
	if info, ok := dictionary[t]; ok {
		return info.VR
	}
	if t.IsGroupLength() {
		return "UL"
	}
	return "UN"
}

// LookupName returns the keyword for known tags
func (t Tag) LookupName() string {
	if info, ok := dictionary[t]; ok {
		return info.Keyword
	}
	return ""
}
