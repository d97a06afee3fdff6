package module

import "github.com/jpfielding/dicomctl.go/pkg/dicom/tag"

// GeneralEquipmentModule represents the General Equipment Module
type GeneralEquipmentModule struct {
	Manufacturer      string
	InstitutionName   string
	StationName       string
	ManufacturerModel string
	DeviceSerial      string
	SoftwareVersions  string
}

// ToTags writes Manufacturer (type 2) always and the rest when set
func (m *GeneralEquipmentModule) ToTags() []IODElement {
	var e elements
	e.add(tag.Manufacturer, m.Manufacturer)
	e.optional(tag.InstitutionName, m.InstitutionName)
	e.optional(tag.StationName, m.StationName)
	e.optional(tag.ManufacturerModelName, m.ManufacturerModel)
	e.optional(tag.DeviceSerialNumber, m.DeviceSerial)
	e.optional(tag.SoftwareVersions, m.SoftwareVersions)
	return e
}

// SCEquipmentModule represents the SC Equipment Module
type SCEquipmentModule struct {
	ConversionType string // WSD, DI, SI, ...
}

func (m *SCEquipmentModule) ToTags() []IODElement {
	conversion := m.ConversionType
	if conversion == "" {
		conversion = "WSD"
	}
	return []IODElement{{Tag: tag.ConversionType, Value: conversion}}
}
