package dimse

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/jpfielding/dicomctl.go/pkg/dimse/pdu"
)

// Command fields
const (
	CStoreRQ  uint16 = 0x0001
	CStoreRSP uint16 = 0x8001
	CFindRQ   uint16 = 0x0020
	CFindRSP  uint16 = 0x8020
	CEchoRQ   uint16 = 0x0030
	CEchoRSP  uint16 = 0x8030
	CCancelRQ uint16 = 0x0FFF
)

// Command Data Set Type values
const (
	DatasetPresent uint16 = 0x0000
	NoDataset      uint16 = 0x0101
)

// Priority values
const (
	PriorityMedium uint16 = 0x0000
	PriorityHigh   uint16 = 0x0001
	PriorityLow    uint16 = 0x0002
)

// Message is a DIMSE command set
type Message struct {
	CommandField              uint16
	MessageID                 uint16
	MessageIDBeingRespondedTo uint16
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	Priority                  uint16
	CommandDataSetType        uint16
	Status                    Status
	ErrorComment              string
}

// HasDataset reports whether a data set follows the command
func (m *Message) HasDataset() bool {
	return m.CommandDataSetType != NoDataset
}

func isResponse(field uint16) bool {
	return field&0x8000 != 0
}

func appendUID(buf []byte, element uint16, uid string) []byte {
	v := []byte(uid)
	if len(v)%2 == 1 {
		v = append(v, 0x00)
	}
	return appendImplicit(buf, element, v)
}

func appendUS(buf []byte, element uint16, n uint16) []byte {
	return appendImplicit(buf, element, binary.LittleEndian.AppendUint16(nil, n))
}

func appendImplicit(buf []byte, element uint16, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, 0x0000)
	buf = binary.LittleEndian.AppendUint16(buf, element)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
	return append(buf, value...)
}

// EncodeCommand writes the command set in Implicit VR Little Endian with a
// leading Command Group Length, elements in ascending order.
func EncodeCommand(m *Message) []byte {
	var body []byte
	if m.AffectedSOPClassUID != "" {
		body = appendUID(body, 0x0002, m.AffectedSOPClassUID)
	}
	body = appendUS(body, 0x0100, m.CommandField)
	if isResponse(m.CommandField) || m.CommandField == CCancelRQ {
		body = appendUS(body, 0x0120, m.MessageIDBeingRespondedTo)
	} else {
		body = appendUS(body, 0x0110, m.MessageID)
	}
	if !isResponse(m.CommandField) && m.CommandField != CCancelRQ {
		body = appendUS(body, 0x0700, m.Priority)
	}
	body = appendUS(body, 0x0800, m.CommandDataSetType)
	if isResponse(m.CommandField) {
		body = appendUS(body, 0x0900, uint16(m.Status))
		if m.ErrorComment != "" {
			comment := []byte(m.ErrorComment)
			if len(comment)%2 == 1 {
				comment = append(comment, ' ')
			}
			body = appendImplicit(body, 0x0902, comment)
		}
	}
	if m.AffectedSOPInstanceUID != "" {
		body = appendUID(body, 0x1000, m.AffectedSOPInstanceUID)
	}

	buf := appendImplicit(nil, 0x0000, binary.LittleEndian.AppendUint32(nil, uint32(len(body))))
	return append(buf, body...)
}

// DecodeCommand reads an Implicit VR Little Endian command set
func DecodeCommand(b []byte) (*Message, error) {
	m := &Message{CommandDataSetType: NoDataset}
	for off := 0; off < len(b); {
		if off+8 > len(b) {
			return nil, fmt.Errorf("%w: truncated command element", ErrUnexpectedPDU)
		}
		group := binary.LittleEndian.Uint16(b[off:])
		element := binary.LittleEndian.Uint16(b[off+2:])
		n := int(binary.LittleEndian.Uint32(b[off+4:]))
		end := off + 8 + n
		if end > len(b) {
			return nil, fmt.Errorf("%w: command element (%04X,%04X) exceeds command", ErrUnexpectedPDU, group, element)
		}
		v := b[off+8 : end]
		off = end
		if group != 0x0000 {
			continue
		}
		us := func() uint16 {
			if len(v) < 2 {
				return 0
			}
			return binary.LittleEndian.Uint16(v)
		}
		switch element {
		case 0x0002:
			m.AffectedSOPClassUID = pdu.TrimUID(v)
		case 0x0100:
			m.CommandField = us()
		case 0x0110:
			m.MessageID = us()
		case 0x0120:
			m.MessageIDBeingRespondedTo = us()
		case 0x0700:
			m.Priority = us()
		case 0x0800:
			m.CommandDataSetType = us()
		case 0x0900:
			m.Status = Status(us())
		case 0x0902:
			m.ErrorComment = strings.TrimSpace(string(v))
		case 0x1000:
			m.AffectedSOPInstanceUID = pdu.TrimUID(v)
		}
	}
	return m, nil
}
