// Package pdu encodes and decodes DICOM upper layer protocol data units
// (PS3.8 section 9).
package pdu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PDU types
const (
	TypeAssociateRQ byte = 0x01
	TypeAssociateAC byte = 0x02
	TypeAssociateRJ byte = 0x03
	TypePDataTF     byte = 0x04
	TypeReleaseRQ   byte = 0x05
	TypeReleaseRP   byte = 0x06
	TypeAbort       byte = 0x07
)

// Variable item types
const (
	ItemApplicationContext     byte = 0x10
	ItemPresentationContextRQ  byte = 0x20
	ItemPresentationContextAC  byte = 0x21
	ItemAbstractSyntax         byte = 0x30
	ItemTransferSyntax         byte = 0x40
	ItemUserInformation        byte = 0x50
	ItemMaxLength              byte = 0x51
	ItemImplementationClassUID byte = 0x52
	ItemImplementationVersion  byte = 0x55
)

// Presentation context results
const (
	ResultAcceptance                byte = 0
	ResultUserRejection             byte = 1
	ResultNoReason                  byte = 2
	ResultAbstractSyntaxUnsupported byte = 3
	ResultTransferSyntaxUnsupported byte = 4
)

// HeaderLength is type, reserved and a 32-bit length
const HeaderLength = 6

// MaxIncoming bounds what Read is willing to allocate for one PDU
const MaxIncoming = 128 << 20

// ErrMalformed is returned for PDUs that cannot be decoded
var ErrMalformed = errors.New("pdu: malformed")

// PresentationContext is a proposed (RQ) or answered (AC) context item
type PresentationContext struct {
	ID               byte
	Result           byte   // AC only
	AbstractSyntax   string // RQ only
	TransferSyntaxes []string
}

// Associate carries the fields shared by A-ASSOCIATE-RQ and -AC
type Associate struct {
	CalledAE               string
	CallingAE              string
	ApplicationContext     string
	Contexts               []PresentationContext
	MaxPDU                 uint32
	ImplementationClassUID string
	ImplementationVersion  string
}

// ErrInvalidAETitle is returned for AE titles that do not fit the 16 byte field
var ErrInvalidAETitle = errors.New("pdu: invalid AE title")

// ValidateAETitle checks an AE title is 1 to 16 characters of printable
// text without backslashes and not all spaces.
func ValidateAETitle(ae string) error {
	if len(ae) > 16 || strings.TrimSpace(ae) == "" {
		return fmt.Errorf("%w %q: must be 1 to 16 characters", ErrInvalidAETitle, ae)
	}
	for _, r := range ae {
		if r == '\\' || r < 0x20 || r > 0x7e {
			return fmt.Errorf("%w %q: contains %q", ErrInvalidAETitle, ae, r)
		}
	}
	return nil
}

// aeField pads to the fixed field; callers validate with ValidateAETitle
func aeField(ae string) []byte {
	b := []byte(fmt.Sprintf("%-16s", ae))
	return b[:16]
}

func appendItem(buf []byte, itemType byte, value []byte) []byte {
	buf = append(buf, itemType, 0x00)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}

// Marshal encodes the PDU body; ac selects the answer layout
func (p *Associate) Marshal(ac bool) []byte {
	buf := make([]byte, 0, 512)
	buf = append(buf, 0x00, 0x01, 0x00, 0x00) // protocol version, reserved
	buf = append(buf, aeField(p.CalledAE)...)
	buf = append(buf, aeField(p.CallingAE)...)
	buf = append(buf, make([]byte, 32)...)
	buf = appendItem(buf, ItemApplicationContext, []byte(p.ApplicationContext))

	for _, pc := range p.Contexts {
		var body []byte
		itemType := ItemPresentationContextRQ
		if ac {
			itemType = ItemPresentationContextAC
			body = append(body, pc.ID, 0x00, pc.Result, 0x00)
		} else {
			body = append(body, pc.ID, 0x00, 0x00, 0x00)
			body = appendItem(body, ItemAbstractSyntax, []byte(pc.AbstractSyntax))
		}
		for _, ts := range pc.TransferSyntaxes {
			body = appendItem(body, ItemTransferSyntax, []byte(ts))
		}
		buf = appendItem(buf, itemType, body)
	}

	var user []byte
	user = appendItem(user, ItemMaxLength, binary.BigEndian.AppendUint32(nil, p.MaxPDU))
	if p.ImplementationClassUID != "" {
		user = appendItem(user, ItemImplementationClassUID, []byte(p.ImplementationClassUID))
	}
	if p.ImplementationVersion != "" {
		user = appendItem(user, ItemImplementationVersion, []byte(p.ImplementationVersion))
	}
	return appendItem(buf, ItemUserInformation, user)
}

type item struct {
	typ   byte
	value []byte
}

func parseItems(b []byte) ([]item, error) {
	var items []item
	for off := 0; off < len(b); {
		if off+4 > len(b) {
			return nil, fmt.Errorf("%w: truncated item header", ErrMalformed)
		}
		n := int(binary.BigEndian.Uint16(b[off+2:]))
		end := off + 4 + n
		if end > len(b) {
			return nil, fmt.Errorf("%w: item 0x%02X length %d exceeds PDU", ErrMalformed, b[off], n)
		}
		items = append(items, item{typ: b[off], value: b[off+4 : end]})
		off = end
	}
	return items, nil
}

// TrimUID drops the NUL or space padding of a UID value
func TrimUID(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

// ParseAssociate decodes an A-ASSOCIATE-RQ or -AC body
func ParseAssociate(b []byte, ac bool) (*Associate, error) {
	if len(b) < 68 {
		return nil, fmt.Errorf("%w: associate PDU of %d bytes", ErrMalformed, len(b))
	}
	p := &Associate{
		CalledAE:  strings.TrimSpace(string(b[4:20])),
		CallingAE: strings.TrimSpace(string(b[20:36])),
	}
	items, err := parseItems(b[68:])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		switch it.typ {
		case ItemApplicationContext:
			p.ApplicationContext = TrimUID(it.value)
		case ItemPresentationContextRQ, ItemPresentationContextAC:
			if len(it.value) < 4 {
				return nil, fmt.Errorf("%w: short presentation context", ErrMalformed)
			}
			pc := PresentationContext{ID: it.value[0]}
			if ac {
				pc.Result = it.value[2]
			}
			subs, err := parseItems(it.value[4:])
			if err != nil {
				return nil, err
			}
			for _, sub := range subs {
				switch sub.typ {
				case ItemAbstractSyntax:
					pc.AbstractSyntax = TrimUID(sub.value)
				case ItemTransferSyntax:
					pc.TransferSyntaxes = append(pc.TransferSyntaxes, TrimUID(sub.value))
				}
			}
			p.Contexts = append(p.Contexts, pc)
		case ItemUserInformation:
			subs, err := parseItems(it.value)
			if err != nil {
				return nil, err
			}
			for _, sub := range subs {
				switch sub.typ {
				case ItemMaxLength:
					if len(sub.value) == 4 {
						p.MaxPDU = binary.BigEndian.Uint32(sub.value)
					}
				case ItemImplementationClassUID:
					p.ImplementationClassUID = TrimUID(sub.value)
				case ItemImplementationVersion:
					p.ImplementationVersion = strings.TrimSpace(string(sub.value))
				}
			}
		}
	}
	return p, nil
}

// Write sends one PDU in a single write
func Write(w io.Writer, typ byte, body []byte) error {
	buf := make([]byte, HeaderLength, HeaderLength+len(body))
	buf[0] = typ
	binary.BigEndian.PutUint32(buf[2:], uint32(len(body)))
	buf = append(buf, body...)
	_, err := w.Write(buf)
	return err
}

// Read receives one PDU and returns its type and body
func Read(r io.Reader) (byte, []byte, error) {
	var header [HeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("read PDU header: %w", err)
	}
	n := binary.BigEndian.Uint32(header[2:])
	if n > MaxIncoming {
		return 0, nil, fmt.Errorf("%w: PDU type 0x%02X claims %d bytes", ErrMalformed, header[0], n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("read PDU body: %w", err)
	}
	return header[0], body, nil
}

// PDV is one presentation data value of a P-DATA-TF
type PDV struct {
	ContextID byte
	Command   bool
	Last      bool
	Data      []byte
}

func (v PDV) header() byte {
	var h byte
	if v.Command {
		h |= 0x01
	}
	if v.Last {
		h |= 0x02
	}
	return h
}

// Marshal encodes the PDV as a P-DATA-TF body holding only this value
func (v PDV) Marshal() []byte {
	buf := make([]byte, 0, 6+len(v.Data))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Data)+2))
	buf = append(buf, v.ContextID, v.header())
	return append(buf, v.Data...)
}

// ParsePDataTF splits a P-DATA-TF body into its values
func ParsePDataTF(b []byte) ([]PDV, error) {
	var out []PDV
	for off := 0; off < len(b); {
		if off+6 > len(b) {
			return nil, fmt.Errorf("%w: truncated PDV", ErrMalformed)
		}
		n := int(binary.BigEndian.Uint32(b[off:]))
		end := off + 4 + n
		if n < 2 || end > len(b) {
			return nil, fmt.Errorf("%w: PDV length %d exceeds PDU", ErrMalformed, n)
		}
		h := b[off+5]
		out = append(out, PDV{
			ContextID: b[off+4],
			Command:   h&0x01 != 0,
			Last:      h&0x02 != 0,
			Data:      b[off+6 : end],
		})
		off = end
	}
	return out, nil
}

// Release is the fixed four byte body of A-RELEASE-RQ and -RP
func Release() []byte {
	return make([]byte, 4)
}

// Abort builds an A-ABORT body
func Abort(source, reason byte) []byte {
	return []byte{0, 0, source, reason}
}

// Reject builds an A-ASSOCIATE-RJ body
func Reject(result, source, reason byte) []byte {
	return []byte{0, result, source, reason}
}
