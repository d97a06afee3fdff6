package dimsetest

import (
	"errors"
	"sync"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dimse"
)

// SCP is a handler answering C-ECHO with success, C-FIND with Matches and
// C-STORE with StoreStatus, recording what it receives.
type SCP struct {
	Matches     []*dicom.Dataset
	FindStatus  dimse.Status // final C-FIND status, success when zero
	StoreStatus dimse.Status
	EchoStatus  dimse.Status

	mu      sync.Mutex
	echoes  int
	queries []*dicom.Dataset
	stored  []*dicom.Dataset
}

// Handle serves requests until the association ends
func (p *SCP) Handle(s *Session) {
	for {
		msg, pcID, ds, err := s.Next()
		if err != nil {
			if !errors.Is(err, dimse.ErrReleased) {
				s.T.Logf("dimsetest: %v", err)
			}
			return
		}
		switch msg.CommandField {
		case dimse.CEchoRQ:
			p.mu.Lock()
			p.echoes++
			p.mu.Unlock()
			err = s.Respond(pcID, msg, p.EchoStatus, nil)
		case dimse.CFindRQ:
			p.mu.Lock()
			p.queries = append(p.queries, ds)
			p.mu.Unlock()
			for _, m := range p.Matches {
				if err = s.Respond(pcID, msg, dimse.StatusPending, m); err != nil {
					break
				}
			}
			if err == nil {
				err = s.Respond(pcID, msg, p.FindStatus, nil)
			}
		case dimse.CStoreRQ:
			p.mu.Lock()
			p.stored = append(p.stored, ds)
			p.mu.Unlock()
			err = s.Respond(pcID, msg, p.StoreStatus, nil)
		case dimse.CCancelRQ:
		}
		if err != nil {
			s.T.Logf("dimsetest: respond: %v", err)
			return
		}
	}
}

// Echoes counts the C-ECHO requests served
func (p *SCP) Echoes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.echoes
}

// Queries returns the C-FIND identifiers received
func (p *SCP) Queries() []*dicom.Dataset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*dicom.Dataset(nil), p.queries...)
}

// Stored returns the C-STORE data sets received
func (p *SCP) Stored() []*dicom.Dataset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*dicom.Dataset(nil), p.stored...)
}
