// Package dimsetest provides a loopback SCP for exercising SCU code, in the
// manner of net/http/httptest.
package dimsetest

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomctl.go/pkg/dimse"
	"github.com/jpfielding/dicomctl.go/pkg/dimse/pdu"
)

// Options shape how the server answers association requests
type Options struct {
	// Accept reports whether an abstract syntax gets a context; nil accepts all
	Accept func(abstractSyntax string) bool
	// Reject, when set, is sent as the A-ASSOCIATE-RJ body instead of accepting
	Reject []byte
	// MaxPDU announced to the SCU; 0 announces no limit
	MaxPDU                 uint32
	ImplementationClassUID string
}

// Server accepts associations on a loopback port and passes each to a handler
type Server struct {
	Addr string

	t      testing.TB
	opts   Options
	handle func(*Session)
	ln     net.Listener
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	conns    []net.Conn
	requests []*pdu.Associate
}

// NewServer starts listening; it is shut down when the test ends
func NewServer(t testing.TB, opts Options, handle func(*Session)) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("dimsetest: listen: %v", err)
	}
	s := &Server{Addr: ln.Addr().String(), t: t, opts: opts, handle: handle, ln: ln}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Host and Port split Addr
func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Requests returns the association requests received so far
func (s *Server) Requests() []*pdu.Associate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*pdu.Associate(nil), s.requests...)
}

// Close stops listening, drops open connections and waits for handlers
func (s *Server) Close() {
	s.ln.Close()
	s.mu.Lock()
	s.closed = true
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns = append(s.conns, conn)
		s.wg.Add(1)
		s.mu.Unlock()
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			sess, err := s.negotiate(conn)
			if err != nil {
				s.t.Logf("dimsetest: %v", err)
				return
			}
			if sess != nil && s.handle != nil {
				s.handle(sess)
			}
		}()
	}
}

func (s *Server) negotiate(conn net.Conn) (*Session, error) {
	typ, body, err := pdu.Read(conn)
	if err != nil {
		return nil, err
	}
	if typ != pdu.TypeAssociateRQ {
		return nil, fmt.Errorf("expected A-ASSOCIATE-RQ, got 0x%02X", typ)
	}
	rq, err := pdu.ParseAssociate(body, false)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.requests = append(s.requests, rq)
	s.mu.Unlock()

	if s.opts.Reject != nil {
		return nil, pdu.Write(conn, pdu.TypeAssociateRJ, s.opts.Reject)
	}

	sess := &Session{
		T:        s.t,
		Conn:     conn,
		Request:  rq,
		contexts: make(map[byte]transfer.Syntax),
		peerMax:  rq.MaxPDU,
	}
	ac := &pdu.Associate{
		CalledAE:               rq.CalledAE,
		CallingAE:              rq.CallingAE,
		ApplicationContext:     rq.ApplicationContext,
		MaxPDU:                 s.opts.MaxPDU,
		ImplementationClassUID: s.opts.ImplementationClassUID,
	}
	for _, pc := range rq.Contexts {
		answer := pdu.PresentationContext{ID: pc.ID, Result: pdu.ResultAbstractSyntaxUnsupported}
		if (s.opts.Accept == nil || s.opts.Accept(pc.AbstractSyntax)) && len(pc.TransferSyntaxes) > 0 {
			answer.Result = pdu.ResultAcceptance
			answer.TransferSyntaxes = pc.TransferSyntaxes[:1]
			sess.contexts[pc.ID] = transfer.FromUID(pc.TransferSyntaxes[0])
		}
		ac.Contexts = append(ac.Contexts, answer)
	}
	return sess, pdu.Write(conn, pdu.TypeAssociateAC, ac.Marshal(true))
}

// Session is one accepted association seen from the SCP side
type Session struct {
	T       testing.TB
	Conn    net.Conn
	Request *pdu.Associate

	contexts map[byte]transfer.Syntax
	peerMax  uint32
}

// TransferSyntax returns the syntax accepted for a context
func (s *Session) TransferSyntax(pcID byte) transfer.Syntax {
	return s.contexts[pcID]
}

// Next reads the next request and decodes its data set. A release request is
// answered and reported as dimse.ErrReleased.
func (s *Session) Next() (*dimse.Message, byte, *dicom.Dataset, error) {
	var (
		command, data []byte
		msg           *dimse.Message
		pcID          byte
		dataDone      bool
	)
	for {
		typ, body, err := pdu.Read(s.Conn)
		if err != nil {
			return nil, 0, nil, err
		}
		switch typ {
		case pdu.TypePDataTF:
		case pdu.TypeReleaseRQ:
			return nil, 0, nil, errors.Join(dimse.ErrReleased, pdu.Write(s.Conn, pdu.TypeReleaseRP, pdu.Release()))
		case pdu.TypeAbort:
			return nil, 0, nil, dimse.ErrAborted
		default:
			return nil, 0, nil, fmt.Errorf("%w: 0x%02X", dimse.ErrUnexpectedPDU, typ)
		}
		pdvs, err := pdu.ParsePDataTF(body)
		if err != nil {
			return nil, 0, nil, err
		}
		for _, v := range pdvs {
			pcID = v.ContextID
			if v.Command {
				command = append(command, v.Data...)
				if v.Last {
					if msg, err = dimse.DecodeCommand(command); err != nil {
						return nil, 0, nil, err
					}
				}
				continue
			}
			data = append(data, v.Data...)
			dataDone = v.Last
		}
		if msg == nil || (msg.HasDataset() && !dataDone) {
			continue
		}
		var ds *dicom.Dataset
		if len(data) > 0 {
			if ds, err = dicom.ParseDataset(data, s.contexts[pcID]); err != nil {
				return nil, 0, nil, err
			}
		}
		return msg, pcID, ds, nil
	}
}

// Send writes a message, fragmenting to the SCU's max PDU
func (s *Session) Send(pcID byte, msg *dimse.Message, ds *dicom.Dataset) error {
	var data []byte
	msg.CommandDataSetType = dimse.NoDataset
	if ds != nil {
		var err error
		if data, err = dicom.EncodeDataset(ds, s.contexts[pcID]); err != nil {
			return err
		}
		msg.CommandDataSetType = dimse.DatasetPresent
	}
	if err := s.fragments(pcID, true, dimse.EncodeCommand(msg)); err != nil {
		return err
	}
	if len(data) > 0 {
		return s.fragments(pcID, false, data)
	}
	return nil
}

func (s *Session) fragments(pcID byte, command bool, data []byte) error {
	size := len(data)
	if s.peerMax > 6 && int(s.peerMax)-6 < size {
		size = int(s.peerMax) - 6
	}
	for off := 0; ; {
		end := min(off+max(size, 1), len(data))
		v := pdu.PDV{ContextID: pcID, Command: command, Last: end == len(data), Data: data[off:end]}
		if err := pdu.Write(s.Conn, pdu.TypePDataTF, v.Marshal()); err != nil {
			return err
		}
		if off = end; off >= len(data) {
			return nil
		}
	}
}

// Respond answers rq with its response command, status and optional data set
func (s *Session) Respond(pcID byte, rq *dimse.Message, status dimse.Status, ds *dicom.Dataset) error {
	field := rq.CommandField | 0x8000
	if rq.CommandField == dimse.CCancelRQ {
		field = dimse.CFindRSP
	}
	return s.Send(pcID, &dimse.Message{
		CommandField:              field,
		MessageIDBeingRespondedTo: rq.MessageID,
		AffectedSOPClassUID:       rq.AffectedSOPClassUID,
		AffectedSOPInstanceUID:    rq.AffectedSOPInstanceUID,
		Status:                    status,
	}, ds)
}

// AwaitRelease reads until the SCU asks for release and answers it
func (s *Session) AwaitRelease() error {
	_, _, _, err := s.Next()
	if errors.Is(err, dimse.ErrReleased) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("expected A-RELEASE-RQ, got a DIMSE message")
	}
	return err
}

// Abort sends an A-ABORT as the service provider
func (s *Session) Abort(reason byte) error {
	return pdu.Write(s.Conn, pdu.TypeAbort, pdu.Abort(2, reason))
}
