// Package dimse implements the service class user side of the DICOM upper
// layer protocol: association negotiation and the C-ECHO, C-FIND and C-STORE
// services over Implicit and Explicit VR Little Endian.
package dimse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomctl.go/pkg/dimse/pdu"
)

// Defaults applied to an empty Config
const (
	DefaultMaxPDU         uint32 = 16384
	DefaultConnectTimeout        = 30 * time.Second
	DefaultDIMSETimeout          = 300 * time.Second
)

// Config describes the association to request
type Config struct {
	CallingAE string
	CalledAE  string
	// AbstractSyntaxes get one presentation context each, IDs 1, 3, 5, ...
	AbstractSyntaxes []string
	// TransferSyntaxes are proposed in order for every context
	TransferSyntaxes []transfer.Syntax
	MaxPDU           uint32
	ConnectTimeout   time.Duration // dial and association negotiation
	DIMSETimeout     time.Duration // each request/response exchange
	Logger           *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxPDU == 0 {
		c.MaxPDU = DefaultMaxPDU
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.DIMSETimeout == 0 {
		c.DIMSETimeout = DefaultDIMSETimeout
	}
	if len(c.TransferSyntaxes) == 0 {
		c.TransferSyntaxes = []transfer.Syntax{transfer.ExplicitVRLittleEndian, transfer.ImplicitVRLittleEndian}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) validate() error {
	if err := pdu.ValidateAETitle(c.CallingAE); err != nil {
		return fmt.Errorf("calling AE: %w", err)
	}
	if err := pdu.ValidateAETitle(c.CalledAE); err != nil {
		return fmt.Errorf("called AE: %w", err)
	}
	return nil
}

// PresentationContext is a negotiated abstract syntax
type PresentationContext struct {
	ID             byte
	AbstractSyntax string
	TransferSyntax transfer.Syntax
	Accepted       bool
	Result         byte
}

// Association is an established SCU association. It is not safe for
// concurrent use; operations run one at a time.
type Association struct {
	conn       net.Conn
	cfg        Config
	logger     *slog.Logger
	contexts   map[byte]*PresentationContext
	peerMaxPDU uint32
	peerImpl   string
	lastMsgID  uint16

	closed atomic.Bool
}

// Dial connects to addr and negotiates an association
func Dial(ctx context.Context, addr string, cfg Config) (*Association, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	a, err := associate(ctx, conn, cfg)
	if err != nil {
		return nil, err
	}
	a.logger.Info("DICOM association established",
		slog.String("remote_addr", addr),
		slog.String("calling_ae", cfg.CallingAE),
		slog.String("called_ae", cfg.CalledAE))
	return a, nil
}

// associate negotiates over an open connection, closing it on failure
func associate(ctx context.Context, conn net.Conn, cfg Config) (*Association, error) {
	cfg = cfg.withDefaults()
	a := &Association{
		conn:     conn,
		cfg:      cfg,
		logger:   cfg.Logger,
		contexts: make(map[byte]*PresentationContext),
	}
	err := a.guard(ctx, cfg.ConnectTimeout, func() error {
		if err := a.sendAssociateRQ(); err != nil {
			return fmt.Errorf("send A-ASSOCIATE-RQ: %w", err)
		}
		return a.receiveAssociateAC()
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

func (a *Association) sendAssociateRQ() error {
	rq := &pdu.Associate{
		CalledAE:               a.cfg.CalledAE,
		CallingAE:              a.cfg.CallingAE,
		ApplicationContext:     dicom.ApplicationContextName,
		MaxPDU:                 a.cfg.MaxPDU,
		ImplementationClassUID: dicom.ImplementationClassUID,
		ImplementationVersion:  dicom.ImplementationVersionName,
	}
	syntaxes := make([]string, len(a.cfg.TransferSyntaxes))
	for i, ts := range a.cfg.TransferSyntaxes {
		syntaxes[i] = string(ts)
	}
	for i, as := range a.cfg.AbstractSyntaxes {
		id := byte(2*i + 1)
		rq.Contexts = append(rq.Contexts, pdu.PresentationContext{
			ID:               id,
			AbstractSyntax:   as,
			TransferSyntaxes: syntaxes,
		})
		a.contexts[id] = &PresentationContext{ID: id, AbstractSyntax: as}
	}
	return pdu.Write(a.conn, pdu.TypeAssociateRQ, rq.Marshal(false))
}

func (a *Association) receiveAssociateAC() error {
	typ, body, err := pdu.Read(a.conn)
	if err != nil {
		return err
	}
	switch typ {
	case pdu.TypeAssociateAC:
	case pdu.TypeAssociateRJ:
		if len(body) < 4 {
			return &RejectError{}
		}
		return &RejectError{Result: body[1], Source: body[2], Reason: body[3]}
	case pdu.TypeAbort:
		return a.abortFrom(body)
	default:
		return fmt.Errorf("%w: 0x%02X while waiting for A-ASSOCIATE-AC", ErrUnexpectedPDU, typ)
	}

	ac, err := pdu.ParseAssociate(body, true)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedPDU, err)
	}
	a.peerMaxPDU = ac.MaxPDU
	a.peerImpl = ac.ImplementationClassUID
	for _, pc := range ac.Contexts {
		local, ok := a.contexts[pc.ID]
		if !ok {
			continue
		}
		local.Result = pc.Result
		local.Accepted = pc.Result == pdu.ResultAcceptance && len(pc.TransferSyntaxes) > 0
		if local.Accepted {
			local.TransferSyntax = transfer.FromUID(pc.TransferSyntaxes[0])
			if !local.TransferSyntax.IsSupported() {
				local.Accepted = false
			}
		}
		a.logger.Debug("presentation context negotiated",
			slog.Int("context_id", int(pc.ID)),
			slog.String("abstract_syntax", local.AbstractSyntax),
			slog.Int("result", int(pc.Result)),
			slog.String("transfer_syntax", string(local.TransferSyntax)),
			slog.Bool("accepted", local.Accepted))
	}
	return nil
}

// PresentationContexts returns the negotiated contexts ordered by ID
func (a *Association) PresentationContexts() []PresentationContext {
	out := make([]PresentationContext, 0, len(a.contexts))
	for i := range a.cfg.AbstractSyntaxes {
		if pc, ok := a.contexts[byte(2*i+1)]; ok {
			out = append(out, *pc)
		}
	}
	return out
}

// PeerMaxPDU is the largest P-DATA-TF body the peer accepts; 0 means unlimited
func (a *Association) PeerMaxPDU() uint32 {
	return a.peerMaxPDU
}

// PeerImplementation is the implementation class UID the peer announced
func (a *Association) PeerImplementation() string {
	return a.peerImpl
}

func (a *Association) contextFor(abstractSyntax string) (*PresentationContext, error) {
	for _, pc := range a.contexts {
		if pc.AbstractSyntax == abstractSyntax && pc.Accepted {
			return pc, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoPresentationContext, abstractSyntax)
}

func (a *Association) nextMessageID() uint16 {
	a.lastMsgID++
	if a.lastMsgID == 0 {
		a.lastMsgID = 1
	}
	return a.lastMsgID
}

// guard runs fn under a connection deadline; cancelling ctx closes the
// connection and the returned error is the context error.
func (a *Association) guard(ctx context.Context, timeout time.Duration, fn func() error) error {
	if a.closed.Load() {
		return ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout > 0 {
		if err := a.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { a.closeConn() })
	defer stop()

	err := fn()
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

func (a *Association) closeConn() {
	if a.closed.CompareAndSwap(false, true) {
		a.conn.Close()
	}
}

// maxFragment is the data size of one PDV within the peer's limit. A peer
// announcing 0 (unlimited) gets PDUs no larger than our own limit.
func (a *Association) maxFragment() int {
	limit := a.peerMaxPDU
	if limit == 0 {
		limit = a.cfg.MaxPDU
	}
	return max(int(limit)-6, 2)
}

// send writes one DIMSE message: the command, then the data set if any
func (a *Association) send(pcID byte, cmd *Message, data []byte) error {
	if err := a.sendFragments(pcID, true, EncodeCommand(cmd)); err != nil {
		return err
	}
	if len(data) > 0 {
		return a.sendFragments(pcID, false, data)
	}
	return nil
}

func (a *Association) sendFragments(pcID byte, command bool, data []byte) error {
	size := a.maxFragment()
	for off := 0; ; {
		end := min(off+size, len(data))
		v := pdu.PDV{ContextID: pcID, Command: command, Last: end == len(data), Data: data[off:end]}
		if err := pdu.Write(a.conn, pdu.TypePDataTF, v.Marshal()); err != nil {
			return fmt.Errorf("write P-DATA-TF: %w", err)
		}
		if off = end; off >= len(data) {
			return nil
		}
	}
}

// receive reads the next complete DIMSE message and its data set bytes
func (a *Association) receive() (*Message, byte, []byte, error) {
	var (
		command, data []byte
		msg           *Message
		pcID          byte
		dataDone      bool
	)
	for {
		typ, body, err := pdu.Read(a.conn)
		if err != nil {
			return nil, 0, nil, err
		}
		switch typ {
		case pdu.TypePDataTF:
		case pdu.TypeAbort:
			a.closeConn()
			return nil, 0, nil, a.abortFrom(body)
		case pdu.TypeReleaseRQ:
			pdu.Write(a.conn, pdu.TypeReleaseRP, pdu.Release())
			a.closeConn()
			return nil, 0, nil, ErrReleased
		default:
			return nil, 0, nil, fmt.Errorf("%w: 0x%02X during DIMSE exchange", ErrUnexpectedPDU, typ)
		}

		pdvs, err := pdu.ParsePDataTF(body)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("%w: %w", ErrUnexpectedPDU, err)
		}
		for _, v := range pdvs {
			pcID = v.ContextID
			if v.Command {
				command = append(command, v.Data...)
				if v.Last {
					if msg, err = DecodeCommand(command); err != nil {
						return nil, 0, nil, err
					}
				}
				continue
			}
			data = append(data, v.Data...)
			if v.Last {
				dataDone = true
			}
		}
		if msg != nil && (!msg.HasDataset() || dataDone) {
			a.logger.Debug("received DIMSE message",
				slog.String("command", fmt.Sprintf("0x%04X", msg.CommandField)),
				slog.Int("responding_to", int(msg.MessageIDBeingRespondedTo)),
				slog.String("status", msg.Status.String()),
				slog.Int("data_bytes", len(data)))
			return msg, pcID, data, nil
		}
	}
}

func (a *Association) abortFrom(body []byte) error {
	e := &abortError{}
	if len(body) >= 4 {
		e.Source, e.Reason = body[2], body[3]
	}
	a.logger.Error("received A-ABORT from peer",
		slog.Int("source", int(e.Source)),
		slog.Int("reason", int(e.Reason)))
	return e
}

// Release asks the peer to end the association and waits for its reply
func (a *Association) Release(ctx context.Context) error {
	if a.closed.Load() {
		return nil
	}
	defer a.closeConn()
	return a.guard(ctx, a.cfg.ConnectTimeout, func() error {
		if err := pdu.Write(a.conn, pdu.TypeReleaseRQ, pdu.Release()); err != nil {
			return fmt.Errorf("send A-RELEASE-RQ: %w", err)
		}
		for {
			typ, body, err := pdu.Read(a.conn)
			if err != nil {
				return err
			}
			switch typ {
			case pdu.TypeReleaseRP:
				a.logger.Debug("association released")
				return nil
			case pdu.TypeAbort:
				return a.abortFrom(body)
			case pdu.TypePDataTF:
				// late responses are dropped
				continue
			default:
				return fmt.Errorf("%w: 0x%02X while waiting for A-RELEASE-RP", ErrUnexpectedPDU, typ)
			}
		}
	})
}

// Abort sends an A-ABORT and closes the connection
func (a *Association) Abort() error {
	if a.closed.Load() {
		return nil
	}
	a.conn.SetWriteDeadline(time.Now().Add(time.Second))
	err := pdu.Write(a.conn, pdu.TypeAbort, pdu.Abort(0, 0))
	a.closeConn()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
