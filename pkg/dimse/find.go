package dimse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
)

// ErrStopFind can be returned from a Find callback to cancel the query
// without Find reporting an error
var ErrStopFind = errors.New("dimse: stop find")

// Find sends a C-FIND-RQ with identifier and calls fn for each pending
// response's identifier. When fn returns an error a C-CANCEL-RQ is sent, the
// remaining responses are drained and that error is returned.
func (a *Association) Find(ctx context.Context, sopClass string, identifier *dicom.Dataset, fn func(*dicom.Dataset) error) (Status, error) {
	pc, err := a.contextFor(sopClass)
	if err != nil {
		return 0, err
	}
	data, err := dicom.EncodeDataset(identifier, pc.TransferSyntax)
	if err != nil {
		return 0, fmt.Errorf("encode C-FIND identifier: %w", err)
	}
	rq := &Message{
		CommandField:        CFindRQ,
		MessageID:           a.nextMessageID(),
		AffectedSOPClassUID: sopClass,
		Priority:            PriorityMedium,
		CommandDataSetType:  DatasetPresent,
	}
	err = a.guard(ctx, a.cfg.DIMSETimeout, func() error {
		return a.send(pc.ID, rq, data)
	})
	if err != nil {
		return 0, fmt.Errorf("C-FIND: %w", err)
	}
	a.logger.Debug("sent C-FIND-RQ",
		slog.Int("message_id", int(rq.MessageID)),
		slog.String("sop_class", sopClass),
		slog.Int("identifier_bytes", len(data)))

	var (
		cbErr     error
		cancelled bool
		matches   int
	)
	for {
		var (
			msg  *Message
			pcID byte
			body []byte
		)
		err := a.guard(ctx, a.cfg.DIMSETimeout, func() error {
			var err error
			msg, pcID, body, err = a.receive()
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("C-FIND: %w", err)
		}
		if msg.CommandField != CFindRSP {
			return 0, fmt.Errorf("C-FIND: %w: command 0x%04X", ErrUnexpectedPDU, msg.CommandField)
		}
		if !msg.Status.IsPending() {
			a.logger.Debug("C-FIND complete", slog.Int("matches", matches), slog.String("status", msg.Status.String()))
			if errors.Is(cbErr, ErrStopFind) {
				cbErr = nil
			}
			return msg.Status, cbErr
		}
		if cancelled || len(body) == 0 {
			continue
		}

		ts := pc.TransferSyntax
		if rc, ok := a.contexts[pcID]; ok && rc.Accepted {
			ts = rc.TransferSyntax
		}
		match, err := dicom.ParseDataset(body, ts)
		if err != nil {
			a.logger.Warn("failed to parse C-FIND identifier",
				slog.String("error", err.Error()),
				slog.String("status", msg.Status.String()))
			continue
		}
		matches++
		if cbErr = fn(match); cbErr != nil {
			cancelled = true
			cancel := &Message{
				CommandField:              CCancelRQ,
				MessageIDBeingRespondedTo: rq.MessageID,
				CommandDataSetType:        NoDataset,
			}
			err := a.guard(ctx, a.cfg.DIMSETimeout, func() error {
				return a.send(pc.ID, cancel, nil)
			})
			if err != nil {
				return 0, fmt.Errorf("C-CANCEL: %w", err)
			}
		}
	}
}
