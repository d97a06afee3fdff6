package dimse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
)

// Echo sends a C-ECHO-RQ and returns the response status
func (a *Association) Echo(ctx context.Context) (Status, error) {
	pc, err := a.contextFor(dicom.VerificationSOPClass)
	if err != nil {
		return 0, err
	}
	rq := &Message{
		CommandField:        CEchoRQ,
		MessageID:           a.nextMessageID(),
		AffectedSOPClassUID: dicom.VerificationSOPClass,
		CommandDataSetType:  NoDataset,
	}
	var rsp *Message
	err = a.guard(ctx, a.cfg.DIMSETimeout, func() error {
		if err := a.send(pc.ID, rq, nil); err != nil {
			return err
		}
		a.logger.Debug("sent C-ECHO-RQ", slog.Int("message_id", int(rq.MessageID)))
		rsp, err = a.expect(CEchoRSP, rq.MessageID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("C-ECHO: %w", err)
	}
	return rsp.Status, nil
}

// expect receives the next message and checks that it answers messageID
func (a *Association) expect(field, messageID uint16) (*Message, error) {
	msg, _, _, err := a.receive()
	if err != nil {
		return nil, err
	}
	if msg.CommandField != field {
		return nil, fmt.Errorf("%w: command 0x%04X, expected 0x%04X", ErrUnexpectedPDU, msg.CommandField, field)
	}
	if msg.MessageIDBeingRespondedTo != messageID {
		a.logger.Warn("response for a different message",
			slog.Int("expected", int(messageID)),
			slog.Int("got", int(msg.MessageIDBeingRespondedTo)))
	}
	return msg, nil
}
