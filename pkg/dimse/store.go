package dimse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
)

// Store sends ds with a C-STORE-RQ and returns the response status. File meta
// elements are not transmitted.
func (a *Association) Store(ctx context.Context, sopClass, sopInstance string, ds *dicom.Dataset) (Status, error) {
	pc, err := a.contextFor(sopClass)
	if err != nil {
		return 0, err
	}
	data, err := dicom.EncodeDataset(ds, pc.TransferSyntax)
	if err != nil {
		return 0, fmt.Errorf("encode C-STORE data set: %w", err)
	}
	rq := &Message{
		CommandField:           CStoreRQ,
		MessageID:              a.nextMessageID(),
		AffectedSOPClassUID:    sopClass,
		AffectedSOPInstanceUID: sopInstance,
		Priority:               PriorityMedium,
		CommandDataSetType:     DatasetPresent,
	}
	var rsp *Message
	err = a.guard(ctx, a.cfg.DIMSETimeout, func() error {
		if err := a.send(pc.ID, rq, data); err != nil {
			return err
		}
		a.logger.Debug("sent C-STORE-RQ",
			slog.String("sop_class", sopClass),
			slog.String("sop_instance", sopInstance),
			slog.Int("data_size", len(data)),
			slog.String("transfer_syntax", pc.TransferSyntax.Name()))
		rsp, err = a.expect(CStoreRSP, rq.MessageID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("C-STORE: %w", err)
	}
	if rsp.ErrorComment != "" {
		a.logger.Warn("C-STORE error comment", slog.String("comment", rsp.ErrorComment))
	}
	return rsp.Status, nil
}
