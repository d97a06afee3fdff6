// Package scu runs one DICOM operation per association against a remote SCP.
package scu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dimse"
	"github.com/jpfielding/dicomctl.go/pkg/mwl"
)

// Target names the remote SCP and the AE titles used to reach it
type Target struct {
	Host           string
	Port           int
	CalledAE       string
	CallingAE      string
	ConnectTimeout time.Duration
	DIMSETimeout   time.Duration
	MaxPDU         uint32
}

// Addr is host:port
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) config(abstract ...string) dimse.Config {
	return dimse.Config{
		CallingAE:        t.CallingAE,
		CalledAE:         t.CalledAE,
		AbstractSyntaxes: abstract,
		MaxPDU:           t.MaxPDU,
		ConnectTimeout:   t.ConnectTimeout,
		DIMSETimeout:     t.DIMSETimeout,
		Logger:           slog.Default(),
	}
}

// within dials, runs fn and releases the association. A failed release is
// logged; the error of fn wins.
func within(ctx context.Context, t Target, abstract string, fn func(*dimse.Association) error) error {
	a, err := dimse.Dial(ctx, t.Addr(), t.config(abstract))
	if err != nil {
		return err
	}
	err = fn(a)
	if rerr := a.Release(context.WithoutCancel(ctx)); rerr != nil {
		slog.Warn("association release failed", slog.String("remote_addr", t.Addr()), slog.Any("error", rerr))
		if err == nil && !errors.Is(rerr, dimse.ErrAborted) {
			err = rerr
		}
	}
	return err
}

// Echo verifies connectivity with C-ECHO
func Echo(ctx context.Context, t Target) error {
	return within(ctx, t, dicom.VerificationSOPClass, func(a *dimse.Association) error {
		status, err := a.Echo(ctx)
		if err != nil {
			return err
		}
		if !status.IsSuccess() {
			return &dimse.StatusError{Operation: "C-ECHO", Status: status}
		}
		slog.Info("C-ECHO successful", slog.String("remote_addr", t.Addr()), slog.String("status", status.String()))
		return nil
	})
}

// FindWorklist runs a Modality Worklist C-FIND and collects the pending
// identifiers
func FindWorklist(ctx context.Context, t Target, query *dicom.Dataset) ([]*dicom.Dataset, error) {
	var found []*dicom.Dataset
	err := within(ctx, t, dicom.ModalityWorklistFindSOPClass, func(a *dimse.Association) error {
		status, err := a.Find(ctx, dicom.ModalityWorklistFindSOPClass, query, func(ds *dicom.Dataset) error {
			found = append(found, ds)
			return nil
		})
		if err != nil {
			return err
		}
		if status.IsFailure() || status.IsCancel() {
			slog.Error("C-FIND failed", slog.String("status", status.String()), slog.Int("matches", len(found)))
			return &dimse.StatusError{Operation: "C-FIND", Status: status}
		}
		slog.Info("C-FIND complete", slog.Int("matches", len(found)), slog.String("status", status.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// WorklistFilename is the Part 10 name a worklist item is saved under
func WorklistFilename(ds *dicom.Dataset) string {
	name := strings.ReplaceAll(dicom.GetString(ds, tag.PatientName), "^", "_")
	return fmt.Sprintf("worklist_%s_%s.dcm", name, dicom.GetString(ds, tag.AccessionNumber))
}

// SendWorklistItem saves ds under saveDir when it is set, then sends it with
// C-STORE using the worklist SOP class. The saved path is returned.
func SendWorklistItem(ctx context.Context, t Target, ds *dicom.Dataset, saveDir string) (string, error) {
	if !dicom.HasElement(ds, tag.TransferSyntaxUID) {
		ds = dicom.CloneDataset(ds)
		if err := mwl.AddFileMeta(ds); err != nil {
			return "", err
		}
	}
	var saved string
	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", saveDir, err)
		}
		saved = filepath.Join(saveDir, WorklistFilename(ds))
		if _, err := dicom.WriteFile(saved, ds); err != nil {
			return "", err
		}
		slog.Info("saved worklist item", slog.String("path", saved))
	}
	return saved, store(ctx, t, dicom.ModalityWorklistFindSOPClass, ds)
}

// UploadImage sends a Secondary Capture instance with C-STORE
func UploadImage(ctx context.Context, t Target, ds *dicom.Dataset) error {
	return store(ctx, t, dicom.SecondaryCaptureImageStorage, ds)
}

func store(ctx context.Context, t Target, sopClass string, ds *dicom.Dataset) error {
	instance := dicom.GetString(ds, tag.SOPInstanceUID)
	if instance == "" {
		instance = dicom.GetString(ds, tag.MediaStorageSOPInstanceUID)
	}
	if instance == "" {
		return fmt.Errorf("data set has no SOP Instance UID")
	}
	return within(ctx, t, sopClass, func(a *dimse.Association) error {
		status, err := a.Store(ctx, sopClass, instance, ds)
		if err != nil {
			return err
		}
		if status.IsWarning() {
			slog.Warn("C-STORE completed with warning", slog.String("status", status.String()))
			return nil
		}
		if !status.IsSuccess() {
			return &dimse.StatusError{Operation: "C-STORE", Status: status}
		}
		slog.Info("C-STORE successful",
			slog.String("sop_instance", instance),
			slog.String("remote_addr", t.Addr()))
		return nil
	})
}
