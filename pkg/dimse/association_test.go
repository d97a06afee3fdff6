package dimse_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomctl.go/pkg/dimse"
	"github.com/jpfielding/dicomctl.go/pkg/dimse/dimsetest"
	"github.com/jpfielding/dicomctl.go/pkg/dimse/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(abstract ...string) dimse.Config {
	return dimse.Config{
		CallingAE:        "BEXA",
		CalledAE:         "MERCURE",
		AbstractSyntaxes: abstract,
		ConnectTimeout:   2 * time.Second,
		DIMSETimeout:     2 * time.Second,
	}
}

func dial(t *testing.T, srv *dimsetest.Server, cfg dimse.Config) *dimse.Association {
	t.Helper()
	a, err := dimse.Dial(context.Background(), srv.Addr, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Abort() })
	return a
}

func TestDial_EchoAndRelease(t *testing.T) {
	scp := &dimsetest.SCP{}
	srv := dimsetest.NewServer(t, dimsetest.Options{MaxPDU: dimse.DefaultMaxPDU}, scp.Handle)

	ctx := context.Background()
	a := dial(t, srv, testConfig(dicom.VerificationSOPClass, dicom.ModalityWorklistFindSOPClass))

	status, err := a.Echo(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsSuccess())
	require.NoError(t, a.Release(ctx))
	assert.Equal(t, 1, scp.Echoes())

	rqs := srv.Requests()
	require.Len(t, rqs, 1)
	rq := rqs[0]
	assert.Equal(t, "MERCURE", rq.CalledAE)
	assert.Equal(t, "BEXA", rq.CallingAE)
	assert.Equal(t, dicom.ApplicationContextName, rq.ApplicationContext)
	assert.Equal(t, dimse.DefaultMaxPDU, rq.MaxPDU)
	assert.Equal(t, dicom.ImplementationClassUID, rq.ImplementationClassUID)
	assert.Equal(t, dicom.ImplementationVersionName, rq.ImplementationVersion)
	require.Len(t, rq.Contexts, 2)
	assert.Equal(t, byte(1), rq.Contexts[0].ID)
	assert.Equal(t, byte(3), rq.Contexts[1].ID)
	assert.Equal(t, dicom.ModalityWorklistFindSOPClass, rq.Contexts[1].AbstractSyntax)
	assert.Equal(t, []string{string(transfer.ExplicitVRLittleEndian), string(transfer.ImplicitVRLittleEndian)},
		rq.Contexts[0].TransferSyntaxes)
}

func TestDial_Rejected(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{Reject: pdu.Reject(1, 1, 7)}, nil)

	_, err := dimse.Dial(context.Background(), srv.Addr, testConfig(dicom.VerificationSOPClass))
	require.Error(t, err)
	assert.ErrorIs(t, err, dimse.ErrAssociationRejected)
	var rj *dimse.RejectError
	require.True(t, errors.As(err, &rj))
	assert.Equal(t, byte(7), rj.Reason)
	assert.Contains(t, err.Error(), "called AE title not recognized")
}

func TestDial_Refused(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{}, nil)
	addr := srv.Addr
	srv.Close()

	_, err := dimse.Dial(context.Background(), addr, testConfig(dicom.VerificationSOPClass))
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("connect %s", addr))
}

func TestDial_InvalidAETitle(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{}, nil)

	cfg := testConfig(dicom.VerificationSOPClass)
	cfg.CallingAE = "CALLING_AE_TITLE_X"
	_, err := dimse.Dial(context.Background(), srv.Addr, cfg)
	require.ErrorIs(t, err, pdu.ErrInvalidAETitle)
	assert.Contains(t, err.Error(), "calling AE")
	assert.Empty(t, srv.Requests())
}

func TestDial_ContextResults(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{
		Accept:                 func(as string) bool { return as == dicom.VerificationSOPClass },
		ImplementationClassUID: "1.2.3.999",
	}, (&dimsetest.SCP{}).Handle)
	a := dial(t, srv, testConfig(dicom.VerificationSOPClass, dicom.SecondaryCaptureImageStorage))

	pcs := a.PresentationContexts()
	require.Len(t, pcs, 2)
	assert.True(t, pcs[0].Accepted)
	assert.Equal(t, transfer.ExplicitVRLittleEndian, pcs[0].TransferSyntax)
	assert.False(t, pcs[1].Accepted)
	assert.Equal(t, pdu.ResultAbstractSyntaxUnsupported, pcs[1].Result)
	assert.Equal(t, "1.2.3.999", a.PeerImplementation())
	assert.Equal(t, uint32(0), a.PeerMaxPDU())

	ds, _ := dicom.NewDataset()
	_, err := a.Store(context.Background(), dicom.SecondaryCaptureImageStorage, "1.2.3", ds)
	assert.ErrorIs(t, err, dimse.ErrNoPresentationContext)
	require.NoError(t, a.Release(context.Background()))
}

func TestEcho_Abort(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{}, func(s *dimsetest.Session) {
		if _, _, _, err := s.Next(); err == nil {
			assert.NoError(t, s.Abort(0))
		}
	})
	a := dial(t, srv, testConfig(dicom.VerificationSOPClass))

	_, err := a.Echo(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dimse.ErrAborted)
	assert.Contains(t, err.Error(), "service provider")

	// the connection is gone; release is a no-op
	assert.NoError(t, a.Release(context.Background()))
}

func TestEcho_FailureStatus(t *testing.T) {
	scp := &dimsetest.SCP{EchoStatus: dimse.StatusUnableToProcess}
	srv := dimsetest.NewServer(t, dimsetest.Options{}, scp.Handle)
	a := dial(t, srv, testConfig(dicom.VerificationSOPClass))

	status, err := a.Echo(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsFailure())
	require.NoError(t, a.Release(context.Background()))
}

func TestEcho_ContextDeadline(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{}, func(s *dimsetest.Session) {
		s.Next()
		// never answer; wait for the client to hang up
		buf := make([]byte, 1)
		s.Conn.Read(buf)
	})
	a := dial(t, srv, testConfig(dicom.VerificationSOPClass))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Echo(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = a.Echo(context.Background())
	assert.ErrorIs(t, err, dimse.ErrReleased)
}

func TestEcho_MessageIDsIncrement(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{}, func(s *dimsetest.Session) {
		for want := uint16(1); want <= 2; want++ {
			msg, pcID, _, err := s.Next()
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, want, msg.MessageID)
			assert.NoError(t, s.Respond(pcID, msg, dimse.StatusSuccess, nil))
		}
		assert.NoError(t, s.AwaitRelease())
	})
	a := dial(t, srv, testConfig(dicom.VerificationSOPClass))
	for i := 0; i < 2; i++ {
		_, err := a.Echo(context.Background())
		require.NoError(t, err)
	}
	require.NoError(t, a.Release(context.Background()))
}

func TestAbort(t *testing.T) {
	done := make(chan struct{})
	srv := dimsetest.NewServer(t, dimsetest.Options{}, func(s *dimsetest.Session) {
		defer close(done)
		typ, body, err := pdu.Read(s.Conn)
		if assert.NoError(t, err) {
			assert.Equal(t, pdu.TypeAbort, typ)
			assert.Len(t, body, 4)
		}
	})
	a := dial(t, srv, testConfig(dicom.VerificationSOPClass))
	require.NoError(t, a.Abort())
	assert.NoError(t, a.Abort())
	<-done
}
