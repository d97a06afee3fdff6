// Package capture turns ordinary image files into Secondary Capture instances.
package capture

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/module"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
)

// Defaults for empty options
const (
	DefaultModality         = "DOC"
	DefaultStudyDescription = "Ultrasound"
	DefaultManufacturer     = "dicomctl"
)

// Options describe the patient and exam an image is filed under
type Options struct {
	PatientName      string
	PatientID        string
	BirthDate        string    // YYYYMMDD
	ExamTime         time.Time // zero means now
	Operator         string
	AccessionNumber  string
	Modality         string
	StudyDescription string
	Manufacturer     string
}

// SCImage is a Secondary Capture Image IOD holding 8-bit interleaved RGB pixels
type SCImage struct {
	Patient   module.PatientModule
	Study     module.GeneralStudyModule
	Series    module.GeneralSeriesModule
	Equipment module.GeneralEquipmentModule
	SC        module.SCEquipmentModule
	Image     module.GeneralImageModule
	Pixel     *module.ImagePixelModule
	SOPCommon module.SOPCommonModule

	// Pixels are row-major R,G,B triplets
	Pixels []byte
}

// NewSCImage creates an image with fresh study, series and instance UIDs
// dated at the given time.
func NewSCImage(at time.Time) *SCImage {
	sc := &SCImage{
		Study:     module.NewGeneralStudyModule(),
		SOPCommon: module.NewSOPCommonModule(),
	}
	sc.Study.StudyDate = module.NewDate(at)
	sc.Study.StudyTime = module.NewTime(at)
	sc.Study.StudyInstanceUID = dicom.GenerateUID()
	sc.Series = module.GeneralSeriesModule{
		Modality:          DefaultModality,
		SeriesInstanceUID: dicom.GenerateUID(),
		SeriesNumber:      1,
		SeriesDate:        module.NewDate(at),
		SeriesTime:        module.NewTime(at),
	}
	sc.Image = module.GeneralImageModule{
		InstanceNumber: 1,
		ImageType:      []string{"DERIVED", "SECONDARY"},
		ContentDate:    module.NewDate(at),
		ContentTime:    module.NewTime(at),
	}
	sc.SOPCommon.SOPClassUID = dicom.SecondaryCaptureImageStorage
	sc.SOPCommon.SOPInstanceUID = dicom.GenerateUID()
	return sc
}

// SetPixels converts img to 8-bit RGB. Transparent pixels keep their colour
// values; alpha is dropped.
func (sc *SCImage) SetPixels(img image.Image) error {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("image has no pixels")
	}
	if b.Dx() > math.MaxUint16 || b.Dy() > math.MaxUint16 {
		return fmt.Errorf("image %dx%d exceeds %d pixels per side", b.Dx(), b.Dy(), math.MaxUint16)
	}
	pixels := make([]byte, 0, b.Dx()*b.Dy()*3+1)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pixels = append(pixels, c.R, c.G, c.B)
		}
	}
	if len(pixels)%2 != 0 {
		pixels = append(pixels, 0)
	}
	sc.Pixels = pixels
	sc.Pixel = module.NewRGBPixelModule(uint16(b.Dy()), uint16(b.Dx()))
	return nil
}

// GetDataset builds the Part 10 dataset
func (sc *SCImage) GetDataset() (*dicom.Dataset, error) {
	if sc.Pixel == nil {
		return nil, fmt.Errorf("secondary capture has no pixel data")
	}
	return dicom.NewDataset(
		dicom.WithFileMeta(dicom.SecondaryCaptureImageStorage, sc.SOPCommon.SOPInstanceUID, transfer.ExplicitVRLittleEndian),
		dicom.WithModules(&sc.Patient, &sc.Study, &sc.Series, &sc.Equipment, &sc.SC, &sc.Image, sc.Pixel, &sc.SOPCommon),
		dicom.WithVR(tag.PixelData, "OB", sc.Pixels),
	)
}

// FromImage decodes a PNG, JPEG or GIF file and files it under opts
func FromImage(path string, opts Options) (*dicom.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	slog.Debug("decoded image", slog.String("path", path), slog.String("format", format),
		slog.Int("width", img.Bounds().Dx()), slog.Int("height", img.Bounds().Dy()))
	return FromDecoded(img, opts)
}

// FromDecoded builds a Secondary Capture dataset from an in-memory image
func FromDecoded(img image.Image, opts Options) (*dicom.Dataset, error) {
	at := opts.ExamTime
	if at.IsZero() {
		at = time.Now()
	}
	sc := NewSCImage(at)

	sc.Patient.PatientName = module.ParsePersonName(opts.PatientName)
	sc.Patient.PatientID = opts.PatientID
	if opts.BirthDate != "" {
		birth, err := module.ParseDate(opts.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("birth date: %w", err)
		}
		sc.Patient.PatientBirthDate = birth
	}
	sc.Study.AccessionNumber = opts.AccessionNumber
	sc.Study.StudyDescription = orDefault(opts.StudyDescription, DefaultStudyDescription)
	sc.Series.Modality = orDefault(opts.Modality, DefaultModality)
	sc.Series.OperatorsName = module.ParsePersonName(opts.Operator)
	sc.Equipment.Manufacturer = orDefault(opts.Manufacturer, DefaultManufacturer)

	if err := sc.SetPixels(img); err != nil {
		return nil, err
	}
	ds, err := sc.GetDataset()
	if err != nil {
		return nil, err
	}
	slog.Info("created secondary capture",
		slog.String("patient", opts.PatientName),
		slog.Int("rows", int(sc.Pixel.Rows)),
		slog.Int("columns", int(sc.Pixel.Columns)))
	return ds, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
