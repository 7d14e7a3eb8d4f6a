package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/524D/mzqc/internal/msdata"

	"golang.org/x/net/html/charset"
)

// Load reads the mzML file at path and converts it into an Experiment
func Load(path string) (*msdata.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mzML, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	exp, err := mzML.Experiment()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	exp.SourceFile = path
	return exp, nil
}

// Read reads mzML file from an io.Reader
func Read(reader io.Reader) (MzML, error) {
	var mzML MzML

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	// We are only interested in mzML content, so skip over indexedmzML
	// and everything else
	for {
		t, tokenErr := d.Token()
		if tokenErr != nil {
			if tokenErr == io.EOF {
				break
			}
			return mzML, tokenErr
		}
		if t, ok := t.(xml.StartElement); ok && t.Name.Local == "mzML" {
			if err := d.DecodeElement(&mzML.content, &t); err != nil {
				return mzML, err
			}
		}
	}

	err := mzML.traverseScan()
	return mzML, err
}

// binaryDataPars decodes the CV terms in a mzML binarydata section
//
// CV Terms for binary data compression
// MS:1000574 zlib compression
// MS:1000576 No Compression
// MS:1002312 - MS:1002314, MS:1002746 - MS:1002748 MS-Numpress variants
//
// CV Terms for binary data array types
// MS:1000514 m/z array
// MS:1000515 intensity array
//
// CV Terms for binary-data-type
// MS:1000521 32-bit float
// MS:1000523 64-bit float
func binaryDataPars(binaryDataArray *binaryDataArray) (
	zlibCompression, bits64, mzArray, intensityArray bool, err error) {
	for _, cvParam := range binaryDataArray.CvPar {
		switch cvParam.Accession {
		case `MS:1000574`:
			zlibCompression = true
		case `MS:1000514`:
			mzArray = true
		case `MS:1000515`:
			intensityArray = true
		case `MS:1000523`:
			bits64 = true
		case `MS:1002312`, `MS:1002313`, `MS:1002314`,
			`MS:1002746`, `MS:1002747`, `MS:1002748`:
			return false, false, false, false,
				fmt.Errorf("%w (CV term %s)", ErrUnsupportedCompression, cvParam.Accession)
		}
	}
	return zlibCompression, bits64, mzArray, intensityArray, nil
}

func fillScan(p []msdata.Peak, binaryDataArray *binaryDataArray) ([]msdata.Peak, error) {
	zlibCompression, bits64, mzArray, intensityArray, err :=
		binaryDataPars(binaryDataArray)
	if err != nil {
		return nil, err
	}
	// We are only interrested in mz and intensity
	if !mzArray && !intensityArray {
		return p, nil
	}
	data, err := base64.StdEncoding.DecodeString(binaryDataArray.Binary)
	if err != nil {
		return nil, err
	}
	if zlibCompression {
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer z.Close()
		data, err = io.ReadAll(z)
		if err != nil {
			return nil, err
		}
	}
	width := 4
	if bits64 {
		width = 8
	}
	cnt := min(len(data)/width, len(p))
	for i := 0; i < cnt; i++ {
		var v float64
		if bits64 {
			v = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		} else {
			v = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		}
		if mzArray {
			p[i].Mz = v
		} else {
			p[i].Intens = v
		}
	}
	return p, nil
}

// NumSpecs returns the number of spectra
func (f *MzML) NumSpecs() int {
	return len(f.content.Run.SpectrumList.Spectrum)
}

// specCvParams returns the CV terms of a spectrum, including the
// terms of referenced parameter groups
func (f *MzML) specCvParams(scanIndex int) []CVParam {
	spec := &f.content.Run.SpectrumList.Spectrum[scanIndex]
	if len(spec.ParamGroupRef) == 0 || f.content.ReferenceableParamGroupList == nil {
		return spec.CvPar
	}
	cvs := append([]CVParam(nil), spec.CvPar...)
	for _, ref := range spec.ParamGroupRef {
		for _, g := range f.content.ReferenceableParamGroupList.Group {
			if g.ID == ref.Ref {
				cvs = append(cvs, g.CvPar...)
			}
		}
	}
	return cvs
}

// RetentionTime returns the retention time of a spectrum in seconds,
// or -1 if the spectrum has none
func (f *MzML) RetentionTime(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	for _, scan := range f.content.Run.SpectrumList.Spectrum[scanIndex].ScanList.Scan {
		for _, cvParam := range scan.CvPar {
			if cvParam.Accession == "MS:1000016" {
				retentionTime, err := strconv.ParseFloat(cvParam.Value, 64)
				// Check if the retention time is in minutes, otherwise assume it's seconds
				if cvParam.UnitAccession == "UO:0000031" ||
					cvParam.UnitAccession == "MS:1000038" {
					retentionTime *= 60
				}
				return retentionTime, err
			}
		}
	}
	return -1.0, nil
}

// ReadScan decodes the peaks of a single scan.
// scanIndex is the sequence number of the scan in the mzML file,
// not the native id.
func (f *MzML) ReadScan(scanIndex int) ([]msdata.Peak, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return nil, ErrInvalidScanIndex
	}
	spec := &f.content.Run.SpectrumList.Spectrum[scanIndex]
	p := make([]msdata.Peak, spec.DefaultArrayLength)
	var err error
	for i := range spec.BinaryDataArrayList.BinaryDataArray {
		p, err = fillScan(p, &spec.BinaryDataArrayList.BinaryDataArray[i])
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Centroid returns true is the spectrum contains centroid peaks
func (f *MzML) Centroid(scanIndex int) (bool, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return false, ErrInvalidScanIndex
	}
	for _, cvParam := range f.specCvParams(scanIndex) {
		if cvParam.Accession == "MS:1000127" { // centroid spectrum
			return true, nil
		}
	}
	return false, nil
}

// TotalIonCurrent returns the total ion current, or NaN if not found
func (f *MzML) TotalIonCurrent(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	for _, cvParam := range f.specCvParams(scanIndex) {
		if cvParam.Accession == "MS:1000285" { // total ion current
			return strconv.ParseFloat(cvParam.Value, 64)
		}
	}
	return math.NaN(), nil
}

// MSLevel returns the MS level of a scan
func (f *MzML) MSLevel(scanIndex int) (int, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0, ErrInvalidScanIndex
	}
	for _, cvParam := range f.specCvParams(scanIndex) {
		if cvParam.Accession == "MS:1000511" { // ms level
			msLevel, err := strconv.ParseInt(cvParam.Value, 10, 64)
			return int(msLevel), err
		}
	}
	return 1, nil // If nothing else, guess it's MS1
}

// Precursors returns the selected ions of a scan. The m/z of the
// isolation window target is used when no selected ion m/z is given.
func (f *MzML) Precursors(scanIndex int) ([]msdata.Precursor, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return nil, ErrInvalidScanIndex
	}
	var precs []msdata.Precursor
	for _, pl := range f.content.Run.SpectrumList.Spectrum[scanIndex].PrecursorList {
		for _, xp := range pl.Precursor {
			var target float64
			for _, cv := range xp.IsolationWindow.CvPar {
				if cv.Accession == `MS:1000827` { // isolation window target m/z
					v, err := strconv.ParseFloat(cv.Value, 64)
					if err != nil {
						return nil, err
					}
					target = v
				}
			}
			if len(xp.SelectedIonList.SelectedIon) == 0 {
				precs = append(precs, msdata.Precursor{Mz: target})
				continue
			}
			for _, ion := range xp.SelectedIonList.SelectedIon {
				p := msdata.Precursor{Mz: target}
				for _, cv := range ion.CvPar {
					switch cv.Accession {
					case `MS:1000744`: // selected ion m/z
						v, err := strconv.ParseFloat(cv.Value, 64)
						if err != nil {
							return nil, err
						}
						p.Mz = v
					case `MS:1000041`: // charge state
						v, err := strconv.Atoi(cv.Value)
						if err != nil {
							return nil, err
						}
						p.Charge = v
					}
				}
				precs = append(precs, p)
			}
		}
	}
	return precs, nil
}

// Experiment decodes all spectra
func (f *MzML) Experiment() (*msdata.Experiment, error) {
	exp := msdata.Experiment{
		Spectra: make([]msdata.Spectrum, f.NumSpecs()),
	}
	for i := range exp.Spectra {
		s := &exp.Spectra[i]
		s.Index = i
		s.NativeID = f.index2id[i]
		var err error
		if s.MSLevel, err = f.MSLevel(i); err != nil {
			return nil, err
		}
		if s.RT, err = f.RetentionTime(i); err != nil {
			return nil, err
		}
		if s.Centroided, err = f.Centroid(i); err != nil {
			return nil, err
		}
		if s.Precursors, err = f.Precursors(i); err != nil {
			return nil, err
		}
		if s.Peaks, err = f.ReadScan(i); err != nil {
			return nil, err
		}
		tic, err := f.TotalIonCurrent(i)
		if err != nil {
			return nil, err
		}
		if !math.IsNaN(tic) {
			s.TIC = tic
		}
	}
	return &exp, nil
}

// traverseScan traverses all scans and
// fills f.index2id with the native id of each scan
func (f *MzML) traverseScan() error {
	f.index2id = make([]string, f.NumSpecs())

	for i := range f.content.Run.SpectrumList.Spectrum {
		if err := f.addSpecToIndex(i); err != nil {
			return err
		}
	}
	return nil
}

func (f *MzML) addSpecToIndex(i int) error {
	if i != f.content.Run.SpectrumList.Spectrum[i].Index {
		return ErrInvalidScanIndex
	}
	f.index2id[i] = f.content.Run.SpectrumList.Spectrum[i].ID
	return nil
}
