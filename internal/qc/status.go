package qc

import (
	"go.uber.org/zap"
)

// Requires names an input category a metric can depend on
type Requires uint

// Input categories
const (
	Nothing      Requires = iota // never provided
	RawMzML                      // spectra
	PostFDRFeat                  // feature table after FDR filtering
	PreFDRFeat                   // feature table before FDR filtering
	Contaminants                 // contaminant sequence database
	TrafoAlign                   // retention time alignment
	numRequires
)

var requiresNames = [numRequires]string{
	`fail`,
	`raw.mzML`,
	`postFDR.featureXML`,
	`preFDR.featureXML`,
	`contaminants.fasta`,
	`trafoAlign.trafoXML`,
}

func (r Requires) String() string {
	if r >= numRequires {
		return `unknown`
	}
	return requiresNames[r]
}

// Status is a set of Requires values
type Status uint64

// NewStatus returns the set holding rs
func NewStatus(rs ...Requires) Status {
	var s Status
	for _, r := range rs {
		s.Add(r)
	}
	return s
}

// Add inserts r into the set
func (s *Status) Add(r Requires) {
	*s |= 1 << r
}

// Union returns the union of both sets
func (s Status) Union(o Status) Status {
	return s | o
}

// Has reports whether r is in the set
func (s Status) Has(r Requires) bool {
	return s&(1<<r) != 0
}

// IsSuperSetOf reports whether every member of o is in s
func (s Status) IsSuperSetOf(o Status) bool {
	return s&o == o
}

// Members returns the members of the set in enumeration order
func (s Status) Members() []Requires {
	var rs []Requires
	for r := Nothing; r < numRequires; r++ {
		if s.Has(r) {
			rs = append(rs, r)
		}
	}
	return rs
}

// IsRunnable reports whether the inputs in s satisfy the requirements
// of m. A warning is logged for every missing input.
func IsRunnable(m Metric, s Status, logger *zap.Logger) bool {
	req := m.Requires()
	if s.IsSuperSetOf(req) {
		return true
	}
	for _, r := range req.Members() {
		if !s.Has(r) {
			logger.Warn("metric skipped, input missing",
				zap.String("metric", m.Name()),
				zap.Stringer("missing", r))
		}
	}
	return false
}
