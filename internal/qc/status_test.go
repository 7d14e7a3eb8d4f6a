package qc

import (
	"testing"

	"github.com/524D/mzqc/internal/msdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequiresString(t *testing.T) {
	assert.Equal(t, `fail`, Nothing.String())
	assert.Equal(t, `raw.mzML`, RawMzML.String())
	assert.Equal(t, `postFDR.featureXML`, PostFDRFeat.String())
	assert.Equal(t, `preFDR.featureXML`, PreFDRFeat.String())
	assert.Equal(t, `contaminants.fasta`, Contaminants.String())
	assert.Equal(t, `trafoAlign.trafoXML`, TrafoAlign.String())
	assert.Equal(t, `unknown`, numRequires.String())
}

func TestStatusSetOperations(t *testing.T) {
	var s Status
	assert.True(t, s.IsSuperSetOf(Status(0)))
	s.Add(RawMzML)
	s.Add(RawMzML)
	assert.True(t, s.Has(RawMzML))
	assert.False(t, s.Has(PostFDRFeat))

	u := s.Union(NewStatus(TrafoAlign))
	assert.Equal(t, []Requires{RawMzML, TrafoAlign}, u.Members())
	assert.True(t, u.IsSuperSetOf(s))
	assert.False(t, s.IsSuperSetOf(u))
}

// fakeMetric only declares requirements
type fakeMetric struct {
	req Status
}

func (f fakeMetric) Name() string { return `fake` }
func (f fakeMetric) Requires() Status { return f.req }
func (f fakeMetric) Run(*Resources) ([]msdata.PeptideIdentification, error) {
	return nil, nil
}

func TestIsRunnableAllCombinations(t *testing.T) {
	inputs := []Requires{RawMzML, PostFDRFeat, PreFDRFeat, Contaminants, TrafoAlign}
	n := len(inputs)
	for reqBits := 0; reqBits < 1<<n; reqBits++ {
		for haveBits := 0; haveBits < 1<<n; haveBits++ {
			var req, have Status
			missing := 0
			for i, r := range inputs {
				if reqBits&(1<<i) != 0 {
					req.Add(r)
				}
				if haveBits&(1<<i) != 0 {
					have.Add(r)
				}
				if reqBits&(1<<i) != 0 && haveBits&(1<<i) == 0 {
					missing++
				}
			}
			core, logs := observer.New(zapcore.WarnLevel)
			got := IsRunnable(fakeMetric{req: req}, have, zap.New(core))
			require.Equal(t, missing == 0, got, "req %b have %b", reqBits, haveBits)
			require.Equal(t, missing, logs.Len(), "req %b have %b", reqBits, haveBits)
		}
	}
}

func TestIsRunnableWarningNamesInput(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ok := IsRunnable(&FragmentMassErrorMetric{}, NewStatus(PostFDRFeat), zap.New(core))
	require.False(t, ok)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, `FragmentMassError`, fields["metric"])
	assert.Equal(t, `raw.mzML`, fields["missing"])
}
