package qc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEnzyme means the digestion enzyme is not supported
var ErrUnknownEnzyme = errors.New("qc: unknown enzyme")

// enzyme describes the cleavage rule of a protease
type enzyme struct {
	name     string
	after    string // cleave C-terminal of these residues
	notFirst string // unless followed by one of these
}

var enzymes = []enzyme{
	{name: `Trypsin`, after: `KR`, notFirst: `P`},
	{name: `Trypsin/P`, after: `KR`},
	{name: `Lys-C`, after: `K`, notFirst: `P`},
	{name: `Lys-C/P`, after: `K`},
	{name: `Arg-C`, after: `R`, notFirst: `P`},
	{name: `Arg-C/P`, after: `R`},
}

const defaultEnzyme = `Trypsin`

// lookupEnzyme finds an enzyme by name, ignoring case. An empty name
// selects trypsin.
func lookupEnzyme(name string) (enzyme, error) {
	if name == `` {
		name = defaultEnzyme
	}
	for _, e := range enzymes {
		if strings.EqualFold(e.name, name) {
			return e, nil
		}
	}
	return enzyme{}, fmt.Errorf("%w: %s", ErrUnknownEnzyme, name)
}

// cleavesAt reports whether the enzyme cleaves between seq[i] and seq[i+1]
func (e enzyme) cleavesAt(seq string, i int) bool {
	if i < 0 || i >= len(seq)-1 {
		return false
	}
	return strings.IndexByte(e.after, seq[i]) >= 0 &&
		strings.IndexByte(e.notFirst, seq[i+1]) < 0
}

// missedCleavages counts the cleavage sites inside an unmodified sequence
func (e enzyme) missedCleavages(seq string) int {
	n := 0
	for i := 0; i < len(seq)-1; i++ {
		if e.cleavesAt(seq, i) {
			n++
		}
	}
	return n
}

// digest returns the peptides of protein with up to maxMissed missed
// cleavages and at least minLen residues
func (e enzyme) digest(protein string, maxMissed, minLen int) []string {
	// Start positions of the fragments produced by complete digestion
	starts := []int{0}
	for i := 0; i < len(protein)-1; i++ {
		if e.cleavesAt(protein, i) {
			starts = append(starts, i+1)
		}
	}
	starts = append(starts, len(protein))
	var peps []string
	for i := 0; i < len(starts)-1; i++ {
		for j := i + 1; j < len(starts) && j-i-1 <= maxMissed; j++ {
			if starts[j]-starts[i] >= minLen {
				peps = append(peps, protein[starts[i]:starts[j]])
			}
		}
	}
	return peps
}
