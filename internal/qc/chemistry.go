package qc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
)

const massProton = float64(1.007276466879)
const massH2O = float64(18.0105647)

// Masses of amino acids (minus H2O)
var aaMass = map[byte]float64{
	'A': 71.0371138,
	'C': 103.0091848,
	'D': 115.0269430,
	'E': 129.0425931,
	'F': 147.0684139,
	'G': 57.0214637,
	'H': 137.0589119,
	'I': 113.0840640,
	'K': 128.0949630,
	'L': 113.0840640,
	'M': 131.0404849,
	'N': 114.0429274,
	'P': 97.0527638,
	'O': 237.1477269, // Pyrrolysine
	'Q': 128.0585775,
	'R': 156.1011110,
	'S': 87.0320284,
	'T': 101.0476785,
	'U': 144.9595902, // Selenocysteine
	'V': 99.0684139,
	'W': 186.0793129,
	'Y': 163.0633285,
}

// Mass shifts of modifications by (Unimod) name
var modMass = map[string]float64{
	`Acetyl`:             42.010565,
	`Amidated`:           -0.984016,
	`Carbamidomethyl`:    57.021464,
	`Carbamyl`:           43.005814,
	`Deamidated`:         0.984016,
	`Dimethyl`:           28.031300,
	`Gln->pyro-Glu`:      -17.026549,
	`Glu->pyro-Glu`:      -18.010565,
	`Label:13C(6)`:       6.020129,
	`Label:13C(6)15N(2)`: 8.014199,
	`Label:13C(6)15N(4)`: 10.008269,
	`Methyl`:             14.015650,
	`Oxidation`:          15.994915,
	`Phospho`:            79.966331,
	`TMT6plex`:           229.162932,
	`TMTpro`:             304.207146,
	`iTRAQ4plex`:         144.102063,
	`iTRAQ8plex`:         304.205360,
}

var (
	// ErrUnknownAminoAcid means a sequence holds a letter without known mass
	ErrUnknownAminoAcid = errors.New("qc: invalid amino acid")
	// ErrUnknownModification means a modification has no known mass
	ErrUnknownModification = errors.New("qc: unknown modification")
)

// modShift returns the mass shift of a modification. Bracketed masses
// with a sign are mass shifts; without sign they replace the residue
// mass, which is passed as base.
func modShift(mod string, base float64) (float64, error) {
	if mod == `` {
		return 0, nil
	}
	if v, ok := modMass[mod]; ok {
		return v, nil
	}
	// Names may carry the modified residue, e.g. "Oxidation (M)"
	if name, _, found := strings.Cut(mod, ` (`); found {
		if v, ok := modMass[name]; ok {
			return v, nil
		}
	}
	v, err := strconv.ParseFloat(mod, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModification, mod)
	}
	if mod[0] == '+' || mod[0] == '-' {
		return v, nil
	}
	return v - base, nil
}

// residueMasses returns the mass of each residue including its
// modification. Terminal modifications are added to the first and
// last residue.
func residueMasses(p msdata.Peptide) ([]float64, error) {
	ms := make([]float64, len(p.Residues))
	for i, r := range p.Residues {
		m, ok := aaMass[r.AA]
		if !ok {
			return nil, fmt.Errorf("%w: %c", ErrUnknownAminoAcid, r.AA)
		}
		shift, err := modShift(r.Mod, m)
		if err != nil {
			return nil, err
		}
		ms[i] = m + shift
	}
	if len(ms) > 0 {
		n, err := modShift(p.NTermMod, 0)
		if err != nil {
			return nil, err
		}
		c, err := modShift(p.CTermMod, 0)
		if err != nil {
			return nil, err
		}
		ms[0] += n
		ms[len(ms)-1] += c
	}
	return ms, nil
}

// pepMass computes the lowest isotope mass of a (modified) peptide
func pepMass(seq string) (float64, error) {
	p, err := msdata.ParsePeptide(seq)
	if err != nil {
		return 0, err
	}
	ms, err := residueMasses(p)
	if err != nil {
		return 0, err
	}
	m := massH2O
	for _, v := range ms {
		m += v
	}
	return m, nil
}

// mzFromMass returns the m/z of a mass at the given charge
func mzFromMass(mass float64, charge int) float64 {
	fCharge := float64(charge)
	return (mass + fCharge*massProton) / fCharge
}

// fragmentIons returns the m/z values of the singly charged b and y ions
// of a peptide, in ascending ion number (b1..bn-1, y1..yn-1)
func fragmentIons(seq string) ([]float64, error) {
	p, err := msdata.ParsePeptide(seq)
	if err != nil {
		return nil, err
	}
	ms, err := residueMasses(p)
	if err != nil {
		return nil, err
	}
	n := len(ms)
	if n < 2 {
		return nil, nil
	}
	ions := make([]float64, 0, 2*(n-1))
	b := massProton
	for i := 0; i < n-1; i++ {
		b += ms[i]
		ions = append(ions, b)
	}
	y := massH2O + massProton
	for i := n - 1; i > 0; i-- {
		y += ms[i]
		ions = append(ions, y)
	}
	return ions, nil
}
