package msdata

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSequence means a peptide sequence cannot be parsed
var ErrInvalidSequence = errors.New("msdata: invalid peptide sequence")

// Residue is an amino acid with an optional modification.
// Mod holds the text between the brackets, e.g. "Oxidation" or "+15.99".
type Residue struct {
	AA  byte
	Mod string
}

// Peptide is a parsed peptide sequence
type Peptide struct {
	NTermMod string
	Residues []Residue
	CTermMod string
}

// ParsePeptide parses sequences in OpenMS notation, such as
// ".(Acetyl)PEPTM(Oxidation)IDEK" or "PEPC[160]K"
func ParsePeptide(seq string) (Peptide, error) {
	var p Peptide
	cTerm := false
	for i := 0; i < len(seq); i++ {
		c := seq[i]
		switch {
		case c >= 'A' && c <= 'Z':
			if cTerm {
				return p, fmt.Errorf("%w: %s: residue after C-terminus", ErrInvalidSequence, seq)
			}
			p.Residues = append(p.Residues, Residue{AA: c})
		case c == '.':
			if len(p.Residues) > 0 {
				cTerm = true
			}
		case c == '(' || c == '[':
			end, err := closingBracket(seq, i)
			if err != nil {
				return p, err
			}
			mod := seq[i+1 : end]
			switch {
			case cTerm:
				p.CTermMod = mod
			case len(p.Residues) == 0:
				p.NTermMod = mod
			default:
				p.Residues[len(p.Residues)-1].Mod = mod
			}
			i = end
		default:
			return p, fmt.Errorf("%w: %s: unexpected character %q", ErrInvalidSequence, seq, c)
		}
	}
	return p, nil
}

// closingBracket returns the position of the bracket that closes the
// one at start, allowing nested brackets such as "Label:13C(6)15N(2)"
func closingBracket(seq string, start int) (int, error) {
	opening := seq[start]
	closing := byte(')')
	if opening == '[' {
		closing = ']'
	}
	depth := 0
	for i := start; i < len(seq); i++ {
		switch seq[i] {
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s: unbalanced brackets", ErrInvalidSequence, seq)
}

// Unmodified returns the amino acid sequence without modifications
func (p Peptide) Unmodified() string {
	var b strings.Builder
	b.Grow(len(p.Residues))
	for _, r := range p.Residues {
		b.WriteByte(r.AA)
	}
	return b.String()
}

// Modified reports whether any position carries a modification
func (p Peptide) Modified() bool {
	if p.NTermMod != `` || p.CTermMod != `` {
		return true
	}
	for _, r := range p.Residues {
		if r.Mod != `` {
			return true
		}
	}
	return false
}
