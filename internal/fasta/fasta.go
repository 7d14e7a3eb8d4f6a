// Package fasta provides a streaming reader for FASTA protein databases
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
)

// ErrNoHeader means sequence data was found before the first header line
var ErrNoHeader = errors.New("FASTA: sequence data before first header")

// Reader provides streaming access to FASTA files
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
	header  string // Pending header of the next entry
	current *msdata.FASTAEntry
	err     error
}

// NewReader creates a new FASTA reader
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{scanner: s}
}

// Next advances to the next entry. Returns false when no more entries or error.
func (r *Reader) Next() bool {
	r.current = nil
	entry, err := r.readEntry()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}
	r.current = entry
	return true
}

// Entry returns the current entry
func (r *Reader) Entry() *msdata.FASTAEntry {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readEntry() (*msdata.FASTAEntry, error) {
	var seq strings.Builder
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == `` || line[0] == ';' {
			continue
		}
		if line[0] == '>' {
			if r.header != `` {
				entry := newEntry(r.header, seq.String())
				r.header = line[1:]
				return entry, nil
			}
			r.header = line[1:]
			continue
		}
		if r.header == `` {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, ErrNoHeader)
		}
		seq.WriteString(line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if r.header != `` {
		entry := newEntry(r.header, seq.String())
		r.header = ``
		return entry, nil
	}
	return nil, io.EOF
}

func newEntry(header, seq string) *msdata.FASTAEntry {
	identifier, description, _ := strings.Cut(header, " ")
	return &msdata.FASTAEntry{
		Identifier:  identifier,
		Description: strings.TrimSpace(description),
		Sequence:    seq,
	}
}

// Load reads all entries of the FASTA file at path
func Load(path string) ([]msdata.FASTAEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var entries []msdata.FASTAEntry
	r := NewReader(f)
	for r.Next() {
		entries = append(entries, *r.Entry())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}
