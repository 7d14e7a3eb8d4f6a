package main

import (
	"fmt"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
)

// Group of the unassigned identifications of a consensus map
const unassignedGroup = -1

const msgNoUID = `No unique ID at peptide identifications found. Please run PeptideIndexer with '-addUID'.`

// idLocation locates an identification in a consensus map. Group is
// the consensus feature index or unassignedGroup, Slot the index in
// the identification list of the group.
type idLocation struct {
	Group int
	Slot  int
}

// identityIndex finds identifications of a consensus map by their
// unique id, and identification runs by their spectra files. The index
// holds locations, the consensus map owns the data.
type identityIndex struct {
	cmap  *msdata.ConsensusMap
	byUID map[string]idLocation
	runs  map[string]string // run path key -> run identifier
}

// runPathKey converts run paths to a map key. Order matters.
func runPathKey(paths []string) string {
	return strings.Join(paths, "\n")
}

// buildIdentityIndex indexes all identifications with hits of cmap and
// tags them with their group (meta cf_id). Identifications without
// hits are not indexed.
func buildIdentityIndex(cmap *msdata.ConsensusMap) (*identityIndex, error) {
	x := identityIndex{
		cmap:  cmap,
		byUID: make(map[string]idLocation),
		runs:  make(map[string]string),
	}
	for i := range cmap.Features {
		if err := x.add(cmap.Features[i].PeptideIdentifications, i); err != nil {
			return nil, err
		}
	}
	if err := x.add(cmap.UnassignedPeptideIdentifications, unassignedGroup); err != nil {
		return nil, err
	}

	for i := range cmap.ProteinIdentifications {
		run := &cmap.ProteinIdentifications[i]
		key := runPathKey(run.PrimaryMSRunPath())
		if _, ok := x.runs[key]; ok {
			return nil, fmt.Errorf("%w: Multiple protein identifications with the same identifier in ConsensusXML. Check input!",
				ErrInvalidParameter)
		}
		x.runs[key] = run.Identifier
	}
	return &x, nil
}

func (x *identityIndex) add(ids []msdata.PeptideIdentification, group int) error {
	for slot := range ids {
		id := &ids[slot]
		if len(id.Hits) == 0 {
			continue
		}
		uid := id.UID()
		if uid == `` {
			return fmt.Errorf("%w: %s", ErrInvalidParameter, msgNoUID)
		}
		if _, ok := x.byUID[uid]; ok {
			return fmt.Errorf("%w: duplicate unique ID %s at peptide identifications", ErrInvalidParameter, uid)
		}
		id.Meta.Set(msdata.MetaConsensusFeatureID, group)
		x.byUID[uid] = idLocation{Group: group, Slot: slot}
	}
	return nil
}

// lookup returns the identification of the consensus map with the
// unique id
func (x *identityIndex) lookup(uid string) (*msdata.PeptideIdentification, bool) {
	loc, ok := x.byUID[uid]
	if !ok {
		return nil, false
	}
	ids := x.cmap.UnassignedPeptideIdentifications
	if loc.Group != unassignedGroup {
		if loc.Group >= len(x.cmap.Features) {
			return nil, false
		}
		ids = x.cmap.Features[loc.Group].PeptideIdentifications
	}
	if loc.Slot >= len(ids) {
		return nil, false
	}
	return &ids[loc.Slot], true
}

// runIdentifier returns the identifier of the run made from paths
func (x *identityIndex) runIdentifier(paths []string) (string, error) {
	id, ok := x.runs[runPathKey(paths)]
	if !ok {
		return ``, fmt.Errorf("%w: FeatureXML (MS run '%s') does not correspond to ConsensusXML (run not found). Check input!",
			ErrInvalidParameter, strings.Join(paths, `, `))
	}
	return id, nil
}
