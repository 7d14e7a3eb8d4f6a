package main

import (
	"fmt"

	"github.com/524D/mzqc/internal/msdata"

	"go.uber.org/zap"
)

// mergeAnnotations copies the meta values of the identifications of fm,
// and of their top hits, onto the matching identifications of the
// consensus map. Identifications without hits are skipped.
func mergeAnnotations(fm *msdata.FeatureMap, index *identityIndex) error {
	merged := 0
	err := fm.ForEachIdentification(func(_ int, src *msdata.PeptideIdentification) error {
		if len(src.Hits) == 0 {
			return nil
		}
		uid := src.UID()
		if uid == `` {
			return fmt.Errorf("%w: %s", ErrInvalidParameter, msgNoUID)
		}
		dst, ok := index.lookup(uid)
		if !ok {
			return fmt.Errorf("%w: peptide identification %s not found in ConsensusXML", ErrInvalidParameter, uid)
		}
		dst.Meta.CopyFrom(src.Meta)
		if len(dst.Hits) > 0 {
			dst.Hits[0].Meta.CopyFrom(src.Hits[0].Meta)
		}
		merged++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Debug("annotations merged", zap.Int("identifications", merged))
	return nil
}
