package msdata

// Feature is a quantified LC-MS feature, optionally with identifications
type Feature struct {
	UniqueID               uint64
	RT                     float64
	MZ                     float64
	Intensity              float64
	Charge                 int
	Quality                float64
	PeptideIdentifications []PeptideIdentification
	Meta                   MetaInfo
}

// FeatureMap holds the features of one experiment
type FeatureMap struct {
	ID                               string
	Features                         []Feature
	UnassignedPeptideIdentifications []PeptideIdentification
	ProteinIdentifications           []ProteinIdentification
	Meta                             MetaInfo
}

// PrimaryMSRunPath returns the spectra files the feature map is based on
func (f *FeatureMap) PrimaryMSRunPath() []string {
	return primaryMSRunPath(f.ProteinIdentifications)
}

// NumIdentifications returns the number of assigned and unassigned
// identifications
func (f *FeatureMap) NumIdentifications() int {
	n := len(f.UnassignedPeptideIdentifications)
	for i := range f.Features {
		n += len(f.Features[i].PeptideIdentifications)
	}
	return n
}

// ForEachIdentification calls fn for all unassigned identifications,
// followed by the identifications of each feature in order.
// feature is -1 for unassigned identifications.
func (f *FeatureMap) ForEachIdentification(fn func(feature int, id *PeptideIdentification) error) error {
	for i := range f.UnassignedPeptideIdentifications {
		if err := fn(-1, &f.UnassignedPeptideIdentifications[i]); err != nil {
			return err
		}
	}
	for i := range f.Features {
		for j := range f.Features[i].PeptideIdentifications {
			if err := fn(i, &f.Features[i].PeptideIdentifications[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ColumnHeader describes one input map of a ConsensusMap
type ColumnHeader struct {
	Filename string
	Label    string
	Size     int
	UniqueID uint64
	Meta     MetaInfo
}

// FeatureHandle references a feature of one of the input maps
type FeatureHandle struct {
	MapIndex  int
	UniqueID  uint64
	RT        float64
	MZ        float64
	Intensity float64
	Charge    int
}

// ConsensusFeature groups corresponding features of several maps
type ConsensusFeature struct {
	UniqueID               uint64
	RT                     float64
	MZ                     float64
	Intensity              float64
	Charge                 int
	Quality                float64
	Elements               []FeatureHandle
	PeptideIdentifications []PeptideIdentification
	Meta                   MetaInfo
}

// ConsensusMap is the aggregate result linking several experiments
type ConsensusMap struct {
	ID                               string
	ExperimentType                   string
	ColumnHeaders                    []ColumnHeader
	Features                         []ConsensusFeature
	UnassignedPeptideIdentifications []PeptideIdentification
	ProteinIdentifications           []ProteinIdentification
	Meta                             MetaInfo
}
