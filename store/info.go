package store

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	psie "github.com/sherry521007/PSI-Estimation"
)

// FileInfo is the name of the run summary inside an output directory.
const FileInfo = "info.toml"

// Info summarizes one engine run.
type Info struct {
	K           int    `toml:"k" comment:"Run parameters"`
	ReadLength  int    `toml:"read-length"`
	Junctions   string `toml:"junctions"`
	NW          int64  `toml:"windows" comment:"Genome scan"`
	GenomeBad   int64  `toml:"genome-invalid-bases"`
	NG          int    `toml:"genes"`
	WeightKmers int    `toml:"weight-kmers"`
	WeightCells int    `toml:"weight-cells"`
	Reads       int64  `toml:"reads" comment:"Read counting"`
	CountKmers  int    `toml:"count-kmers"`
	Windows     uint64 `toml:"counted-windows"`
	Invalid     int64  `toml:"invalid-bases"`
}

// NewInfo fills an Info from engine statistics.
func NewInfo(cfg psie.Config, st psie.Stats, rs psie.ReadStats) *Info {
	return &Info{
		K:           st.K,
		ReadLength:  st.ReadLength,
		Junctions:   cfg.Junctions,
		NW:          st.NW,
		GenomeBad:   st.GenomeInvalid,
		NG:          st.NG,
		WeightKmers: st.WeightKmers,
		WeightCells: st.WeightCells,
		Reads:       rs.Reads,
		CountKmers:  st.CountKmers,
		Windows:     st.CountedWindow,
		Invalid:     rs.InvalidBases,
	}
}

// WriteInfo writes info to file.
func WriteInfo(file string, info *Info) error {
	data, err := toml.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "store: encoding info")
	}
	return errors.Wrapf(os.WriteFile(file, data, 0644), "store: writing %s", file)
}

// ReadInfo reads a run summary.
func ReadInfo(file string) (*Info, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "store: reading %s", file)
	}
	v := &Info{}
	return v, errors.Wrapf(toml.Unmarshal(data, v), "store: parsing %s", file)
}
