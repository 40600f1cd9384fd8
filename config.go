package psie

import (
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config holds the run parameters of an Engine.
type Config struct {
	K            uint   `toml:"k" comment:"k-mer length (1-32)"`
	ReadLength   int    `toml:"read-length" comment:"maximum read length; longer reads are truncated"`
	Workers      int    `toml:"workers" comment:"genes scanned concurrently (0 = number of CPUs)"`
	Junctions    string `toml:"junctions" comment:"splice-junction k-mers: none, adjacent or all"`
	ObservedOnly bool   `toml:"observed-only" comment:"only record genome k-mers seen in reads"`
	MergePolicy  string `toml:"merge-policy" comment:"sum or strict"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		K:           25,
		ReadLength:  100,
		Junctions:   string(JunctionsNone),
		MergePolicy: string(MergeSum),
	}
}

// LoadConfig reads a TOML configuration file over DefaultConfig.
func LoadConfig(file string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(file)
	if err != nil {
		return cfg, errors.Wrapf(err, "psie: reading config %s", file)
	}
	if err = toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "psie: parsing config %s", file)
	}
	return cfg, cfg.Validate()
}

// Validate checks the parameters. An unusable k is a *KeyWidthOverflowError.
func (c Config) Validate() error {
	if c.K == 0 || 2*c.K > kmerBits {
		return &KeyWidthOverflowError{K: c.K, Bits: kmerBits}
	}
	if c.ReadLength < int(c.K) {
		return errors.Wrapf(ErrReadLength, "read length %d, k %d", c.ReadLength, c.K)
	}
	if c.Workers < 0 {
		return errors.Errorf("psie: negative worker count %d", c.Workers)
	}
	if _, err := ParseJunctionMode(c.Junctions); err != nil {
		return err
	}
	_, err := ParseMergePolicy(c.MergePolicy)
	return err
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
