package psie

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// Bases outside ACGT reset the k-mer window instead of failing the read.
func init() {
	seq.ValidateSeq = false
}

// Reader is a sequence record stream, such as reads from a Fasta/Fastq file.
//
// Example usage counting the k-mers of a fastq file:
//
//	rdr, err := psie.Open("reads.fastq.gz")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rdr.Close()
//	stats, err := engine.ReadReads(rdr)
type Reader interface {
	// Next advances the reader to the next sequence. It returns false if no more
	// sequences are available, or an error occurs.
	Next() bool

	// Identifier returns the identifier text for the current sequence record.
	Identifier() string

	// Sequence returns the sequence content for the current sequence record.
	Sequence() string

	// SequenceBytes returns the sequence content without a string copy. The
	// slice is only valid until the next call to Next.
	SequenceBytes() []byte

	// Err returns the last error that occured during reading. Reaching the
	// end of the input is not an error.
	Err() error
}

// FastxReader reads Fasta/Fastq records through shenwei356/bio.
type FastxReader struct {
	r       *fastx.Reader
	id      []byte
	seq     []byte
	lastErr error
}

// Open returns a Reader over a Fasta or Fastq file, optionally gzip
// compressed. The file name "-" reads from standard input.
func Open(filename string) (*FastxReader, error) {
	r, err := fastx.NewReader(nil, filename, "")
	if err != nil {
		return nil, errors.Wrapf(err, "psie: opening %s", filename)
	}
	return &FastxReader{r: r}, nil
}

func (f *FastxReader) Next() bool {
	if f.lastErr != nil {
		return false
	}
	record, err := f.r.Read()
	if err != nil {
		if err != io.EOF {
			f.lastErr = err
		}
		f.seq = f.seq[:0]
		return false
	}
	f.id = append(f.id[:0], record.ID...)
	f.seq = append(f.seq[:0], record.Seq.Seq...)
	return true
}

func (f *FastxReader) Identifier() string    { return string(f.id) }
func (f *FastxReader) Sequence() string      { return string(f.seq) }
func (f *FastxReader) SequenceBytes() []byte { return f.seq }
func (f *FastxReader) Err() error            { return f.lastErr }

// Close releases the underlying file.
func (f *FastxReader) Close() {
	f.r.Close()
}

// SliceReader serves in-memory sequences as a Reader.
type SliceReader struct {
	seqs []string
	i    int
}

// NewSliceReader returns a Reader over seqs. Identifiers are the 1-based
// record numbers.
func NewSliceReader(seqs ...string) *SliceReader {
	return &SliceReader{seqs: seqs}
}

func (s *SliceReader) Next() bool {
	if s.i >= len(s.seqs) {
		return false
	}
	s.i++
	return true
}

func (s *SliceReader) Identifier() string    { return strconv.Itoa(s.i) }
func (s *SliceReader) Sequence() string      { return s.seqs[s.i-1] }
func (s *SliceReader) SequenceBytes() []byte { return []byte(s.seqs[s.i-1]) }
func (s *SliceReader) Err() error            { return nil }

// LoadGenome reads every record of a Fasta file and concatenates them into
// one reference sequence.
func LoadGenome(filename string) ([]byte, error) {
	rdr, err := Open(filename)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	var genome []byte
	for rdr.Next() {
		genome = append(genome, rdr.SequenceBytes()...)
	}
	if err := rdr.Err(); err != nil {
		return nil, errors.Wrapf(err, "psie: reading genome %s", filename)
	}
	return genome, nil
}
