// Package digest hashes the full contents of seekable streams while
// leaving the stream cursor where the caller had it.
//
// The stream is read into memory in one piece and fed to the digest
// primitive with a single write. Callers sharing a stream between
// goroutines must serialize access around [Digester.Sum]; the
// save-seek-read-restore sequence is not atomic.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strings"
)

// DefaultLimit is the largest stream a Digester reads unless told
// otherwise.
const DefaultLimit int64 = math.MaxUint32

var (
	ErrIO               = errors.New("digest: i/o failure")
	ErrAllocation       = errors.New("digest: cannot allocate read buffer")
	ErrNotSeekable      = errors.New("digest: stream is not seekable")
	ErrUnknownAlgorithm = errors.New("digest: unknown algorithm")
)

type sizer interface {
	Size() int64
}

// Sum is a finished digest.
type Sum struct {
	algorithm Algorithm
	b         []byte
}

func (sum Sum) Algorithm() Algorithm { return sum.algorithm }
func (sum Sum) Bytes() []byte        { return append([]byte(nil), sum.b...) }
func (sum Sum) IsZero() bool         { return len(sum.b) == 0 }

// String renders the digest as lowercase hex.
func (sum Sum) String() string { return hex.EncodeToString(sum.b) }

// Upper renders the digest as uppercase hex.
func (sum Sum) Upper() string { return strings.ToUpper(sum.String()) }

type Option func(*Digester)

func WithAlgorithm(algorithm Algorithm) Option {
	return func(digester *Digester) { digester.algorithm = algorithm }
}

// WithLimit caps the number of bytes a Digester allocates for one stream.
func WithLimit(limit int64) Option {
	return func(digester *Digester) { digester.limit = limit }
}

type Digester struct {
	algorithm Algorithm
	limit     int64
}

func New(options ...Option) *Digester {
	digester := &Digester{
		algorithm: SHA1,
		limit:     DefaultLimit,
	}
	for _, option := range options {
		option(digester)
	}
	return digester
}

func (digester *Digester) Algorithm() Algorithm { return digester.algorithm }

// Sum digests everything in s from offset 0 to its size. The position of
// s on return equals its position on entry, also when Sum fails after the
// position was recorded.
func (digester *Digester) Sum(s io.ReadSeeker) (sum Sum, err error) {
	h, err := digester.algorithm.New()
	if err != nil {
		return Sum{}, err
	}

	position, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return Sum{}, fmt.Errorf("%w: reading position: %w", ErrIO, err)
	}
	defer func() {
		if _, restoreErr := s.Seek(position, io.SeekStart); restoreErr != nil && err == nil {
			sum, err = Sum{}, fmt.Errorf("%w: restoring position %d: %w", ErrIO, position, restoreErr)
		}
	}()

	size, err := streamSize(s)
	if err != nil {
		return Sum{}, err
	}
	if size > digester.limit || size > math.MaxInt {
		return Sum{}, fmt.Errorf("%w: stream is %d bytes, limit %d", ErrAllocation, size, digester.limit)
	}

	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return Sum{}, fmt.Errorf("%w: seeking to start: %w", ErrIO, err)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(s, buf); err != nil {
		return Sum{}, fmt.Errorf("%w: reading %d bytes: %w", ErrIO, size, err)
	}

	h.Write(buf)
	return Sum{algorithm: digester.algorithm, b: h.Sum(nil)}, nil
}

// SumFile opens name in fsys and digests it. The opened file must
// implement io.Seeker.
func (digester *Digester) SumFile(fsys fs.FS, name string) (Sum, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return Sum{}, fmt.Errorf("opening %s for hashing: %w", name, err)
	}
	defer file.Close()

	s, ok := file.(io.ReadSeeker)
	if !ok {
		return Sum{}, fmt.Errorf("%w: %s", ErrNotSeekable, name)
	}
	sum, err := digester.Sum(s)
	if err != nil {
		return Sum{}, fmt.Errorf("hashing %s: %w", name, err)
	}
	return sum, nil
}

// SumPath digests the operating system file at path.
func (digester *Digester) SumPath(path string) (Sum, error) {
	file, err := os.Open(path)
	if err != nil {
		return Sum{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	sum, err := digester.Sum(file)
	if err != nil {
		return Sum{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum, nil
}

func streamSize(s io.Seeker) (int64, error) {
	if sized, ok := s.(sizer); ok {
		size := sized.Size()
		if size < 0 {
			return 0, fmt.Errorf("%w: negative stream size %d", ErrIO, size)
		}
		return size, nil
	}
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: querying size: %w", ErrIO, err)
	}
	return size, nil
}

var defaultDigester = New()

// Stream returns the lowercase SHA-1 hex digest of s.
func Stream(s io.ReadSeeker) (string, error) {
	sum, err := defaultDigester.Sum(s)
	if err != nil {
		return "", err
	}
	return sum.String(), nil
}

// File returns the lowercase SHA-1 hex digest of name in fsys.
func File(fsys fs.FS, name string) (string, error) {
	sum, err := defaultDigester.SumFile(fsys, name)
	if err != nil {
		return "", err
	}
	return sum.String(), nil
}
