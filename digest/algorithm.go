package digest

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names a digest primitive.
type Algorithm uint8

const (
	SHA1 Algorithm = iota
	SHA256
	BLAKE2b256
	BLAKE3
)

var algorithmNames = map[Algorithm]string{
	SHA1:       "sha1",
	SHA256:     "sha256",
	BLAKE2b256: "blake2b-256",
	BLAKE3:     "blake3",
}

func Algorithms() []Algorithm { return []Algorithm{SHA1, SHA256, BLAKE2b256, BLAKE3} }

func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for algorithm, known := range algorithmNames {
		if name == known || name == strings.ReplaceAll(known, "-", "") {
			return algorithm, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

func (algorithm Algorithm) String() string {
	if name, ok := algorithmNames[algorithm]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", uint8(algorithm))
}

// Size is the digest length in bytes.
func (algorithm Algorithm) Size() int {
	switch algorithm {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case BLAKE2b256:
		return blake2b.Size256
	case BLAKE3:
		return 32
	}
	return 0
}

func (algorithm Algorithm) New() (hash.Hash, error) {
	switch algorithm {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case BLAKE2b256:
		return blake2b.New256(nil)
	case BLAKE3:
		return blake3.New(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
}
