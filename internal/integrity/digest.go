// Package integrity recomputes cryptographic digests of fetched artifacts
// and compares them to the values published in the catalog. A binary is
// never installed unless its digest matches.
package integrity

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"regexp"
	"strings"
)

// Algorithm names a digest function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

var (
	ErrPlaceholderDigest = errors.New("digest is an unresolved placeholder")
	ErrMalformedDigest   = errors.New("malformed digest")
	ErrUnknownAlgorithm  = errors.New("unknown digest algorithm")
)

// placeholderPattern recognizes the marker values release templates leave
// behind before real checksums are filled in.
var placeholderPattern = regexp.MustCompile(`(?i)^(placeholder.*|.*_placeholder.*|todo|tbd|changeme|fixme|none|null|x{4,}|\.{3}|<.*>|\$\{.*\})$`)

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// HexLen returns the length of a hex digest for the algorithm, or 0.
func (a Algorithm) HexLen() int {
	switch a {
	case SHA256:
		return sha256.Size * 2
	case SHA512:
		return sha512.Size * 2
	default:
		return 0
	}
}

// Digest is an expected content hash, self-describing through its algorithm.
type Digest struct {
	Algorithm Algorithm
	Hex       string
}

// ParseDigest splits "<algorithm>:<hex>". It never fails: a value without an
// algorithm prefix is kept in Hex with an empty Algorithm, so Check can report
// exactly what is wrong with it.
func ParseDigest(s string) Digest {
	s = strings.TrimSpace(s)
	algo, value, found := strings.Cut(s, ":")
	if !found {
		return Digest{Hex: s}
	}
	return Digest{
		Algorithm: Algorithm(strings.ToLower(strings.TrimSpace(algo))),
		Hex:       strings.TrimSpace(value),
	}
}

// String renders the digest as "<algorithm>:<hex>".
func (d Digest) String() string {
	if d.Algorithm == "" {
		return d.Hex
	}
	return string(d.Algorithm) + ":" + d.Hex
}

// IsZero reports whether no digest value is present.
func (d Digest) IsZero() bool {
	return d.Hex == ""
}

// Check reports whether the digest can be trusted as a verification target.
// Empty and placeholder values fail with ErrPlaceholderDigest.
func (d Digest) Check() error {
	if d.IsZero() || IsPlaceholder(d.Hex) {
		return fmt.Errorf("%w: %q", ErrPlaceholderDigest, d.String())
	}

	want := d.Algorithm.HexLen()
	if want == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(d.Algorithm))
	}

	if len(d.Hex) != want {
		return fmt.Errorf("%w: %s digest must be %d hex characters, got %d", ErrMalformedDigest, d.Algorithm, want, len(d.Hex))
	}

	raw, err := hex.DecodeString(d.Hex)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDigest, err)
	}

	// an all-zero hash is a template value, never a real digest
	for _, b := range raw {
		if b != 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: all-zero %s digest", ErrPlaceholderDigest, d.Algorithm)
}

// IsPlaceholder reports whether s is a recognizable placeholder value.
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || placeholderPattern.MatchString(s)
}

// Compute hashes data with the algorithm and returns the digest.
func Compute(algo Algorithm, data []byte) (Digest, error) {
	h, err := algo.New()
	if err != nil {
		return Digest{}, err
	}
	h.Write(data)
	return Digest{Algorithm: algo, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}
