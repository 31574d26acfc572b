package integrity

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// ErrIntegrity is matched by every verification failure.
var ErrIntegrity = errors.New("integrity check failed")

// Error reports a failed verification. Expected and Actual are both set for
// digest mismatches so a corrupted download can be told apart from a stale
// catalog entry.
type Error struct {
	Algorithm Algorithm
	Expected  string
	Actual    string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("integrity check failed: %v", e.Err)
	}
	return fmt.Sprintf("integrity check failed: %s mismatch\n  expected: %s\n  computed: %s",
		e.Algorithm, e.Expected, e.Actual)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIntegrity.
func (e *Error) Is(target error) bool {
	return target == ErrIntegrity
}

// Verify recomputes the digest of data and compares it with expected.
// Placeholder, empty and malformed digests always fail.
func Verify(data []byte, expected Digest) error {
	if err := expected.Check(); err != nil {
		return &Error{Algorithm: expected.Algorithm, Expected: expected.Hex, Err: err}
	}

	actual, err := Compute(expected.Algorithm, data)
	if err != nil {
		return &Error{Algorithm: expected.Algorithm, Expected: expected.Hex, Err: err}
	}

	want := strings.ToLower(expected.Hex)
	if subtle.ConstantTimeCompare([]byte(want), []byte(actual.Hex)) != 1 {
		return &Error{Algorithm: expected.Algorithm, Expected: want, Actual: actual.Hex}
	}

	return nil
}

// VerifySignature checks a detached OpenPGP signature over data against an
// ASCII-armored public keyring. Armored and binary signatures are accepted.
func VerifySignature(data, signature []byte, armoredKeyring string) error {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKeyring))
	if err != nil {
		return &Error{Err: fmt.Errorf("read keyring: %w", err)}
	}
	if len(keyring) == 0 {
		return &Error{Err: errors.New("keyring is empty")}
	}

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		_, err = openpgp.CheckDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return &Error{Err: fmt.Errorf("verify signature: %w", err)}
	}

	return nil
}
