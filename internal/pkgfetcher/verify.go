package pkgfetcher

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Verifier checks detached, armored OpenPGP signatures against a keyring.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier reads an armored public keyring.
func NewVerifier(armoredKeys io.Reader) (*Verifier, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(armoredKeys)
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring holds no keys")
	}
	return &Verifier{keyring: keyring}, nil
}

// LoadVerifier reads an armored public keyring from path.
func LoadVerifier(path string) (*Verifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	defer f.Close()
	return NewVerifier(f)
}

// Verify checks that signature is a valid detached signature of signed made
// by a key in the keyring.
func (v *Verifier) Verify(signed, signature io.Reader) error {
	if _, err := openpgp.CheckArmoredDetachedSignature(v.keyring, signed, signature, nil); err != nil {
		return fmt.Errorf("bad signature: %w", err)
	}
	return nil
}
