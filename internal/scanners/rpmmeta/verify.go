package rpmmeta

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/sassoftware/go-rpmutils"

	"github.com/davrell/licenseprobe/result"
)

// Keyring holds the trusted public keys for RPM signature checks.
type Keyring = openpgp.EntityList

// LoadKeyring reads an armored (or binary) public keyring from disk.
func LoadKeyring(path string) (Keyring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err == nil {
		return keyring, nil
	}
	if _, serr := f.Seek(0, 0); serr != nil {
		return nil, serr
	}
	keyring, berr := openpgp.ReadKeyRing(f)
	if berr != nil {
		return nil, fmt.Errorf("failed to read keyring %s: %w", path, err)
	}
	return keyring, nil
}

// verify checks the package signatures against the configured keyring and
// reports the signer details.
func (s *Scanner) verify(path string) ([]result.Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	_, sigs, err := rpmutils.Verify(f, s.keyring)
	if err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return []result.Field{{Name: "Signature", Value: "none"}}, nil
	}

	var fields []result.Field
	for _, sig := range sigs {
		value := fmt.Sprintf("key %016x", sig.KeyId)
		if sig.Signer != nil {
			for name := range sig.Signer.Identities {
				value = fmt.Sprintf("%s (%s)", value, name)
				break
			}
		}
		fields = append(fields, result.Field{Name: "Signature", Value: value})
	}
	return fields, nil
}
