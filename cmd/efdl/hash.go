package main

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/sha3"

	"github.com/netromdk/efdl"
)

// newHasher returns a hash.Hash for one of the algorithm names listed in
// spec.md §6 ("md4, md5, sha1, sha2-{224,256,384,512}, sha3-{224,256,384,512}").
func newHasher(alg string) (hash.Hash, error) {
	switch strings.ToLower(alg) {
	case "md4":
		return md4.New(), nil
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha2-224":
		return sha256.New224(), nil
	case "sha2-256":
		return sha256.New(), nil
	case "sha2-384":
		return sha512.New384(), nil
	case "sha2-512":
		return sha512.New(), nil
	case "sha3-224":
		return sha3.New224(), nil
	case "sha3-256":
		return sha3.New256(), nil
	case "sha3-384":
		return sha3.New384(), nil
	case "sha3-512":
		return sha3.New512(), nil
	default:
		return nil, efdl.ErrHashAlgorithm
	}
}

// checksumFile computes alg's digest of the file at path, streaming it
// through the hasher rather than reading it whole, since a completed
// download may be arbitrarily large (original_source's
// Downloader::createChecksum does the same with a QCryptographicHash fed
// in blocks).
func checksumFile(path, alg string) (string, error) {
	h, err := newHasher(alg)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifySpec is one parsed "alg=hex" pair from --verify.
type verifySpec struct {
	Alg string
	Hex string
}

// parseVerifySpecs parses a comma-separated "alg=hex,alg=hex,..." string
// as accepted by --verify.
func parseVerifySpecs(raw string) ([]verifySpec, error) {
	if raw == "" {
		return nil, nil
	}
	var specs []verifySpec
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			return nil, fmt.Errorf("efdl: malformed --verify entry %q, want alg=hex", part)
		}
		specs = append(specs, verifySpec{Alg: kv[0], Hex: kv[1]})
	}
	return specs, nil
}

// verifyFile checks every spec against path's computed digest, returning
// an error naming the first mismatch.
func verifyFile(path string, specs []verifySpec) error {
	for _, s := range specs {
		got, err := checksumFile(path, s.Alg)
		if err != nil {
			return err
		}
		if !strings.EqualFold(got, s.Hex) {
			return fmt.Errorf("efdl: checksum mismatch for %s: %s wanted %s, got %s", path, s.Alg, s.Hex, got)
		}
	}
	return nil
}
