package job

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"mediajob/internal/codec"
)

const signatureContext = "mediajob 2024 job signature v1"

// SignatureLength is the number of hex characters in a job signature.
const SignatureLength = 8

// SHA returns the job's signature: a keyed BLAKE3 hash of the canonical
// step array under the App secret, truncated to SignatureLength hex digits.
func (j *Job) SHA() (string, error) {
	data, err := codec.Marshal(j.ToArray())
	if err != nil {
		return "", fmt.Errorf("job: sign: %w", err)
	}
	return Sign(j.app.Secret, data)
}

// Sign computes a signature over data keyed by secret.
func Sign(secret, data []byte) (string, error) {
	var key [32]byte
	blake3.DeriveKey(signatureContext, secret, key[:])
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		return "", fmt.Errorf("job: keyed hash: %w", err)
	}
	if _, err := hasher.Write(data); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil))[:SignatureLength], nil
}

// ValidateSHA checks candidate against the job's signature and returns the
// job when it matches exactly. Signatures are lowercase hex.
func (j *Job) ValidateSHA(candidate string) (*Job, error) {
	if candidate == "" {
		return nil, ErrNoSHAGiven
	}
	expected, err := j.SHA()
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) != 1 {
		return nil, ErrIncorrectSHA
	}
	return j, nil
}
