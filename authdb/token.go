package authdb

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// tokenSecretSize is the size of the raw token secret handed to the caller.
const tokenSecretSize = 32

// tokenIDSize is the size of the derived token identifier before hex
// encoding.
const tokenIDSize = 32

// tokenKindInfo provides HKDF domain separation per token kind: the same
// secret can never yield a valid identifier of a different kind.
var tokenKindInfo = map[TokenKind]string{
	KindSessionToken:        "authcore/v1/sessionToken",
	KindKeyFetchToken:       "authcore/v1/keyFetchToken",
	KindPasswordForgotToken: "authcore/v1/passwordForgotToken",
	KindAccountResetToken:   "authcore/v1/accountResetToken",
}

// newToken draws a fresh token secret and derives its identifier. The
// secret (key) is returned to the caller exactly once, at creation; only
// the derived id is ever stored.
func (db *DB) newToken(kind TokenKind) (id, key string, err error) {
	info, ok := tokenKindInfo[kind]
	if !ok {
		return "", "", errors.New("authdb: unknown token kind")
	}

	secret := make([]byte, tokenSecretSize)
	if _, err := io.ReadFull(db.rand, secret); err != nil {
		return "", "", err
	}

	derived := make([]byte, tokenIDSize)
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(r, derived); err != nil {
		return "", "", err
	}

	return hex.EncodeToString(derived), hex.EncodeToString(secret), nil
}

// DeriveTokenID recomputes a token identifier from its raw hex secret. The
// route layer uses this to turn a bearer credential back into the stored
// id.
func DeriveTokenID(kind TokenKind, key string) (string, error) {
	info, ok := tokenKindInfo[kind]
	if !ok {
		return "", errors.New("authdb: unknown token kind")
	}

	secret, err := hex.DecodeString(key)
	if err != nil {
		return "", err
	}

	derived := make([]byte, tokenIDSize)
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(r, derived); err != nil {
		return "", err
	}

	return hex.EncodeToString(derived), nil
}
