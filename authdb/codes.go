package authdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// unblockCodeLength is the number of characters in a generated unblock
	// code.
	unblockCodeLength = 8

	// unblockCodeAlphabet is Crockford base32: no I, L, O, or U, so codes
	// survive being read aloud and retyped.
	unblockCodeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

	// signinCodeSize is the number of random bytes in a signin code.
	signinCodeSize = 8

	// maxSigninCodeAttempts bounds collision regeneration. Hitting it
	// means the random source is broken, not that we are unlucky.
	maxSigninCodeAttempts = 10
)

// CreateUnblockCode generates a fresh unblock code for the account,
// replacing any previous one, and returns it. Only a SHA-256 hash of the
// code is stored.
func (db *DB) CreateUnblockCode(ctx context.Context, uid uuid.UUID) (string, error) {
	buf := make([]byte, unblockCodeLength)
	if _, err := io.ReadFull(db.rand, buf); err != nil {
		return "", err
	}
	code := make([]byte, unblockCodeLength)
	for i, b := range buf {
		code[i] = unblockCodeAlphabet[int(b)%len(unblockCodeAlphabet)]
	}

	row := &UnblockCode{
		UID:       uid,
		CodeHash:  hashUnblockCode(string(code)),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.store.ReplaceUnblockCode(ctx, row); err != nil {
		return "", err
	}
	return string(code), nil
}

// ConsumeUnblockCode checks the supplied code against the account's active
// unblock code and deletes it on match. The code is single-use: a repeat
// submission fails with ErrInvalidUnblockCode, exactly like a wrong or
// expired code.
func (db *DB) ConsumeUnblockCode(ctx context.Context, uid uuid.UUID, code string) error {
	normalized := normalizeUnblockCode(code)
	if len(normalized) != unblockCodeLength {
		return ErrInvalidUnblockCode
	}

	notBefore := time.Now().UTC().Add(-db.cfg.UnblockCodeLifetime)
	if err := db.store.ConsumeUnblockCode(ctx, uid, hashUnblockCode(normalized), notBefore); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidUnblockCode
		}
		return err
	}
	return nil
}

// normalizeUnblockCode uppercases the input, strips separators, and folds
// the characters Crockford base32 treats as aliases.
func normalizeUnblockCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		switch r {
		case ' ', '-':
			continue
		case 'I', 'L':
			b.WriteRune('1')
		case 'O':
			b.WriteRune('0')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hashUnblockCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CreateSigninCode generates a fresh signin code for the account,
// optionally tagged with a flow id, and returns its hex encoding. A
// collision with any still-unconsumed code triggers regeneration; a
// duplicate row is never written.
func (db *DB) CreateSigninCode(ctx context.Context, uid uuid.UUID, flowID uuid.UUID) (string, error) {
	for range maxSigninCodeAttempts {
		code, err := db.randomHex(signinCodeSize)
		if err != nil {
			return "", err
		}

		row := &SigninCode{
			Code:      code,
			UID:       uid,
			FlowID:    flowID,
			CreatedAt: time.Now().UTC(),
		}
		err = db.store.CreateSigninCode(ctx, row)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ErrSigninCodeTaken) {
			return "", err
		}
	}
	return "", errors.New("authdb: could not generate a unique signin code")
}

// ConsumeSigninCode destroys the signin code and returns the owning
// account's primary email and flow id. Absent, expired, and already
// consumed codes all fail with ErrInvalidSigninCode.
func (db *DB) ConsumeSigninCode(ctx context.Context, code string) (*SigninCodeConsumption, error) {
	notBefore := time.Now().UTC().Add(-db.cfg.SigninCodeLifetime)
	row, err := db.store.ConsumeSigninCode(ctx, strings.ToLower(strings.TrimSpace(code)), notBefore)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidSigninCode
		}
		return nil, err
	}

	emails, err := db.store.AccountEmails(ctx, row.UID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}
	result := &SigninCodeConsumption{FlowID: row.FlowID}
	for _, e := range emails {
		if e.Primary {
			result.Email = e.Email
			break
		}
	}
	if result.Email == "" {
		return nil, ErrUnknownAccount
	}
	return result, nil
}
