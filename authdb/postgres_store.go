package authdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authcore/pkg/pg"
)

// PostgresStore implements Store on a pgx connection pool. All four token
// kinds share the tokens table, with kind-specific fields in a JSONB
// payload column; the table's primary key enforces identifier uniqueness
// across the whole namespace.
//
// The pool is owned by the caller and is never closed by the store. Apply
// the embedded Migrations before first use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrNoStore
	}
	return &PostgresStore{pool: pool}, nil
}

// sessionPayload is the JSONB body of a session token row.
type sessionPayload struct {
	Email            string    `json:"email,omitempty"`
	UABrowser        string    `json:"ua_browser,omitempty"`
	UABrowserVersion string    `json:"ua_browser_version,omitempty"`
	UAOS             string    `json:"ua_os,omitempty"`
	UAOSVersion      string    `json:"ua_os_version,omitempty"`
	UADeviceType     string    `json:"ua_device_type,omitempty"`
	UAFormFactor     string    `json:"ua_form_factor,omitempty"`
	LastAccessAt     time.Time `json:"last_access_at"`
	Location         *Location `json:"location,omitempty"`
	MustVerify       bool      `json:"must_verify,omitempty"`
}

// keyFetchPayload is the JSONB body of a key-fetch token row.
type keyFetchPayload struct {
	WrapKB        []byte `json:"wrap_kb,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// forgotPayload is the JSONB body of a password-forgot token row.
type forgotPayload struct {
	Email    string `json:"email,omitempty"`
	PassCode string `json:"pass_code,omitempty"`
	Tries    int    `json:"tries"`
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acc *Account, email *EmailRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (uid, email, normalized_email, email_verified, email_code,
			auth_salt, verify_hash, wrap_wrap_kb, verifier_set_at, created_at, locale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		acc.UID, acc.Email, acc.NormalizedEmail, acc.EmailVerified, acc.EmailCode,
		acc.AuthSalt, acc.VerifyHash, acc.WrapWrapKB, acc.VerifierSetAt, acc.CreatedAt, acc.Locale)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrUIDTaken
		}
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO emails (normalized_email, email, uid, is_verified, is_primary, verify_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		email.NormalizedEmail, email.Email, email.UID, email.Verified, email.Primary,
		email.VerifyCode, email.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Account(ctx context.Context, uid uuid.UUID) (*Account, error) {
	acc := &Account{}
	err := s.pool.QueryRow(ctx, `
		SELECT uid, email, normalized_email, email_verified, email_code,
			auth_salt, verify_hash, wrap_wrap_kb, verifier_set_at, created_at, locale
		FROM accounts WHERE uid = $1`, uid).
		Scan(&acc.UID, &acc.Email, &acc.NormalizedEmail, &acc.EmailVerified, &acc.EmailCode,
			&acc.AuthSalt, &acc.VerifyHash, &acc.WrapWrapKB, &acc.VerifierSetAt, &acc.CreatedAt, &acc.Locale)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (s *PostgresStore) EmailRecord(ctx context.Context, normalized string) (*EmailRecord, error) {
	rec := &EmailRecord{}
	err := s.pool.QueryRow(ctx, `
		SELECT normalized_email, email, uid, is_verified, is_primary, verify_code, created_at
		FROM emails WHERE normalized_email = $1`, normalized).
		Scan(&rec.NormalizedEmail, &rec.Email, &rec.UID, &rec.Verified, &rec.Primary,
			&rec.VerifyCode, &rec.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) AccountEmails(ctx context.Context, uid uuid.UUID) ([]*EmailRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT normalized_email, email, uid, is_verified, is_primary, verify_code, created_at
		FROM emails WHERE uid = $1
		ORDER BY is_primary DESC, created_at, normalized_email`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*EmailRecord
	for rows.Next() {
		rec := &EmailRecord{}
		if err := rows.Scan(&rec.NormalizedEmail, &rec.Email, &rec.UID, &rec.Verified,
			&rec.Primary, &rec.VerifyCode, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) CreateEmail(ctx context.Context, rec *EmailRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO emails (normalized_email, email, uid, is_verified, is_primary, verify_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.NormalizedEmail, rec.Email, rec.UID, rec.Verified, rec.Primary,
		rec.VerifyCode, rec.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *PostgresStore) DeleteEmail(ctx context.Context, uid uuid.UUID, normalized string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM emails WHERE uid = $1 AND normalized_email = $2`, uid, normalized)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetPrimaryEmail(ctx context.Context, uid uuid.UUID, normalized string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE emails SET is_primary = FALSE WHERE uid = $1 AND is_primary`, uid); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE emails SET is_primary = TRUE WHERE uid = $1 AND normalized_email = $2`,
		uid, normalized)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	// Keep the denormalized primary email on the account row in sync.
	if _, err := tx.Exec(ctx, `
		UPDATE accounts SET email = e.email, normalized_email = e.normalized_email, email_verified = e.is_verified
		FROM emails e
		WHERE accounts.uid = $1 AND e.normalized_email = $2`, uid, normalized); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) MarkEmailVerified(ctx context.Context, uid uuid.UUID, normalized string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE emails SET is_verified = TRUE WHERE uid = $1 AND normalized_email = $2`,
		uid, normalized)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE accounts SET email_verified = TRUE
		WHERE uid = $1 AND EXISTS (
			SELECT 1 FROM emails WHERE uid = $1 AND normalized_email = $2 AND is_primary
		)`, uid, normalized)
	return err
}

func (s *PostgresStore) ReplaceVerifier(ctx context.Context, uid uuid.UUID, params ResetAccountParams, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET auth_salt = $2, verify_hash = $3, wrap_wrap_kb = $4, verifier_set_at = $5
		WHERE uid = $1`,
		uid, params.AuthSalt, params.VerifyHash, params.WrapWrapKB, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, uid uuid.UUID) error {
	// Emails, tokens, devices, codes, and events go with the account via
	// ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE uid = $1`, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// createToken inserts one row into the shared tokens table.
func (s *PostgresStore) createToken(ctx context.Context, id string, kind TokenKind, uid uuid.UUID, createdAt time.Time, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tokens (id, kind, uid, created_at, payload) VALUES ($1, $2, $3, $4, $5)`,
		id, kind, uid, createdAt, body)
	if pg.IsDuplicateKeyError(err) {
		return ErrTokenIDTaken
	}
	return err
}

// readToken fetches one row of the expected kind and unmarshals its
// payload into out.
func (s *PostgresStore) readToken(ctx context.Context, id string, kind TokenKind, uid *uuid.UUID, createdAt *time.Time, out any) error {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT uid, created_at, payload FROM tokens WHERE id = $1 AND kind = $2`, id, kind).
		Scan(uid, createdAt, &body)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(body, out)
}

func (s *PostgresStore) deleteToken(ctx context.Context, id string, kind TokenKind) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE id = $1 AND kind = $2`, id, kind)
	return err
}

func (s *PostgresStore) CreateSessionToken(ctx context.Context, tok *SessionToken) error {
	return s.createToken(ctx, tok.ID, KindSessionToken, tok.UID, tok.CreatedAt, sessionPayload{
		Email:            tok.Email,
		UABrowser:        tok.UABrowser,
		UABrowserVersion: tok.UABrowserVersion,
		UAOS:             tok.UAOS,
		UAOSVersion:      tok.UAOSVersion,
		UADeviceType:     tok.UADeviceType,
		UAFormFactor:     tok.UAFormFactor,
		LastAccessAt:     tok.LastAccessAt,
		Location:         tok.Location,
		MustVerify:       tok.MustVerify,
	})
}

func sessionFromRow(id string, uid uuid.UUID, createdAt time.Time, deviceID *uuid.UUID, payload sessionPayload) *SessionToken {
	tok := &SessionToken{
		ID:               id,
		UID:              uid,
		Email:            payload.Email,
		CreatedAt:        createdAt,
		UABrowser:        payload.UABrowser,
		UABrowserVersion: payload.UABrowserVersion,
		UAOS:             payload.UAOS,
		UAOSVersion:      payload.UAOSVersion,
		UADeviceType:     payload.UADeviceType,
		UAFormFactor:     payload.UAFormFactor,
		LastAccessAt:     payload.LastAccessAt,
		Location:         payload.Location,
		MustVerify:       payload.MustVerify,
	}
	if deviceID != nil {
		tok.DeviceID = *deviceID
	}
	return tok
}

func (s *PostgresStore) SessionToken(ctx context.Context, id string) (*SessionToken, error) {
	var (
		uid       uuid.UUID
		createdAt time.Time
		body      []byte
		deviceID  *uuid.UUID
	)
	err := s.pool.QueryRow(ctx, `
		SELECT t.uid, t.created_at, t.payload, d.id
		FROM tokens t
		LEFT JOIN devices d ON d.session_token_id = t.id
		WHERE t.id = $1 AND t.kind = $2`, id, KindSessionToken).
		Scan(&uid, &createdAt, &body, &deviceID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return sessionFromRow(id, uid, createdAt, deviceID, payload), nil
}

func (s *PostgresStore) SessionTokens(ctx context.Context, uid uuid.UUID) ([]*SessionToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.created_at, t.payload, d.id
		FROM tokens t
		LEFT JOIN devices d ON d.session_token_id = t.id
		WHERE t.uid = $1 AND t.kind = $2
		ORDER BY t.created_at, t.id`, uid, KindSessionToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*SessionToken
	for rows.Next() {
		var (
			id        string
			createdAt time.Time
			body      []byte
			deviceID  *uuid.UUID
		)
		if err := rows.Scan(&id, &createdAt, &body, &deviceID); err != nil {
			return nil, err
		}
		var payload sessionPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		tokens = append(tokens, sessionFromRow(id, uid, createdAt, deviceID, payload))
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) DeleteSessionToken(ctx context.Context, id string) error {
	return s.deleteToken(ctx, id, KindSessionToken)
}

func (s *PostgresStore) CreateKeyFetchToken(ctx context.Context, tok *KeyFetchToken) error {
	return s.createToken(ctx, tok.ID, KindKeyFetchToken, tok.UID, tok.CreatedAt, keyFetchPayload{
		WrapKB:        tok.WrapKB,
		EmailVerified: tok.EmailVerified,
	})
}

func (s *PostgresStore) KeyFetchToken(ctx context.Context, id string) (*KeyFetchToken, error) {
	tok := &KeyFetchToken{ID: id}
	var payload keyFetchPayload
	if err := s.readToken(ctx, id, KindKeyFetchToken, &tok.UID, &tok.CreatedAt, &payload); err != nil {
		return nil, err
	}
	tok.WrapKB = payload.WrapKB
	tok.EmailVerified = payload.EmailVerified
	return tok, nil
}

func (s *PostgresStore) DeleteKeyFetchToken(ctx context.Context, id string) error {
	return s.deleteToken(ctx, id, KindKeyFetchToken)
}

func (s *PostgresStore) CreatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	return s.createToken(ctx, tok.ID, KindPasswordForgotToken, tok.UID, tok.CreatedAt, forgotPayload{
		Email:    tok.Email,
		PassCode: tok.PassCode,
		Tries:    tok.Tries,
	})
}

func (s *PostgresStore) PasswordForgotToken(ctx context.Context, id string) (*PasswordForgotToken, error) {
	tok := &PasswordForgotToken{ID: id}
	var payload forgotPayload
	if err := s.readToken(ctx, id, KindPasswordForgotToken, &tok.UID, &tok.CreatedAt, &payload); err != nil {
		return nil, err
	}
	tok.Email = payload.Email
	tok.PassCode = payload.PassCode
	tok.Tries = payload.Tries
	return tok, nil
}

func (s *PostgresStore) UpdatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens SET payload = jsonb_set(payload, '{tries}', to_jsonb($3::int))
		WHERE id = $1 AND kind = $2`,
		tok.ID, KindPasswordForgotToken, tok.Tries)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeletePasswordForgotToken(ctx context.Context, id string) error {
	return s.deleteToken(ctx, id, KindPasswordForgotToken)
}

func (s *PostgresStore) CreateAccountResetToken(ctx context.Context, tok *AccountResetToken) error {
	return s.createToken(ctx, tok.ID, KindAccountResetToken, tok.UID, tok.CreatedAt, struct{}{})
}

func (s *PostgresStore) AccountResetToken(ctx context.Context, id string) (*AccountResetToken, error) {
	tok := &AccountResetToken{ID: id}
	var payload struct{}
	if err := s.readToken(ctx, id, KindAccountResetToken, &tok.UID, &tok.CreatedAt, &payload); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *PostgresStore) DeleteAccountResetToken(ctx context.Context, id string) error {
	return s.deleteToken(ctx, id, KindAccountResetToken)
}

func (s *PostgresStore) DeleteAccountTokens(ctx context.Context, uid uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE uid = $1`, uid)
	return err
}

func (s *PostgresStore) DeleteExpiredSessionTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM tokens
		WHERE kind = $1 AND created_at < $2
		AND NOT EXISTS (SELECT 1 FROM devices d WHERE d.session_token_id = tokens.id)`,
		KindSessionToken, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) CreateDevice(ctx context.Context, dev *Device) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO devices (uid, id, session_token_id, name, type,
			push_callback, push_public_key, push_auth_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		dev.UID, dev.ID, dev.SessionTokenID, dev.Name, dev.Type,
		dev.PushCallback, dev.PushPublicKey, dev.PushAuthKey, dev.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return s.boundDeviceError(ctx, dev.SessionTokenID)
	}
	return err
}

// boundDeviceError looks up which device holds the session token after a
// unique violation on the binding index.
func (s *PostgresStore) boundDeviceError(ctx context.Context, sessionTokenID string) error {
	var deviceID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM devices WHERE session_token_id = $1`, sessionTokenID).
		Scan(&deviceID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			// The conflicting device vanished between the insert and this
			// read; surface the conflict without an id.
			return &BoundDeviceError{}
		}
		return err
	}
	return &BoundDeviceError{DeviceID: deviceID}
}

func (s *PostgresStore) Device(ctx context.Context, uid, deviceID uuid.UUID) (*Device, error) {
	dev := &Device{}
	err := s.pool.QueryRow(ctx, `
		SELECT uid, id, session_token_id, name, type,
			push_callback, push_public_key, push_auth_key, created_at
		FROM devices WHERE uid = $1 AND id = $2`, uid, deviceID).
		Scan(&dev.UID, &dev.ID, &dev.SessionTokenID, &dev.Name, &dev.Type,
			&dev.PushCallback, &dev.PushPublicKey, &dev.PushAuthKey, &dev.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return dev, nil
}

func (s *PostgresStore) UpdateDevice(ctx context.Context, dev *Device) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices SET session_token_id = $3, name = $4, type = $5,
			push_callback = $6, push_public_key = $7, push_auth_key = $8
		WHERE uid = $1 AND id = $2`,
		dev.UID, dev.ID, dev.SessionTokenID, dev.Name, dev.Type,
		dev.PushCallback, dev.PushPublicKey, dev.PushAuthKey)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return s.boundDeviceError(ctx, dev.SessionTokenID)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteDevice(ctx context.Context, uid, deviceID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM devices WHERE uid = $1 AND id = $2`, uid, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteDeviceBySessionToken(ctx context.Context, sessionTokenID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM devices WHERE session_token_id = $1`, sessionTokenID)
	return err
}

func (s *PostgresStore) DeleteAccountDevices(ctx context.Context, uid uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM devices WHERE uid = $1`, uid)
	return err
}

func (s *PostgresStore) Devices(ctx context.Context, uid uuid.UUID) ([]*Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uid, id, session_token_id, name, type,
			push_callback, push_public_key, push_auth_key, created_at
		FROM devices WHERE uid = $1
		ORDER BY created_at, id`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		dev := &Device{}
		if err := rows.Scan(&dev.UID, &dev.ID, &dev.SessionTokenID, &dev.Name, &dev.Type,
			&dev.PushCallback, &dev.PushPublicKey, &dev.PushAuthKey, &dev.CreatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, rows.Err()
}

func (s *PostgresStore) ReplaceUnblockCode(ctx context.Context, code *UnblockCode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO unblock_codes (uid, code_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE SET code_hash = $2, created_at = $3`,
		code.UID, code.CodeHash, code.CreatedAt)
	return err
}

func (s *PostgresStore) ConsumeUnblockCode(ctx context.Context, uid uuid.UUID, codeHash string, notBefore time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM unblock_codes
		WHERE uid = $1 AND code_hash = $2 AND created_at >= $3`,
		uid, codeHash, notBefore)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSigninCode(ctx context.Context, code *SigninCode) error {
	var flowID *uuid.UUID
	if code.FlowID != uuid.Nil {
		flowID = &code.FlowID
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO signin_codes (code, uid, flow_id, created_at) VALUES ($1, $2, $3, $4)`,
		code.Code, code.UID, flowID, code.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrSigninCodeTaken
	}
	return err
}

func (s *PostgresStore) ConsumeSigninCode(ctx context.Context, code string, notBefore time.Time) (*SigninCode, error) {
	row := &SigninCode{Code: code}
	var flowID *uuid.UUID
	err := s.pool.QueryRow(ctx, `
		DELETE FROM signin_codes
		WHERE code = $1 AND created_at >= $2
		RETURNING uid, flow_id, created_at`, code, notBefore).
		Scan(&row.UID, &flowID, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if flowID != nil {
		row.FlowID = *flowID
	}
	return row, nil
}

func (s *PostgresStore) CreateSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO security_events (id, uid, name, ip, token_id, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.UID, event.Name, event.IP, event.TokenID, event.Verified, event.CreatedAt)
	return err
}

func (s *PostgresStore) SecurityEvents(ctx context.Context, uid uuid.UUID, limit int) ([]*SecurityEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, uid, name, ip, token_id, verified, created_at
		FROM security_events WHERE uid = $1
		ORDER BY created_at, id
		LIMIT $2`, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*SecurityEvent
	for rows.Next() {
		event := &SecurityEvent{}
		if err := rows.Scan(&event.ID, &event.UID, &event.Name, &event.IP,
			&event.TokenID, &event.Verified, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
