package authdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-process maps. It is the reference
// implementation used by tests and development setups; every read and
// write copies records so callers can never alias internal state.
type MemoryStore struct {
	mu sync.RWMutex

	accounts map[uuid.UUID]*Account
	emails   map[string]*EmailRecord // keyed by normalized email

	// tokenKinds spans the whole token namespace so an id can never be
	// reused across kinds.
	tokenKinds           map[string]TokenKind
	sessionTokens        map[string]*SessionToken
	keyFetchTokens       map[string]*KeyFetchToken
	passwordForgotTokens map[string]*PasswordForgotToken
	accountResetTokens   map[string]*AccountResetToken

	devices         map[uuid.UUID]map[uuid.UUID]*Device // uid -> device id
	deviceBySession map[string]uuid.UUID                // session token id -> device id

	unblockCodes   map[uuid.UUID]*UnblockCode
	signinCodes    map[string]*SigninCode
	securityEvents map[uuid.UUID][]*SecurityEvent
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:             make(map[uuid.UUID]*Account),
		emails:               make(map[string]*EmailRecord),
		tokenKinds:           make(map[string]TokenKind),
		sessionTokens:        make(map[string]*SessionToken),
		keyFetchTokens:       make(map[string]*KeyFetchToken),
		passwordForgotTokens: make(map[string]*PasswordForgotToken),
		accountResetTokens:   make(map[string]*AccountResetToken),
		devices:              make(map[uuid.UUID]map[uuid.UUID]*Device),
		deviceBySession:      make(map[string]uuid.UUID),
		unblockCodes:         make(map[uuid.UUID]*UnblockCode),
		signinCodes:          make(map[string]*SigninCode),
		securityEvents:       make(map[uuid.UUID][]*SecurityEvent),
	}
}

func (m *MemoryStore) CreateAccount(ctx context.Context, acc *Account, email *EmailRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[acc.UID]; exists {
		return ErrUIDTaken
	}
	if _, exists := m.emails[email.NormalizedEmail]; exists {
		return ErrEmailTaken
	}

	accCopy := *acc
	emailCopy := *email
	m.accounts[acc.UID] = &accCopy
	m.emails[email.NormalizedEmail] = &emailCopy
	return nil
}

func (m *MemoryStore) Account(ctx context.Context, uid uuid.UUID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, exists := m.accounts[uid]
	if !exists {
		return nil, ErrNotFound
	}
	accCopy := *acc
	return &accCopy, nil
}

func (m *MemoryStore) EmailRecord(ctx context.Context, normalized string) (*EmailRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.emails[normalized]
	if !exists {
		return nil, ErrNotFound
	}
	recCopy := *rec
	return &recCopy, nil
}

func (m *MemoryStore) AccountEmails(ctx context.Context, uid uuid.UUID) ([]*EmailRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*EmailRecord
	for _, rec := range m.emails {
		if rec.UID == uid {
			recCopy := *rec
			records = append(records, &recCopy)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Primary != records[j].Primary {
			return records[i].Primary
		}
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].NormalizedEmail < records[j].NormalizedEmail
	})
	return records, nil
}

func (m *MemoryStore) CreateEmail(ctx context.Context, rec *EmailRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emails[rec.NormalizedEmail]; exists {
		return ErrEmailTaken
	}
	recCopy := *rec
	m.emails[rec.NormalizedEmail] = &recCopy
	return nil
}

func (m *MemoryStore) DeleteEmail(ctx context.Context, uid uuid.UUID, normalized string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.emails[normalized]
	if !exists || rec.UID != uid {
		return ErrNotFound
	}
	delete(m.emails, normalized)
	return nil
}

func (m *MemoryStore) SetPrimaryEmail(ctx context.Context, uid uuid.UUID, normalized string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, exists := m.emails[normalized]
	if !exists || next.UID != uid {
		return ErrNotFound
	}

	for _, rec := range m.emails {
		if rec.UID == uid && rec.Primary {
			rec.Primary = false
		}
	}
	next.Primary = true

	if acc, ok := m.accounts[uid]; ok {
		acc.Email = next.Email
		acc.NormalizedEmail = next.NormalizedEmail
		acc.EmailVerified = next.Verified
	}
	return nil
}

func (m *MemoryStore) MarkEmailVerified(ctx context.Context, uid uuid.UUID, normalized string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.emails[normalized]
	if !exists || rec.UID != uid {
		return ErrNotFound
	}
	rec.Verified = true

	if rec.Primary {
		if acc, ok := m.accounts[uid]; ok {
			acc.EmailVerified = true
		}
	}
	return nil
}

func (m *MemoryStore) ReplaceVerifier(ctx context.Context, uid uuid.UUID, params ResetAccountParams, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, exists := m.accounts[uid]
	if !exists {
		return ErrNotFound
	}
	acc.AuthSalt = append([]byte(nil), params.AuthSalt...)
	acc.VerifyHash = append([]byte(nil), params.VerifyHash...)
	acc.WrapWrapKB = append([]byte(nil), params.WrapWrapKB...)
	acc.VerifierSetAt = at
	return nil
}

func (m *MemoryStore) DeleteAccount(ctx context.Context, uid uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[uid]; !exists {
		return ErrNotFound
	}
	delete(m.accounts, uid)

	for normalized, rec := range m.emails {
		if rec.UID == uid {
			delete(m.emails, normalized)
		}
	}

	m.deleteAccountTokensLocked(uid)

	for id, dev := range m.devices[uid] {
		delete(m.deviceBySession, dev.SessionTokenID)
		delete(m.devices[uid], id)
	}
	delete(m.devices, uid)

	delete(m.unblockCodes, uid)
	for code, row := range m.signinCodes {
		if row.UID == uid {
			delete(m.signinCodes, code)
		}
	}
	delete(m.securityEvents, uid)
	return nil
}

func (m *MemoryStore) CreateSessionToken(ctx context.Context, tok *SessionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokenKinds[tok.ID]; exists {
		return ErrTokenIDTaken
	}
	tokCopy := *tok
	tokCopy.Key = "" // secrets are never stored
	m.sessionTokens[tok.ID] = &tokCopy
	m.tokenKinds[tok.ID] = KindSessionToken
	return nil
}

func (m *MemoryStore) SessionToken(ctx context.Context, id string) (*SessionToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, exists := m.sessionTokens[id]
	if !exists {
		return nil, ErrNotFound
	}
	return m.sessionCopyLocked(tok), nil
}

func (m *MemoryStore) SessionTokens(ctx context.Context, uid uuid.UUID) ([]*SessionToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tokens []*SessionToken
	for _, tok := range m.sessionTokens {
		if tok.UID == uid {
			tokens = append(tokens, m.sessionCopyLocked(tok))
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if !tokens[i].CreatedAt.Equal(tokens[j].CreatedAt) {
			return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
		}
		return tokens[i].ID < tokens[j].ID
	})
	return tokens, nil
}

// sessionCopyLocked copies a session row and joins in the bound device id.
func (m *MemoryStore) sessionCopyLocked(tok *SessionToken) *SessionToken {
	tokCopy := *tok
	if tok.Location != nil {
		loc := *tok.Location
		tokCopy.Location = &loc
	}
	if deviceID, bound := m.deviceBySession[tok.ID]; bound {
		tokCopy.DeviceID = deviceID
	}
	return &tokCopy
}

func (m *MemoryStore) DeleteSessionToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessionTokens, id)
	delete(m.tokenKinds, id)
	return nil
}

func (m *MemoryStore) CreateKeyFetchToken(ctx context.Context, tok *KeyFetchToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokenKinds[tok.ID]; exists {
		return ErrTokenIDTaken
	}
	tokCopy := *tok
	tokCopy.Key = ""
	tokCopy.WrapKB = append([]byte(nil), tok.WrapKB...)
	m.keyFetchTokens[tok.ID] = &tokCopy
	m.tokenKinds[tok.ID] = KindKeyFetchToken
	return nil
}

func (m *MemoryStore) KeyFetchToken(ctx context.Context, id string) (*KeyFetchToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, exists := m.keyFetchTokens[id]
	if !exists {
		return nil, ErrNotFound
	}
	tokCopy := *tok
	tokCopy.WrapKB = append([]byte(nil), tok.WrapKB...)
	return &tokCopy, nil
}

func (m *MemoryStore) DeleteKeyFetchToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keyFetchTokens, id)
	delete(m.tokenKinds, id)
	return nil
}

func (m *MemoryStore) CreatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokenKinds[tok.ID]; exists {
		return ErrTokenIDTaken
	}
	tokCopy := *tok
	tokCopy.Key = ""
	m.passwordForgotTokens[tok.ID] = &tokCopy
	m.tokenKinds[tok.ID] = KindPasswordForgotToken
	return nil
}

func (m *MemoryStore) PasswordForgotToken(ctx context.Context, id string) (*PasswordForgotToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, exists := m.passwordForgotTokens[id]
	if !exists {
		return nil, ErrNotFound
	}
	tokCopy := *tok
	return &tokCopy, nil
}

func (m *MemoryStore) UpdatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.passwordForgotTokens[tok.ID]
	if !exists {
		return ErrNotFound
	}
	stored.Tries = tok.Tries
	return nil
}

func (m *MemoryStore) DeletePasswordForgotToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.passwordForgotTokens, id)
	delete(m.tokenKinds, id)
	return nil
}

func (m *MemoryStore) CreateAccountResetToken(ctx context.Context, tok *AccountResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokenKinds[tok.ID]; exists {
		return ErrTokenIDTaken
	}
	tokCopy := *tok
	tokCopy.Key = ""
	m.accountResetTokens[tok.ID] = &tokCopy
	m.tokenKinds[tok.ID] = KindAccountResetToken
	return nil
}

func (m *MemoryStore) AccountResetToken(ctx context.Context, id string) (*AccountResetToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, exists := m.accountResetTokens[id]
	if !exists {
		return nil, ErrNotFound
	}
	tokCopy := *tok
	return &tokCopy, nil
}

func (m *MemoryStore) DeleteAccountResetToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.accountResetTokens, id)
	delete(m.tokenKinds, id)
	return nil
}

func (m *MemoryStore) DeleteAccountTokens(ctx context.Context, uid uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteAccountTokensLocked(uid)
	return nil
}

func (m *MemoryStore) deleteAccountTokensLocked(uid uuid.UUID) {
	for id, tok := range m.sessionTokens {
		if tok.UID == uid {
			delete(m.sessionTokens, id)
			delete(m.tokenKinds, id)
		}
	}
	for id, tok := range m.keyFetchTokens {
		if tok.UID == uid {
			delete(m.keyFetchTokens, id)
			delete(m.tokenKinds, id)
		}
	}
	for id, tok := range m.passwordForgotTokens {
		if tok.UID == uid {
			delete(m.passwordForgotTokens, id)
			delete(m.tokenKinds, id)
		}
	}
	for id, tok := range m.accountResetTokens {
		if tok.UID == uid {
			delete(m.accountResetTokens, id)
			delete(m.tokenKinds, id)
		}
	}
}

func (m *MemoryStore) DeleteExpiredSessionTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, tok := range m.sessionTokens {
		if _, bound := m.deviceBySession[id]; bound {
			continue
		}
		if tok.CreatedAt.Before(cutoff) {
			delete(m.sessionTokens, id)
			delete(m.tokenKinds, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) CreateDevice(ctx context.Context, dev *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if boundID, bound := m.deviceBySession[dev.SessionTokenID]; bound && boundID != dev.ID {
		return &BoundDeviceError{DeviceID: boundID}
	}

	if m.devices[dev.UID] == nil {
		m.devices[dev.UID] = make(map[uuid.UUID]*Device)
	}
	devCopy := *dev
	m.devices[dev.UID][dev.ID] = &devCopy
	m.deviceBySession[dev.SessionTokenID] = dev.ID
	return nil
}

func (m *MemoryStore) Device(ctx context.Context, uid, deviceID uuid.UUID) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dev, exists := m.devices[uid][deviceID]
	if !exists {
		return nil, ErrNotFound
	}
	devCopy := *dev
	return &devCopy, nil
}

func (m *MemoryStore) UpdateDevice(ctx context.Context, dev *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.devices[dev.UID][dev.ID]
	if !exists {
		return ErrNotFound
	}
	if boundID, bound := m.deviceBySession[dev.SessionTokenID]; bound && boundID != dev.ID {
		return &BoundDeviceError{DeviceID: boundID}
	}

	if stored.SessionTokenID != dev.SessionTokenID {
		delete(m.deviceBySession, stored.SessionTokenID)
	}
	devCopy := *dev
	devCopy.CreatedAt = stored.CreatedAt
	m.devices[dev.UID][dev.ID] = &devCopy
	m.deviceBySession[dev.SessionTokenID] = dev.ID
	return nil
}

func (m *MemoryStore) DeleteDevice(ctx context.Context, uid, deviceID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, exists := m.devices[uid][deviceID]
	if !exists {
		return ErrNotFound
	}
	delete(m.deviceBySession, dev.SessionTokenID)
	delete(m.devices[uid], deviceID)
	return nil
}

func (m *MemoryStore) DeleteDeviceBySessionToken(ctx context.Context, sessionTokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	deviceID, bound := m.deviceBySession[sessionTokenID]
	if !bound {
		return nil
	}
	delete(m.deviceBySession, sessionTokenID)
	for _, byID := range m.devices {
		if dev, ok := byID[deviceID]; ok && dev.SessionTokenID == sessionTokenID {
			delete(byID, deviceID)
		}
	}
	return nil
}

func (m *MemoryStore) DeleteAccountDevices(ctx context.Context, uid uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, dev := range m.devices[uid] {
		delete(m.deviceBySession, dev.SessionTokenID)
		delete(m.devices[uid], id)
	}
	delete(m.devices, uid)
	return nil
}

func (m *MemoryStore) Devices(ctx context.Context, uid uuid.UUID) ([]*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var devices []*Device
	for _, dev := range m.devices[uid] {
		devCopy := *dev
		devices = append(devices, &devCopy)
	}
	sort.Slice(devices, func(i, j int) bool {
		if !devices[i].CreatedAt.Equal(devices[j].CreatedAt) {
			return devices[i].CreatedAt.Before(devices[j].CreatedAt)
		}
		return devices[i].ID.String() < devices[j].ID.String()
	})
	return devices, nil
}

func (m *MemoryStore) ReplaceUnblockCode(ctx context.Context, code *UnblockCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	codeCopy := *code
	m.unblockCodes[code.UID] = &codeCopy
	return nil
}

func (m *MemoryStore) ConsumeUnblockCode(ctx context.Context, uid uuid.UUID, codeHash string, notBefore time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, exists := m.unblockCodes[uid]
	if !exists || row.CodeHash != codeHash || row.CreatedAt.Before(notBefore) {
		return ErrNotFound
	}
	delete(m.unblockCodes, uid)
	return nil
}

func (m *MemoryStore) CreateSigninCode(ctx context.Context, code *SigninCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.signinCodes[code.Code]; exists {
		return ErrSigninCodeTaken
	}
	codeCopy := *code
	m.signinCodes[code.Code] = &codeCopy
	return nil
}

func (m *MemoryStore) ConsumeSigninCode(ctx context.Context, code string, notBefore time.Time) (*SigninCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, exists := m.signinCodes[code]
	if !exists || row.CreatedAt.Before(notBefore) {
		return nil, ErrNotFound
	}
	delete(m.signinCodes, code)
	rowCopy := *row
	return &rowCopy, nil
}

func (m *MemoryStore) CreateSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eventCopy := *event
	m.securityEvents[event.UID] = append(m.securityEvents[event.UID], &eventCopy)
	return nil
}

func (m *MemoryStore) SecurityEvents(ctx context.Context, uid uuid.UUID, limit int) ([]*SecurityEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.securityEvents[uid]
	events := make([]*SecurityEvent, 0, len(stored))
	for _, event := range stored {
		eventCopy := *event
		events = append(events, &eventCopy)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
