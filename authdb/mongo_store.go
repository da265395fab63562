package authdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Store on a MongoDB database. Natural keys double
// as document ids: the normalized email for email docs, the token id for
// token docs, the code for signin codes, and the account uid for unblock
// codes, so uniqueness falls out of the _id index. Call EnsureIndexes once
// at startup for the remaining constraints.
//
// The database handle is owned by the caller; the store never disconnects
// the client.
type MongoStore struct {
	db *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// Collection names used by MongoStore.
const (
	colAccounts       = "accounts"
	colEmails         = "emails"
	colTokens         = "tokens"
	colDevices        = "devices"
	colUnblockCodes   = "unblock_codes"
	colSigninCodes    = "signin_codes"
	colSecurityEvents = "security_events"
)

// NewMongoStore wraps an existing database handle.
func NewMongoStore(db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, ErrNoStore
	}
	return &MongoStore{db: db}, nil
}

// EnsureIndexes creates the secondary indexes the store relies on:
// the one-device-per-session unique constraint, per-account lookups, and
// audit log ordering.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(colDevices).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionTokenId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "uid", Value: 1}, {Key: "deviceId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(colTokens).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "kind", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(colEmails).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(colSecurityEvents).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	return err
}

type mongoAccount struct {
	UID             string    `bson:"_id"`
	Email           string    `bson:"email"`
	NormalizedEmail string    `bson:"normalizedEmail"`
	EmailVerified   bool      `bson:"emailVerified"`
	EmailCode       string    `bson:"emailCode,omitempty"`
	AuthSalt        []byte    `bson:"authSalt,omitempty"`
	VerifyHash      []byte    `bson:"verifyHash,omitempty"`
	WrapWrapKB      []byte    `bson:"wrapWrapKb,omitempty"`
	VerifierSetAt   time.Time `bson:"verifierSetAt"`
	CreatedAt       time.Time `bson:"createdAt"`
	Locale          string    `bson:"locale,omitempty"`
}

type mongoEmail struct {
	NormalizedEmail string    `bson:"_id"`
	Email           string    `bson:"email"`
	UID             string    `bson:"uid"`
	Verified        bool      `bson:"verified"`
	Primary         bool      `bson:"primary"`
	VerifyCode      string    `bson:"verifyCode,omitempty"`
	CreatedAt       time.Time `bson:"createdAt"`
}

// mongoToken is the tagged union document for all four token kinds.
type mongoToken struct {
	ID        string    `bson:"_id"`
	Kind      TokenKind `bson:"kind"`
	UID       string    `bson:"uid"`
	CreatedAt time.Time `bson:"createdAt"`

	// Session fields.
	Email            string    `bson:"email,omitempty"`
	UABrowser        string    `bson:"uaBrowser,omitempty"`
	UABrowserVersion string    `bson:"uaBrowserVersion,omitempty"`
	UAOS             string    `bson:"uaOs,omitempty"`
	UAOSVersion      string    `bson:"uaOsVersion,omitempty"`
	UADeviceType     string    `bson:"uaDeviceType,omitempty"`
	UAFormFactor     string    `bson:"uaFormFactor,omitempty"`
	LastAccessAt     time.Time `bson:"lastAccessAt,omitempty"`
	Location         *Location `bson:"location,omitempty"`
	MustVerify       bool      `bson:"mustVerify,omitempty"`

	// Key-fetch fields.
	WrapKB        []byte `bson:"wrapKb,omitempty"`
	EmailVerified bool   `bson:"emailVerified,omitempty"`

	// Password-forgot fields.
	PassCode string `bson:"passCode,omitempty"`
	Tries    int    `bson:"tries,omitempty"`
}

type mongoDevice struct {
	UID            string    `bson:"uid"`
	DeviceID       string    `bson:"deviceId"`
	SessionTokenID string    `bson:"sessionTokenId"`
	Name           string    `bson:"name,omitempty"`
	Type           string    `bson:"type"`
	PushCallback   string    `bson:"pushCallback,omitempty"`
	PushPublicKey  string    `bson:"pushPublicKey,omitempty"`
	PushAuthKey    string    `bson:"pushAuthKey,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
}

type mongoUnblockCode struct {
	UID       string    `bson:"_id"`
	CodeHash  string    `bson:"codeHash"`
	CreatedAt time.Time `bson:"createdAt"`
}

type mongoSigninCode struct {
	Code      string    `bson:"_id"`
	UID       string    `bson:"uid"`
	FlowID    string    `bson:"flowId,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

type mongoSecurityEvent struct {
	ID        string    `bson:"_id"`
	UID       string    `bson:"uid"`
	Name      string    `bson:"name"`
	IP        string    `bson:"ip,omitempty"`
	TokenID   string    `bson:"tokenId,omitempty"`
	Verified  bool      `bson:"verified"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (s *MongoStore) CreateAccount(ctx context.Context, acc *Account, email *EmailRecord) error {
	emails := s.db.Collection(colEmails)

	// Email first: its _id carries the cross-account uniqueness
	// constraint. The account insert compensates on failure.
	_, err := emails.InsertOne(ctx, mongoEmail{
		NormalizedEmail: email.NormalizedEmail,
		Email:           email.Email,
		UID:             email.UID.String(),
		Verified:        email.Verified,
		Primary:         email.Primary,
		VerifyCode:      email.VerifyCode,
		CreatedAt:       email.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}

	_, err = s.db.Collection(colAccounts).InsertOne(ctx, mongoAccount{
		UID:             acc.UID.String(),
		Email:           acc.Email,
		NormalizedEmail: acc.NormalizedEmail,
		EmailVerified:   acc.EmailVerified,
		EmailCode:       acc.EmailCode,
		AuthSalt:        acc.AuthSalt,
		VerifyHash:      acc.VerifyHash,
		WrapWrapKB:      acc.WrapWrapKB,
		VerifierSetAt:   acc.VerifierSetAt,
		CreatedAt:       acc.CreatedAt,
		Locale:          acc.Locale,
	})
	if err != nil {
		_, _ = emails.DeleteOne(ctx, bson.M{"_id": email.NormalizedEmail})
		if mongo.IsDuplicateKeyError(err) {
			return ErrUIDTaken
		}
		return err
	}
	return nil
}

func (s *MongoStore) Account(ctx context.Context, uid uuid.UUID) (*Account, error) {
	var doc mongoAccount
	err := s.db.Collection(colAccounts).FindOne(ctx, bson.M{"_id": uid.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return accountFromDoc(doc)
}

func accountFromDoc(doc mongoAccount) (*Account, error) {
	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	return &Account{
		UID:             uid,
		Email:           doc.Email,
		NormalizedEmail: doc.NormalizedEmail,
		EmailVerified:   doc.EmailVerified,
		EmailCode:       doc.EmailCode,
		AuthSalt:        doc.AuthSalt,
		VerifyHash:      doc.VerifyHash,
		WrapWrapKB:      doc.WrapWrapKB,
		VerifierSetAt:   doc.VerifierSetAt,
		CreatedAt:       doc.CreatedAt,
		Locale:          doc.Locale,
	}, nil
}

func emailFromDoc(doc mongoEmail) (*EmailRecord, error) {
	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	return &EmailRecord{
		Email:           doc.Email,
		NormalizedEmail: doc.NormalizedEmail,
		Verified:        doc.Verified,
		Primary:         doc.Primary,
		UID:             uid,
		VerifyCode:      doc.VerifyCode,
		CreatedAt:       doc.CreatedAt,
	}, nil
}

func (s *MongoStore) EmailRecord(ctx context.Context, normalized string) (*EmailRecord, error) {
	var doc mongoEmail
	err := s.db.Collection(colEmails).FindOne(ctx, bson.M{"_id": normalized}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return emailFromDoc(doc)
}

func (s *MongoStore) AccountEmails(ctx context.Context, uid uuid.UUID) ([]*EmailRecord, error) {
	cursor, err := s.db.Collection(colEmails).Find(ctx, bson.M{"uid": uid.String()},
		options.Find().SetSort(bson.D{
			{Key: "primary", Value: -1},
			{Key: "createdAt", Value: 1},
			{Key: "_id", Value: 1},
		}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*EmailRecord
	for cursor.Next(ctx) {
		var doc mongoEmail
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec, err := emailFromDoc(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, cursor.Err()
}

func (s *MongoStore) CreateEmail(ctx context.Context, rec *EmailRecord) error {
	_, err := s.db.Collection(colEmails).InsertOne(ctx, mongoEmail{
		NormalizedEmail: rec.NormalizedEmail,
		Email:           rec.Email,
		UID:             rec.UID.String(),
		Verified:        rec.Verified,
		Primary:         rec.Primary,
		VerifyCode:      rec.VerifyCode,
		CreatedAt:       rec.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *MongoStore) DeleteEmail(ctx context.Context, uid uuid.UUID, normalized string) error {
	res, err := s.db.Collection(colEmails).DeleteOne(ctx,
		bson.M{"_id": normalized, "uid": uid.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetPrimaryEmail(ctx context.Context, uid uuid.UUID, normalized string) error {
	emails := s.db.Collection(colEmails)

	var next mongoEmail
	err := emails.FindOne(ctx, bson.M{"_id": normalized, "uid": uid.String()}).Decode(&next)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}

	if _, err := emails.UpdateMany(ctx,
		bson.M{"uid": uid.String(), "primary": true},
		bson.M{"$set": bson.M{"primary": false}}); err != nil {
		return err
	}
	if _, err := emails.UpdateOne(ctx,
		bson.M{"_id": normalized},
		bson.M{"$set": bson.M{"primary": true}}); err != nil {
		return err
	}

	_, err = s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": uid.String()},
		bson.M{"$set": bson.M{
			"email":           next.Email,
			"normalizedEmail": next.NormalizedEmail,
			"emailVerified":   next.Verified,
		}})
	return err
}

func (s *MongoStore) MarkEmailVerified(ctx context.Context, uid uuid.UUID, normalized string) error {
	var doc mongoEmail
	err := s.db.Collection(colEmails).FindOneAndUpdate(ctx,
		bson.M{"_id": normalized, "uid": uid.String()},
		bson.M{"$set": bson.M{"verified": true}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}

	if doc.Primary {
		_, err = s.db.Collection(colAccounts).UpdateOne(ctx,
			bson.M{"_id": uid.String()},
			bson.M{"$set": bson.M{"emailVerified": true}})
	}
	return err
}

func (s *MongoStore) ReplaceVerifier(ctx context.Context, uid uuid.UUID, params ResetAccountParams, at time.Time) error {
	res, err := s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": uid.String()},
		bson.M{"$set": bson.M{
			"authSalt":      params.AuthSalt,
			"verifyHash":    params.VerifyHash,
			"wrapWrapKb":    params.WrapWrapKB,
			"verifierSetAt": at,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteAccount(ctx context.Context, uid uuid.UUID) error {
	res, err := s.db.Collection(colAccounts).DeleteOne(ctx, bson.M{"_id": uid.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	// No multi-document transactions here; the cascade is a sequence of
	// per-collection deletes, matching the per-row atomicity contract.
	byUID := bson.M{"uid": uid.String()}
	for _, col := range []string{colEmails, colTokens, colDevices, colSigninCodes, colSecurityEvents} {
		if _, err := s.db.Collection(col).DeleteMany(ctx, byUID); err != nil {
			return err
		}
	}
	_, err = s.db.Collection(colUnblockCodes).DeleteOne(ctx, bson.M{"_id": uid.String()})
	return err
}

func (s *MongoStore) insertToken(ctx context.Context, doc mongoToken) error {
	_, err := s.db.Collection(colTokens).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrTokenIDTaken
	}
	return err
}

func (s *MongoStore) findToken(ctx context.Context, id string, kind TokenKind) (*mongoToken, error) {
	var doc mongoToken
	err := s.db.Collection(colTokens).FindOne(ctx, bson.M{"_id": id, "kind": kind}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *MongoStore) deleteTokenDoc(ctx context.Context, id string, kind TokenKind) error {
	_, err := s.db.Collection(colTokens).DeleteOne(ctx, bson.M{"_id": id, "kind": kind})
	return err
}

func (s *MongoStore) CreateSessionToken(ctx context.Context, tok *SessionToken) error {
	return s.insertToken(ctx, mongoToken{
		ID:               tok.ID,
		Kind:             KindSessionToken,
		UID:              tok.UID.String(),
		CreatedAt:        tok.CreatedAt,
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

func (s *MongoStore) sessionFromDoc(ctx context.Context, doc *mongoToken) (*SessionToken, error) {
	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	tok := &SessionToken{
		ID:               doc.ID,
		UID:              uid,
		Email:            doc.Email,
		CreatedAt:        doc.CreatedAt,
		UABrowser:        doc.UABrowser,
		UABrowserVersion: doc.UABrowserVersion,
		UAOS:             doc.UAOS,
		UAOSVersion:      doc.UAOSVersion,
		UADeviceType:     doc.UADeviceType,
		UAFormFactor:     doc.UAFormFactor,
		LastAccessAt:     doc.LastAccessAt,
		Location:         doc.Location,
		MustVerify:       doc.MustVerify,
	}

	var dev mongoDevice
	err = s.db.Collection(colDevices).FindOne(ctx, bson.M{"sessionTokenId": doc.ID}).Decode(&dev)
	if err == nil {
		if deviceID, perr := uuid.Parse(dev.DeviceID); perr == nil {
			tok.DeviceID = deviceID
		}
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	return tok, nil
}

func (s *MongoStore) SessionToken(ctx context.Context, id string) (*SessionToken, error) {
	doc, err := s.findToken(ctx, id, KindSessionToken)
	if err != nil {
		return nil, err
	}
	return s.sessionFromDoc(ctx, doc)
}

func (s *MongoStore) SessionTokens(ctx context.Context, uid uuid.UUID) ([]*SessionToken, error) {
	cursor, err := s.db.Collection(colTokens).Find(ctx,
		bson.M{"uid": uid.String(), "kind": KindSessionToken},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tokens []*SessionToken
	for cursor.Next(ctx) {
		var doc mongoToken
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		tok, err := s.sessionFromDoc(ctx, &doc)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, cursor.Err()
}

func (s *MongoStore) DeleteSessionToken(ctx context.Context, id string) error {
	return s.deleteTokenDoc(ctx, id, KindSessionToken)
}

func (s *MongoStore) CreateKeyFetchToken(ctx context.Context, tok *KeyFetchToken) error {
	return s.insertToken(ctx, mongoToken{
		ID:            tok.ID,
		Kind:          KindKeyFetchToken,
		UID:           tok.UID.String(),
		CreatedAt:     tok.CreatedAt,
		WrapKB:        tok.WrapKB,
		EmailVerified: tok.EmailVerified,
	})
}

func (s *MongoStore) KeyFetchToken(ctx context.Context, id string) (*KeyFetchToken, error) {
	doc, err := s.findToken(ctx, id, KindKeyFetchToken)
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	return &KeyFetchToken{
		ID:            doc.ID,
		UID:           uid,
		WrapKB:        doc.WrapKB,
		EmailVerified: doc.EmailVerified,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

func (s *MongoStore) DeleteKeyFetchToken(ctx context.Context, id string) error {
	return s.deleteTokenDoc(ctx, id, KindKeyFetchToken)
}

func (s *MongoStore) CreatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	return s.insertToken(ctx, mongoToken{
		ID:        tok.ID,
		Kind:      KindPasswordForgotToken,
		UID:       tok.UID.String(),
		CreatedAt: tok.CreatedAt,
		Email:     tok.Email,
		PassCode:  tok.PassCode,
		Tries:     tok.Tries,
	})
}

func (s *MongoStore) PasswordForgotToken(ctx context.Context, id string) (*PasswordForgotToken, error) {
	doc, err := s.findToken(ctx, id, KindPasswordForgotToken)
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	return &PasswordForgotToken{
		ID:        doc.ID,
		UID:       uid,
		Email:     doc.Email,
		PassCode:  doc.PassCode,
		Tries:     doc.Tries,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *MongoStore) UpdatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	res, err := s.db.Collection(colTokens).UpdateOne(ctx,
		bson.M{"_id": tok.ID, "kind": KindPasswordForgotToken},
		bson.M{"$set": bson.M{"tries": tok.Tries}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeletePasswordForgotToken(ctx context.Context, id string) error {
	return s.deleteTokenDoc(ctx, id, KindPasswordForgotToken)
}

func (s *MongoStore) CreateAccountResetToken(ctx context.Context, tok *AccountResetToken) error {
	return s.insertToken(ctx, mongoToken{
		ID:        tok.ID,
		Kind:      KindAccountResetToken,
		UID:       tok.UID.String(),
		CreatedAt: tok.CreatedAt,
	})
}

func (s *MongoStore) AccountResetToken(ctx context.Context, id string) (*AccountResetToken, error) {
	doc, err := s.findToken(ctx, id, KindAccountResetToken)
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	return &AccountResetToken{ID: doc.ID, UID: uid, CreatedAt: doc.CreatedAt}, nil
}

func (s *MongoStore) DeleteAccountResetToken(ctx context.Context, id string) error {
	return s.deleteTokenDoc(ctx, id, KindAccountResetToken)
}

func (s *MongoStore) DeleteAccountTokens(ctx context.Context, uid uuid.UUID) error {
	_, err := s.db.Collection(colTokens).DeleteMany(ctx, bson.M{"uid": uid.String()})
	return err
}

func (s *MongoStore) DeleteExpiredSessionTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	bound := s.db.Collection(colDevices).Distinct(ctx, "sessionTokenId", bson.M{})
	if err := bound.Err(); err != nil {
		return 0, err
	}
	var boundIDs []string
	if err := bound.Decode(&boundIDs); err != nil {
		return 0, err
	}

	res, err := s.db.Collection(colTokens).DeleteMany(ctx, bson.M{
		"kind":      KindSessionToken,
		"createdAt": bson.M{"$lt": cutoff},
		"_id":       bson.M{"$nin": boundIDs},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func deviceFromDoc(doc mongoDevice) (*Device, error) {
	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	deviceID, err := uuid.Parse(doc.DeviceID)
	if err != nil {
		return nil, err
	}
	return &Device{
		ID:             deviceID,
		UID:            uid,
		SessionTokenID: doc.SessionTokenID,
		Name:           doc.Name,
		Type:           DeviceType(doc.Type),
		PushCallback:   doc.PushCallback,
		PushPublicKey:  doc.PushPublicKey,
		PushAuthKey:    doc.PushAuthKey,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

func (s *MongoStore) CreateDevice(ctx context.Context, dev *Device) error {
	_, err := s.db.Collection(colDevices).InsertOne(ctx, mongoDevice{
		UID:            dev.UID.String(),
		DeviceID:       dev.ID.String(),
		SessionTokenID: dev.SessionTokenID,
		Name:           dev.Name,
		Type:           string(dev.Type),
		PushCallback:   dev.PushCallback,
		PushPublicKey:  dev.PushPublicKey,
		PushAuthKey:    dev.PushAuthKey,
		CreatedAt:      dev.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return s.boundDeviceError(ctx, dev.SessionTokenID)
	}
	return err
}

func (s *MongoStore) boundDeviceError(ctx context.Context, sessionTokenID string) error {
	var doc mongoDevice
	err := s.db.Collection(colDevices).FindOne(ctx, bson.M{"sessionTokenId": sessionTokenID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &BoundDeviceError{}
		}
		return err
	}
	deviceID, err := uuid.Parse(doc.DeviceID)
	if err != nil {
		return &BoundDeviceError{}
	}
	return &BoundDeviceError{DeviceID: deviceID}
}

func (s *MongoStore) Device(ctx context.Context, uid, deviceID uuid.UUID) (*Device, error) {
	var doc mongoDevice
	err := s.db.Collection(colDevices).FindOne(ctx,
		bson.M{"uid": uid.String(), "deviceId": deviceID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return deviceFromDoc(doc)
}

func (s *MongoStore) UpdateDevice(ctx context.Context, dev *Device) error {
	res, err := s.db.Collection(colDevices).UpdateOne(ctx,
		bson.M{"uid": dev.UID.String(), "deviceId": dev.ID.String()},
		bson.M{"$set": bson.M{
			"sessionTokenId": dev.SessionTokenID,
			"name":           dev.Name,
			"type":           string(dev.Type),
			"pushCallback":   dev.PushCallback,
			"pushPublicKey":  dev.PushPublicKey,
			"pushAuthKey":    dev.PushAuthKey,
		}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return s.boundDeviceError(ctx, dev.SessionTokenID)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteDevice(ctx context.Context, uid, deviceID uuid.UUID) error {
	res, err := s.db.Collection(colDevices).DeleteOne(ctx,
		bson.M{"uid": uid.String(), "deviceId": deviceID.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteDeviceBySessionToken(ctx context.Context, sessionTokenID string) error {
	_, err := s.db.Collection(colDevices).DeleteMany(ctx, bson.M{"sessionTokenId": sessionTokenID})
	return err
}

func (s *MongoStore) DeleteAccountDevices(ctx context.Context, uid uuid.UUID) error {
	_, err := s.db.Collection(colDevices).DeleteMany(ctx, bson.M{"uid": uid.String()})
	return err
}

func (s *MongoStore) Devices(ctx context.Context, uid uuid.UUID) ([]*Device, error) {
	cursor, err := s.db.Collection(colDevices).Find(ctx, bson.M{"uid": uid.String()},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "deviceId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var devices []*Device
	for cursor.Next(ctx) {
		var doc mongoDevice
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		dev, err := deviceFromDoc(doc)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, cursor.Err()
}

func (s *MongoStore) ReplaceUnblockCode(ctx context.Context, code *UnblockCode) error {
	_, err := s.db.Collection(colUnblockCodes).ReplaceOne(ctx,
		bson.M{"_id": code.UID.String()},
		mongoUnblockCode{
			UID:       code.UID.String(),
			CodeHash:  code.CodeHash,
			CreatedAt: code.CreatedAt,
		},
		options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) ConsumeUnblockCode(ctx context.Context, uid uuid.UUID, codeHash string, notBefore time.Time) error {
	err := s.db.Collection(colUnblockCodes).FindOneAndDelete(ctx, bson.M{
		"_id":       uid.String(),
		"codeHash":  codeHash,
		"createdAt": bson.M{"$gte": notBefore},
	}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *MongoStore) CreateSigninCode(ctx context.Context, code *SigninCode) error {
	doc := mongoSigninCode{
		Code:      code.Code,
		UID:       code.UID.String(),
		CreatedAt: code.CreatedAt,
	}
	if code.FlowID != uuid.Nil {
		doc.FlowID = code.FlowID.String()
	}
	_, err := s.db.Collection(colSigninCodes).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSigninCodeTaken
	}
	return err
}

func (s *MongoStore) ConsumeSigninCode(ctx context.Context, code string, notBefore time.Time) (*SigninCode, error) {
	var doc mongoSigninCode
	err := s.db.Collection(colSigninCodes).FindOneAndDelete(ctx, bson.M{
		"_id":       code,
		"createdAt": bson.M{"$gte": notBefore},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	uid, err := uuid.Parse(doc.UID)
	if err != nil {
		return nil, err
	}
	row := &SigninCode{Code: doc.Code, UID: uid, CreatedAt: doc.CreatedAt}
	if doc.FlowID != "" {
		if flowID, perr := uuid.Parse(doc.FlowID); perr == nil {
			row.FlowID = flowID
		}
	}
	return row, nil
}

func (s *MongoStore) CreateSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	_, err := s.db.Collection(colSecurityEvents).InsertOne(ctx, mongoSecurityEvent{
		ID:        event.ID.String(),
		UID:       event.UID.String(),
		Name:      event.Name,
		IP:        event.IP,
		TokenID:   event.TokenID,
		Verified:  event.Verified,
		CreatedAt: event.CreatedAt,
	})
	return err
}

func (s *MongoStore) SecurityEvents(ctx context.Context, uid uuid.UUID, limit int) ([]*SecurityEvent, error) {
	cursor, err := s.db.Collection(colSecurityEvents).Find(ctx, bson.M{"uid": uid.String()},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*SecurityEvent
	for cursor.Next(ctx) {
		var doc mongoSecurityEvent
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, err
		}
		eventUID, err := uuid.Parse(doc.UID)
		if err != nil {
			return nil, err
		}
		events = append(events, &SecurityEvent{
			ID:        id,
			UID:       eventUID,
			Name:      doc.Name,
			IP:        doc.IP,
			TokenID:   doc.TokenID,
			Verified:  doc.Verified,
			CreatedAt: doc.CreatedAt,
		})
	}
	return events, cursor.Err()
}
