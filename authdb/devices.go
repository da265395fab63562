package authdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CreateDevice registers a new device bound to the session token and
// returns it merged with the session's current telemetry for immediate
// display. Fails with ErrBadSessionToken if the session token does not
// exist or is not owned by the account, and with ErrDeviceConflict
// (carrying the bound device's id) if the session token already has a
// different device. A bound session token is a hard 1:1 constraint, never
// an overwrite.
func (db *DB) CreateDevice(ctx context.Context, uid uuid.UUID, sessionTokenID string, info DeviceInfo) (*Device, error) {
	tok, err := db.sessionForDevice(ctx, uid, sessionTokenID)
	if err != nil {
		return nil, err
	}

	dev := &Device{
		ID:             info.ID,
		UID:            uid,
		SessionTokenID: sessionTokenID,
		Type:           DeviceUnknown,
		CreatedAt:      time.Now().UTC(),
	}
	if dev.ID == uuid.Nil {
		dev.ID = uuid.New()
	}
	applyDeviceInfo(dev, info)

	if err := db.store.CreateDevice(ctx, dev); err != nil {
		var bound *BoundDeviceError
		if errors.As(err, &bound) {
			return nil, deviceConflictError(bound.DeviceID)
		}
		return nil, err
	}

	db.mergeDeviceTelemetry(ctx, dev, tok)
	return dev, nil
}

// UpdateDevice applies a partial update to the device named by info.ID:
// fields present in info replace the stored values, push fields may be
// cleared by supplying an empty value. The same existence and conflict
// checks as CreateDevice apply, including moving the device onto a session
// token that already has a different device.
func (db *DB) UpdateDevice(ctx context.Context, uid uuid.UUID, sessionTokenID string, info DeviceInfo) (*Device, error) {
	tok, err := db.sessionForDevice(ctx, uid, sessionTokenID)
	if err != nil {
		return nil, err
	}

	dev, err := db.store.Device(ctx, uid, info.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadSessionToken
		}
		return nil, err
	}

	if tok.DeviceID != uuid.Nil && tok.DeviceID != dev.ID {
		return nil, deviceConflictError(tok.DeviceID)
	}

	dev.SessionTokenID = sessionTokenID
	applyDeviceInfo(dev, info)

	if err := db.store.UpdateDevice(ctx, dev); err != nil {
		var bound *BoundDeviceError
		if errors.As(err, &bound) {
			return nil, deviceConflictError(bound.DeviceID)
		}
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadSessionToken
		}
		return nil, err
	}

	db.mergeDeviceTelemetry(ctx, dev, tok)
	return dev, nil
}

// DeleteDevice removes the device row only; the bound session token stays
// alive. Fails with ErrBadSessionToken if the account has no such device.
func (db *DB) DeleteDevice(ctx context.Context, uid, deviceID uuid.UUID) error {
	if err := db.store.DeleteDevice(ctx, uid, deviceID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrBadSessionToken
		}
		return err
	}
	return nil
}

// Devices returns all devices for the account, each merged with its bound
// session's telemetry, last-access time, and location. The merge uses the
// same cache-overlaid view as Sessions, so recently refreshed telemetry
// shows up here too.
func (db *DB) Devices(ctx context.Context, uid uuid.UUID) ([]*Device, error) {
	devices, err := db.store.Devices(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return devices, nil
	}

	sessions, err := db.Sessions(ctx, uid)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*SessionToken, len(sessions))
	for _, tok := range sessions {
		byID[tok.ID] = tok
	}

	for _, dev := range devices {
		if tok, ok := byID[dev.SessionTokenID]; ok {
			copyTelemetry(dev, tok)
		}
	}
	return devices, nil
}

// sessionForDevice loads the session token a device operation targets and
// enforces ownership. Both failure modes collapse into errno 123.
func (db *DB) sessionForDevice(ctx context.Context, uid uuid.UUID, sessionTokenID string) (*SessionToken, error) {
	tok, err := db.store.SessionToken(ctx, sessionTokenID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadSessionToken
		}
		return nil, err
	}
	if tok.UID != uid {
		return nil, ErrBadSessionToken
	}
	return tok, nil
}

// applyDeviceInfo folds a partial update into the device row. Nil fields
// keep the stored value; empty strings clear push fields.
func applyDeviceInfo(dev *Device, info DeviceInfo) {
	if info.Name != nil {
		dev.Name = *info.Name
	}
	if info.Type != nil {
		dev.Type = *info.Type
	}
	if info.PushCallback != nil {
		dev.PushCallback = *info.PushCallback
	}
	if info.PushPublicKey != nil {
		dev.PushPublicKey = *info.PushPublicKey
	}
	if info.PushAuthKey != nil {
		dev.PushAuthKey = *info.PushAuthKey
	}
}

// mergeDeviceTelemetry overlays the session's telemetry onto the device,
// preferring the cached view when one exists.
func (db *DB) mergeDeviceTelemetry(ctx context.Context, dev *Device, tok *SessionToken) {
	merged := *tok
	for _, entry := range db.readCachedSessions(ctx, tok.UID) {
		if entry.ID == tok.ID {
			applyCached(&merged, entry)
			break
		}
	}
	copyTelemetry(dev, &merged)
}

func copyTelemetry(dev *Device, tok *SessionToken) {
	dev.LastAccessAt = tok.LastAccessAt
	dev.UABrowser = tok.UABrowser
	dev.UABrowserVersion = tok.UABrowserVersion
	dev.UAOS = tok.UAOS
	dev.UAOSVersion = tok.UAOSVersion
	dev.UADeviceType = tok.UADeviceType
	dev.UAFormFactor = tok.UAFormFactor
	dev.Location = tok.Location
}
