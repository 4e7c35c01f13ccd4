package models

import (
	"encoding/json"
	"fmt"
)

// StorageVersion is written into every snapshot. Older versions are read with
// missing fields left absent.
const StorageVersion = 1

// Screen identifies the persisted flow.
type Screen string

// Persisted screens.
const (
	ScreenSignUp   Screen = "signUp"
	ScreenSignIn   Screen = "signIn"
	ScreenDriverID Screen = "driverId"
	ScreenMain     Screen = "main"
)

// StorageState is the minimal state that survives a process restart.
// It is comparable with == so changes can be detected cheaply.
type StorageState struct {
	Flow                    StorageFlow
	LocationAlwaysRequested bool
}

// StorageFlow is the persisted part of a flow.
type StorageFlow interface {
	Screen() Screen
}

// SignUpStorage is a sign-up in progress.
type SignUpStorage struct {
	Email                Email
	AwaitingVerification bool
}

// SignInStorage is a sign-in in progress.
type SignInStorage struct {
	Email Email
}

// DriverIDStorage is a known account waiting for a driver id.
type DriverIDStorage struct {
	Key      PublishableKey
	DriverID DriverID
}

// MainStorage is a signed-in driver.
type MainStorage struct {
	Key      PublishableKey
	DriverID DriverID
	Tab      Tab
}

func (SignUpStorage) Screen() Screen   { return ScreenSignUp }
func (SignInStorage) Screen() Screen   { return ScreenSignIn }
func (DriverIDStorage) Screen() Screen { return ScreenDriverID }
func (MainStorage) Screen() Screen     { return ScreenMain }

// ErrUnknownScreen is returned when a snapshot names a screen this build does not know.
type ErrUnknownScreen struct {
	Screen Screen
}

func (e ErrUnknownScreen) Error() string {
	return fmt.Sprintf("unknown persisted screen %q", e.Screen)
}

type storageRecord struct {
	Version                 int            `json:"version"`
	Screen                  Screen         `json:"screen"`
	Email                   Email          `json:"email,omitempty"`
	AwaitingVerification    bool           `json:"awaiting_verification,omitempty"`
	PublishableKey          PublishableKey `json:"publishable_key,omitempty"`
	DriverID                DriverID       `json:"driver_id,omitempty"`
	Tab                     Tab            `json:"tab,omitempty"`
	LocationAlwaysRequested bool           `json:"location_always_requested,omitempty"`
}

// MarshalJSON writes the tagged, versioned record.
func (s StorageState) MarshalJSON() ([]byte, error) {
	rec := storageRecord{Version: StorageVersion, LocationAlwaysRequested: s.LocationAlwaysRequested}
	switch f := s.Flow.(type) {
	case SignUpStorage:
		rec.Screen = ScreenSignUp
		rec.Email = f.Email
		rec.AwaitingVerification = f.AwaitingVerification
	case SignInStorage:
		rec.Screen = ScreenSignIn
		rec.Email = f.Email
	case DriverIDStorage:
		rec.Screen = ScreenDriverID
		rec.PublishableKey = f.Key
		rec.DriverID = f.DriverID
	case MainStorage:
		rec.Screen = ScreenMain
		rec.PublishableKey = f.Key
		rec.DriverID = f.DriverID
		rec.Tab = f.Tab
	default:
		return nil, fmt.Errorf("storage state has no flow")
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads any version of the record. Unknown fields are ignored and
// missing ones are left empty.
func (s *StorageState) UnmarshalJSON(data []byte) error {
	var rec storageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	out := StorageState{LocationAlwaysRequested: rec.LocationAlwaysRequested}
	switch rec.Screen {
	case ScreenSignUp:
		out.Flow = SignUpStorage{Email: rec.Email, AwaitingVerification: rec.AwaitingVerification}
	case ScreenSignIn:
		out.Flow = SignInStorage{Email: rec.Email}
	case ScreenDriverID:
		out.Flow = DriverIDStorage{Key: rec.PublishableKey, DriverID: rec.DriverID}
	case ScreenMain:
		tab := rec.Tab
		if !tab.Valid() {
			tab = TabVisits
		}
		out.Flow = MainStorage{Key: rec.PublishableKey, DriverID: rec.DriverID, Tab: tab}
	default:
		return ErrUnknownScreen{Screen: rec.Screen}
	}
	*s = out
	return nil
}

// EncodeStorage serialises a snapshot for a persistence backend.
func EncodeStorage(s StorageState) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeStorage parses a snapshot written by EncodeStorage.
func DecodeStorage(data []byte) (StorageState, error) {
	var s StorageState
	if err := json.Unmarshal(data, &s); err != nil {
		return StorageState{}, fmt.Errorf("failed to decode storage state: %w", err)
	}
	return s, nil
}
