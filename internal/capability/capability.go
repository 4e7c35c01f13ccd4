// Package capability declares the external collaborators the state machine calls.
//
// Implementations are injected once through Env and are never mutated by the
// reducers. Blocking calls take a context and return a Go error; reducers wrap
// results into models.Result before feeding them back as actions. Streaming
// subscriptions block until their context is cancelled.
package capability

import (
	"context"
	"time"

	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

// Auth signs drivers in and creates accounts.
type Auth interface {
	SignIn(ctx context.Context, email models.Email, password models.Password) (models.PublishableKey, error)
	SignUp(ctx context.Context, name string, email models.Email, password models.Password) (models.SignUpOutcome, error)
	VerifyEmail(ctx context.Context, email models.Email, password models.Password, code models.VerificationCode) (models.PublishableKey, error)
	ResendVerificationCode(ctx context.Context, email models.Email) error
	RefreshToken(ctx context.Context, key models.PublishableKey, driverID models.DriverID) (models.Token, error)
}

// TrackingSDK is the on-device location tracking SDK.
type TrackingSDK interface {
	CheckTrackability(ctx context.Context) models.Trackability
	Activate(ctx context.Context, key models.PublishableKey) models.SDKStatus
	SetDriverID(ctx context.Context, driverID models.DriverID)
	SubscribeToStatusUpdates(ctx context.Context, send func(models.SDKStatus))
	StartTracking(ctx context.Context)
	StopTracking(ctx context.Context)
	AddGeotag(ctx context.Context, tag models.Geotag)
	RequestLocationPermission(ctx context.Context)
	RequestMotionPermission(ctx context.Context)
	RequestLocationAlways(ctx context.Context)
}

// Credentials authorise remote data calls.
type Credentials struct {
	Key      models.PublishableKey
	DriverID models.DriverID
	Token    models.Token
}

// RemoteData is the backend API used by the main flow.
type RemoteData interface {
	Visits(ctx context.Context, c Credentials) ([]models.Visit, error)
	History(ctx context.Context, c Credentials) (models.History, error)
	Places(ctx context.Context, c Credentials) ([]models.Place, error)
	Profile(ctx context.Context, c Credentials) (models.Profile, error)
	CompleteOrder(ctx context.Context, c Credentials, visitID, orderID string) error
	CancelOrder(ctx context.Context, c Credentials, visitID, orderID string) error
	CreatePlace(ctx context.Context, c Credentials, p models.Place) (models.Place, error)
}

// DeepLinks delivers parsed sign-in links.
type DeepLinks interface {
	Subscribe(ctx context.Context, send func(models.DeepLink))
	ContinueUserActivity(ctx context.Context, url string)
}

// Persistence stores the StorageState snapshot.
type Persistence interface {
	SaveState(ctx context.Context, s models.StorageState) error
	LoadState(ctx context.Context) (optic.Option[models.StorageState], error)
	ClearState(ctx context.Context) error
}

// Breadcrumb is one entry of the diagnostics trail.
type Breadcrumb struct {
	ID      string
	Kind    string
	Message string
	Data    map[string]string
	Time    time.Time
}

// Incident is a captured error worth reporting.
type Incident struct {
	ID      string
	Message string
	Error   models.APIError
	Action  string
	Time    time.Time
}

// Diagnostics is the external reporting sink.
type Diagnostics interface {
	Capture(ctx context.Context, incident Incident)
	AddBreadcrumb(ctx context.Context, b Breadcrumb)
	UpdateUser(ctx context.Context, id string)
}

// Network reports reachability changes.
type Network interface {
	Subscribe(ctx context.Context, send func(models.Reachability))
}

// Clock is the time source and timer primitive. Every blocks until ctx is
// done and calls tick once per interval.
type Clock interface {
	Now() time.Time
	Every(ctx context.Context, interval time.Duration, tick func())
}

// Env bundles every capability handed to the reducers.
type Env struct {
	Auth        Auth
	SDK         TrackingSDK
	Remote      RemoteData
	DeepLinks   DeepLinks
	Persistence Persistence
	Diagnostics Diagnostics
	Network     Network
	Clock       Clock

	// DeepLinkWindow is the settle window of the deep-link race.
	DeepLinkWindow time.Duration
}

// DefaultDeepLinkWindow is used when Env.DeepLinkWindow is zero.
const DefaultDeepLinkWindow = 5 * time.Second

// Window returns the configured deep-link window.
func (e Env) Window() time.Duration {
	if e.DeepLinkWindow <= 0 {
		return DefaultDeepLinkWindow
	}
	return e.DeepLinkWindow
}
