package sandbox

import (
	"context"
	"sync"

	"github.com/BTreeMap/FieldOps/internal/models"
)

// SDK simulates the tracking SDK. Keys registered with AllowKey unlock it;
// anything else reports a bad publishable key.
type SDK struct {
	mu           sync.Mutex
	trackability models.Trackability
	keys         map[models.PublishableKey]bool
	deviceLock   models.LockReason
	status       models.SDKStatus
	driverID     models.DriverID
	activations  []models.PublishableKey
	geotags      []models.Geotag
	tracking     bool

	updates hub[models.SDKStatus]
}

// NewSDK returns a trackable device with no known keys.
func NewSDK() *SDK {
	return &SDK{
		trackability: models.Trackability{Trackable: true},
		keys:         make(map[models.PublishableKey]bool),
		status: models.SDKStatus{
			Locked:      true,
			Permissions: models.Permissions{Location: models.PermissionNotDetermined, Motion: models.PermissionNotDetermined},
		},
	}
}

// AllowKey makes key unlock the SDK.
func (s *SDK) AllowKey(key models.PublishableKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = true
}

// SetTrackability sets the launch-time capability check result.
func (s *SDK) SetTrackability(t models.Trackability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackability = t
}

// LockDevice makes every activation fail with a device-level reason.
func (s *SDK) LockDevice(reason models.LockReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceLock = reason
}

// Activations lists the keys Activate was called with.
func (s *SDK) Activations() []models.PublishableKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PublishableKey(nil), s.activations...)
}

// Geotags lists the recorded geotags.
func (s *SDK) Geotags() []models.Geotag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Geotag(nil), s.geotags...)
}

// Tracking reports whether tracking is started.
func (s *SDK) Tracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking
}

// DriverID returns the driver id last pushed to the SDK.
func (s *SDK) DriverID() models.DriverID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driverID
}

func (s *SDK) CheckTrackability(ctx context.Context) models.Trackability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackability
}

func (s *SDK) Activate(ctx context.Context, key models.PublishableKey) models.SDKStatus {
	s.mu.Lock()
	s.activations = append(s.activations, key)
	switch {
	case s.deviceLock != models.LockNone:
		s.status.Locked, s.status.Reason, s.status.Running = true, s.deviceLock, false
	case s.keys[key]:
		s.status.Locked, s.status.Reason, s.status.Running = false, models.LockNone, true
	default:
		s.status.Locked, s.status.Reason, s.status.Running = true, models.LockBadPublishableKey, false
	}
	st := s.status
	s.mu.Unlock()
	s.updates.publish(st)
	return st
}

func (s *SDK) SetDriverID(ctx context.Context, driverID models.DriverID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driverID = driverID
}

func (s *SDK) SubscribeToStatusUpdates(ctx context.Context, send func(models.SDKStatus)) {
	s.updates.subscribe(ctx, send)
}

func (s *SDK) StartTracking(ctx context.Context) {
	s.setTracking(true)
}

func (s *SDK) StopTracking(ctx context.Context) {
	s.setTracking(false)
}

func (s *SDK) setTracking(on bool) {
	s.mu.Lock()
	s.tracking = on
	s.status.Running = on && !s.status.Locked
	st := s.status
	s.mu.Unlock()
	s.updates.publish(st)
}

func (s *SDK) AddGeotag(ctx context.Context, tag models.Geotag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geotags = append(s.geotags, tag)
}

func (s *SDK) RequestLocationPermission(ctx context.Context) {
	s.grant(func(p *models.Permissions) { p.Location = models.PermissionGranted })
}

func (s *SDK) RequestMotionPermission(ctx context.Context) {
	s.grant(func(p *models.Permissions) { p.Motion = models.PermissionGranted })
}

// RequestLocationAlways upgrades location access; the sandbox has nothing further to model.
func (s *SDK) RequestLocationAlways(ctx context.Context) {
	s.grant(func(p *models.Permissions) { p.Location = models.PermissionGranted })
}

func (s *SDK) grant(f func(*models.Permissions)) {
	s.mu.Lock()
	f(&s.status.Permissions)
	st := s.status
	s.mu.Unlock()
	s.updates.publish(st)
}
