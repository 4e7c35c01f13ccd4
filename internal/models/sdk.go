package models

// Reachability is the coarse network reachability of the device.
type Reachability string

// Reachability values.
const (
	ReachabilityUnknown     Reachability = "unknown"
	ReachabilityReachable   Reachability = "reachable"
	ReachabilityUnreachable Reachability = "unreachable"
)

// LockReason explains why the tracking SDK refuses to run.
type LockReason string

// Lock reasons. The device-level reasons cannot be fixed by signing in again.
const (
	LockNone               LockReason = ""
	LockBadPublishableKey  LockReason = "bad_publishable_key"
	LockNoMotionServices   LockReason = "no_motion_services"
	LockMotionRestricted   LockReason = "motion_restricted"
	LockLocationRestricted LockReason = "location_restricted"
)

// DeviceLevel reports whether the lock is a property of the device rather
// than of the account.
func (r LockReason) DeviceLevel() bool {
	switch r {
	case LockNoMotionServices, LockMotionRestricted, LockLocationRestricted:
		return true
	}
	return false
}

// PermissionStatus is the OS authorization state for a permission.
type PermissionStatus string

// Permission statuses.
const (
	PermissionNotDetermined PermissionStatus = "not_determined"
	PermissionGranted       PermissionStatus = "granted"
	PermissionDenied        PermissionStatus = "denied"
)

// Permissions groups the permissions the tracking SDK needs.
type Permissions struct {
	Location PermissionStatus
	Motion   PermissionStatus
}

// SDKStatus is the last status reported by the tracking SDK.
type SDKStatus struct {
	Locked      bool
	Reason      LockReason
	Running     bool
	Permissions Permissions
}

// Unlocked reports whether the SDK accepted its publishable key.
func (s SDKStatus) Unlocked() bool { return !s.Locked }

// Trackability is the result of the device capability check done at launch.
type Trackability struct {
	Trackable bool
	Reason    LockReason
}
