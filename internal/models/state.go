package models

import "github.com/BTreeMap/FieldOps/internal/optic"

// AppState is the whole application state. Exactly one variant is active.
type AppState interface {
	isAppState()
}

// Created is the state before the OS reports that launching finished.
type Created struct{}

// Launching covers restoring persisted state and bringing up the SDK.
type Launching struct {
	Phase        LaunchPhase
	Reachability Reachability
	// PendingDeepLink holds a link resolved before any flow could receive it.
	PendingDeepLink optic.Option[DeepLink]
}

// Operational is the steady state with a user-facing flow.
type Operational struct {
	Flow         Flow
	SDK          SDKStatus
	Reachability Reachability
	// LocationAlwaysRequested survives restarts so the prompt is asked once.
	LocationAlwaysRequested bool
}

func (Created) isAppState()     {}
func (Launching) isAppState()   {}
func (Operational) isAppState() {}

// LaunchPhase is the sub-state of Launching.
type LaunchPhase interface {
	isLaunchPhase()
}

// RestoringState waits for both the trackability check and the snapshot load.
type RestoringState struct {
	Loaded       bool
	Storage      optic.Option[StorageState]
	Checked      bool
	Trackability Trackability
}

// Ready reports whether both launch inputs have arrived.
func (r RestoringState) Ready() bool { return r.Loaded && r.Checked }

// LaunchingSDK re-activates the SDK with the key from a restored main snapshot.
type LaunchingSDK struct {
	Storage StorageState
}

// Starting has an SDK status and waits for the startup signal.
type Starting struct {
	Storage optic.Option[StorageState]
	SDK     SDKStatus
}

func (RestoringState) isLaunchPhase() {}
func (LaunchingSDK) isLaunchPhase()   {}
func (Starting) isLaunchPhase()       {}

// Flow is the screen-level state inside Operational.
type Flow interface {
	isFlow()
}

// FirstRun is shown when nothing was persisted.
type FirstRun struct {
	DeepLink ProcessingDeepLink
}

// SignUp is the account creation flow.
type SignUp struct {
	Step     SignUpStep
	Alert    optic.Option[Alert]
	DeepLink ProcessingDeepLink
}

// SignIn is the credential entry flow.
type SignIn struct {
	Status   SignInStatus
	Alert    optic.Option[Alert]
	DeepLink ProcessingDeepLink
}

// DriverIDEntry asks for the driver id after the account is known.
type DriverIDEntry struct {
	Key        PublishableKey
	DriverID   DriverID
	Activating bool
	Alert      optic.Option[Alert]
	DeepLink   ProcessingDeepLink
}

// Main is the operational screen set for a signed-in driver.
type Main struct {
	Key      PublishableKey
	DriverID DriverID
	Token    optic.Option[Token]
	Tab      Tab

	Visits        []Visit
	SelectedVisit optic.Option[string]
	Places        []Place
	History       optic.Option[History]
	Profile       optic.Option[Profile]

	Refreshing       RefreshSet
	Reauthenticating bool
	// RetryAfterReauth remembers the refreshes that failed with an expired token.
	RetryAfterReauth RefreshSet
	// Reissued marks refreshes sent right after a re-authentication. Another
	// expired token on one of them is reported instead of retried.
	Reissued      RefreshSet
	CreatingPlace bool

	Alert    optic.Option[Alert]
	DeepLink ProcessingDeepLink
}

// NoMotionServices is the terminal state for devices that cannot be tracked.
type NoMotionServices struct {
	Reason LockReason
}

func (FirstRun) isFlow()         {}
func (SignUp) isFlow()           {}
func (SignIn) isFlow()           {}
func (DriverIDEntry) isFlow()    {}
func (Main) isFlow()             {}
func (NoMotionServices) isFlow() {}

// SignUpStep is the sub-state of SignUp.
type SignUpStep interface {
	isSignUpStep()
}

// SignUpForm collects the account details.
type SignUpForm struct {
	Name       string
	Email      Email
	Password   Password
	Submitting bool
}

// SignUpVerification waits for the mailed code.
type SignUpVerification struct {
	Email     Email
	Password  Password
	Code      VerificationCode
	Verifying bool
	Resending bool
}

func (SignUpForm) isSignUpStep()         {}
func (SignUpVerification) isSignUpStep() {}

// SignInStatus is the sub-state of SignIn.
type SignInStatus interface {
	isSignInStatus()
}

// EditingCredentials lets the user type.
type EditingCredentials struct {
	Email    Email
	Password Password
}

// SigningIn has a request in flight.
type SigningIn struct {
	Email    Email
	Password Password
}

func (EditingCredentials) isSignInStatus() {}
func (SigningIn) isSignInStatus()          {}

// RefreshTarget names one of the main flow's remote collections.
type RefreshTarget string

// Refresh targets.
const (
	RefreshVisitsTarget  RefreshTarget = "visits"
	RefreshHistoryTarget RefreshTarget = "history"
	RefreshPlacesTarget  RefreshTarget = "places"
	RefreshProfileTarget RefreshTarget = "profile"
)

// RefreshTargets lists every target in a stable order.
var RefreshTargets = []RefreshTarget{RefreshVisitsTarget, RefreshHistoryTarget, RefreshPlacesTarget, RefreshProfileTarget}

// RefreshSet is a set of refresh targets.
type RefreshSet struct {
	Visits  bool
	History bool
	Places  bool
	Profile bool
}

// Has reports whether t is in the set.
func (s RefreshSet) Has(t RefreshTarget) bool {
	switch t {
	case RefreshVisitsTarget:
		return s.Visits
	case RefreshHistoryTarget:
		return s.History
	case RefreshPlacesTarget:
		return s.Places
	case RefreshProfileTarget:
		return s.Profile
	}
	return false
}

// With returns a copy of s with t set to on.
func (s RefreshSet) With(t RefreshTarget, on bool) RefreshSet {
	switch t {
	case RefreshVisitsTarget:
		s.Visits = on
	case RefreshHistoryTarget:
		s.History = on
	case RefreshPlacesTarget:
		s.Places = on
	case RefreshProfileTarget:
		s.Profile = on
	}
	return s
}

// Empty reports whether no target is set.
func (s RefreshSet) Empty() bool { return s == RefreshSet{} }

// NewMain returns a fresh main flow for the given identity.
func NewMain(key PublishableKey, driverID DriverID) Main {
	return Main{Key: key, DriverID: driverID, Tab: TabVisits}
}

// FlowName is a short stable name for the active flow, used in logs.
func FlowName(f Flow) string {
	switch f.(type) {
	case FirstRun:
		return "first_run"
	case SignUp:
		return "sign_up"
	case SignIn:
		return "sign_in"
	case DriverIDEntry:
		return "driver_id"
	case Main:
		return "main"
	case NoMotionServices:
		return "no_motion_services"
	}
	return "none"
}

// StateName is a short stable name for the active state, used in logs and the API.
func StateName(s AppState) string {
	switch s := s.(type) {
	case Created:
		return "created"
	case Launching:
		switch s.Phase.(type) {
		case RestoringState:
			return "launching.restoring_state"
		case LaunchingSDK:
			return "launching.launching_sdk"
		case Starting:
			return "launching.starting"
		}
		return "launching"
	case Operational:
		return "operational." + FlowName(s.Flow)
	}
	return "none"
}
