package models

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/FieldOps/internal/optic"
)

// Action is every event the application reacts to.
type Action interface {
	isAction()
}

// SignUpAction is the subset of actions handled by the sign-up screen.
type SignUpAction interface {
	Action
	isSignUpAction()
}

// SignInAction is the subset of actions handled by the sign-in screen.
type SignInAction interface {
	Action
	isSignInAction()
}

// DriverIDAction is the subset of actions handled by the driver id screen.
type DriverIDAction interface {
	Action
	isDriverIDAction()
}

// MainAction is the subset of actions handled by the main screens.
type MainAction interface {
	Action
	isMainAction()
}

// DeepLinkAction is the subset of actions driving the deep-link race.
type DeepLinkAction interface {
	Action
	isDeepLinkAction()
}

// Failing is implemented by completion actions that carry a capability result.
type Failing interface {
	Action
	Failed() (APIError, bool)
}

// Lifecycle and app-wide actions.
type (
	OSFinishedLaunching       struct{}
	TrackabilityChecked       struct{ Trackability Trackability }
	StateRestored             struct{ Storage optic.Option[StorageState] }
	LaunchSDKActivated        struct{ Status SDKStatus }
	StartupFinished           struct{}
	AppBecameActive           struct{}
	ReachabilityChanged       struct{ Reachability Reachability }
	SDKStatusUpdated          struct{ Status SDKStatus }
	RequestLocationPermission struct{}
	RequestMotionPermission   struct{}
	RequestLocationAlways     struct{}
	DismissAlert              struct{}
	GoToSignUp                struct{}
	GoToSignIn                struct{}
)

// Sign-up actions.
type (
	SignUpNameChanged       struct{ Name string }
	SignUpEmailChanged      struct{ Email Email }
	SignUpPasswordChanged   struct{ Password Password }
	SignUpTapped            struct{}
	SignUpCompleted         struct{ Result Result[SignUpOutcome] }
	VerificationCodeChanged struct{ Code VerificationCode }
	VerifyTapped            struct{}
	EmailVerified           struct{ Result Result[PublishableKey] }
	ResendCodeTapped        struct{}
	CodeResent              struct{ Result Result[struct{}] }
)

// Sign-in actions.
type (
	SignInEmailChanged    struct{ Email Email }
	SignInPasswordChanged struct{ Password Password }
	SignInTapped          struct{}
	CancelSignIn          struct{}
	SignedIn              struct{ Result Result[PublishableKey] }
)

// Driver id actions.
type (
	DriverIDChanged   struct{ DriverID DriverID }
	DriverIDSubmitted struct{}
	DriverActivated   struct {
		DriverID DriverID
		Status   SDKStatus
	}
)

// Main actions.
type (
	RefreshRequested struct{ Target RefreshTarget }
	VisitsUpdated    struct{ Result Result[[]Visit] }
	HistoryUpdated   struct{ Result Result[History] }
	PlacesUpdated    struct{ Result Result[[]Place] }
	ProfileUpdated   struct{ Result Result[Profile] }
	TokenRefreshed   struct{ Result Result[Token] }
	TabSelected      struct{ Tab Tab }
	VisitSelected    struct{ VisitID string }
	VisitDeselected  struct{}
	CompleteOrder    struct{ VisitID, OrderID string }
	OrderCompleted   struct {
		VisitID, OrderID string
		Result           Result[struct{}]
	}
	CancelOrder    struct{ VisitID, OrderID string }
	OrderCancelled struct {
		VisitID, OrderID string
		Result           Result[struct{}]
	}
	CreatePlace  struct{ Place Place }
	PlaceCreated struct{ Result Result[Place] }
	SignOut      struct{}
)

// Deep-link actions.
type (
	DeepLinkOpened     struct{ URL string }
	DeepLinkResolved   struct{ Link DeepLink }
	DeepLinkTimerFired struct{}
	DeepLinkActivated  struct {
		Link   DeepLink
		Status SDKStatus
	}
)

func (OSFinishedLaunching) isAction()       {}
func (TrackabilityChecked) isAction()       {}
func (StateRestored) isAction()             {}
func (LaunchSDKActivated) isAction()        {}
func (StartupFinished) isAction()           {}
func (AppBecameActive) isAction()           {}
func (ReachabilityChanged) isAction()       {}
func (SDKStatusUpdated) isAction()          {}
func (RequestLocationPermission) isAction() {}
func (RequestMotionPermission) isAction()   {}
func (RequestLocationAlways) isAction()     {}
func (DismissAlert) isAction()              {}
func (GoToSignUp) isAction()                {}
func (GoToSignIn) isAction()                {}

func (SignUpNameChanged) isAction()       {}
func (SignUpEmailChanged) isAction()      {}
func (SignUpPasswordChanged) isAction()   {}
func (SignUpTapped) isAction()            {}
func (SignUpCompleted) isAction()         {}
func (VerificationCodeChanged) isAction() {}
func (VerifyTapped) isAction()            {}
func (EmailVerified) isAction()           {}
func (ResendCodeTapped) isAction()        {}
func (CodeResent) isAction()              {}

func (SignUpNameChanged) isSignUpAction()       {}
func (SignUpEmailChanged) isSignUpAction()      {}
func (SignUpPasswordChanged) isSignUpAction()   {}
func (SignUpTapped) isSignUpAction()            {}
func (SignUpCompleted) isSignUpAction()         {}
func (VerificationCodeChanged) isSignUpAction() {}
func (VerifyTapped) isSignUpAction()            {}
func (EmailVerified) isSignUpAction()           {}
func (ResendCodeTapped) isSignUpAction()        {}
func (CodeResent) isSignUpAction()              {}

func (SignInEmailChanged) isAction()    {}
func (SignInPasswordChanged) isAction() {}
func (SignInTapped) isAction()          {}
func (CancelSignIn) isAction()          {}
func (SignedIn) isAction()              {}

func (SignInEmailChanged) isSignInAction()    {}
func (SignInPasswordChanged) isSignInAction() {}
func (SignInTapped) isSignInAction()          {}
func (CancelSignIn) isSignInAction()          {}
func (SignedIn) isSignInAction()              {}

func (DriverIDChanged) isAction()   {}
func (DriverIDSubmitted) isAction() {}
func (DriverActivated) isAction()   {}

func (DriverIDChanged) isDriverIDAction()   {}
func (DriverIDSubmitted) isDriverIDAction() {}
func (DriverActivated) isDriverIDAction()   {}

func (RefreshRequested) isAction() {}
func (VisitsUpdated) isAction()    {}
func (HistoryUpdated) isAction()   {}
func (PlacesUpdated) isAction()    {}
func (ProfileUpdated) isAction()   {}
func (TokenRefreshed) isAction()   {}
func (TabSelected) isAction()      {}
func (VisitSelected) isAction()    {}
func (VisitDeselected) isAction()  {}
func (CompleteOrder) isAction()    {}
func (OrderCompleted) isAction()   {}
func (CancelOrder) isAction()      {}
func (OrderCancelled) isAction()   {}
func (CreatePlace) isAction()      {}
func (PlaceCreated) isAction()     {}
func (SignOut) isAction()          {}

func (RefreshRequested) isMainAction() {}
func (VisitsUpdated) isMainAction()    {}
func (HistoryUpdated) isMainAction()   {}
func (PlacesUpdated) isMainAction()    {}
func (ProfileUpdated) isMainAction()   {}
func (TokenRefreshed) isMainAction()   {}
func (TabSelected) isMainAction()      {}
func (VisitSelected) isMainAction()    {}
func (VisitDeselected) isMainAction()  {}
func (CompleteOrder) isMainAction()    {}
func (OrderCompleted) isMainAction()   {}
func (CancelOrder) isMainAction()      {}
func (OrderCancelled) isMainAction()   {}
func (CreatePlace) isMainAction()      {}
func (PlaceCreated) isMainAction()     {}
func (SignOut) isMainAction()          {}

func (DeepLinkOpened) isAction()     {}
func (DeepLinkResolved) isAction()   {}
func (DeepLinkTimerFired) isAction() {}
func (DeepLinkActivated) isAction()  {}

func (DeepLinkOpened) isDeepLinkAction()     {}
func (DeepLinkResolved) isDeepLinkAction()   {}
func (DeepLinkTimerFired) isDeepLinkAction() {}
func (DeepLinkActivated) isDeepLinkAction()  {}

func (a SignUpCompleted) Failed() (APIError, bool) { return a.Result.Failure() }
func (a EmailVerified) Failed() (APIError, bool)   { return a.Result.Failure() }
func (a CodeResent) Failed() (APIError, bool)      { return a.Result.Failure() }
func (a SignedIn) Failed() (APIError, bool)        { return a.Result.Failure() }
func (a VisitsUpdated) Failed() (APIError, bool)   { return a.Result.Failure() }
func (a HistoryUpdated) Failed() (APIError, bool)  { return a.Result.Failure() }
func (a PlacesUpdated) Failed() (APIError, bool)   { return a.Result.Failure() }
func (a ProfileUpdated) Failed() (APIError, bool)  { return a.Result.Failure() }
func (a TokenRefreshed) Failed() (APIError, bool)  { return a.Result.Failure() }
func (a OrderCompleted) Failed() (APIError, bool)  { return a.Result.Failure() }
func (a OrderCancelled) Failed() (APIError, bool)  { return a.Result.Failure() }
func (a PlaceCreated) Failed() (APIError, bool)    { return a.Result.Failure() }

// ActionName returns the bare type name of a, e.g. "SignInTapped".
func ActionName(a Action) string {
	name := fmt.Sprintf("%T", a)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
