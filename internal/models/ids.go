package models

// CancelID names a logical in-flight operation for cancellation.
type CancelID string

// Cancellation identities.
const (
	IDReachability       CancelID = "reachability"
	IDSDKStatus          CancelID = "sdk_status"
	IDDeepLinks          CancelID = "deep_links"
	IDDeepLinkTimer      CancelID = "deep_link_timer"
	IDDeepLinkActivation CancelID = "deep_link_activation"
	IDLaunchActivation   CancelID = "launch_activation"
	IDSigningIn          CancelID = "signing_in"
	IDSigningUp          CancelID = "signing_up"
	IDVerifying          CancelID = "verifying"
	IDResendingCode      CancelID = "resending_code"
	IDDriverActivation   CancelID = "driver_activation"
	IDRefreshingVisits   CancelID = "refreshing_visits"
	IDRefreshingHistory  CancelID = "refreshing_history"
	IDRefreshingPlaces   CancelID = "refreshing_places"
	IDRefreshingProfile  CancelID = "refreshing_profile"
	IDReauthenticating   CancelID = "reauthenticating"
	IDCreatingPlace      CancelID = "creating_place"
	IDPersisting         CancelID = "persisting"
)

// RefreshID is the identity of the refresh for t.
func RefreshID(t RefreshTarget) CancelID {
	switch t {
	case RefreshVisitsTarget:
		return IDRefreshingVisits
	case RefreshHistoryTarget:
		return IDRefreshingHistory
	case RefreshPlacesTarget:
		return IDRefreshingPlaces
	case RefreshProfileTarget:
		return IDRefreshingProfile
	}
	return CancelID("refreshing_" + string(t))
}

// MainIDs are the identities owned by the main flow; they are cancelled on sign-out.
var MainIDs = []CancelID{
	IDRefreshingVisits, IDRefreshingHistory, IDRefreshingPlaces, IDRefreshingProfile,
	IDReauthenticating, IDCreatingPlace,
}

// OrderOperationID scopes a complete or cancel request to one order.
type OrderOperationID struct {
	VisitID string
	OrderID string
}
