package models

// DeepLink is a resolved sign-in link carrying an account and driver.
type DeepLink struct {
	Key      PublishableKey `json:"publishable_key"`
	DriverID DriverID       `json:"driver_id"`
}

// ProcessingDeepLink is the progress of an in-flight deep link on a screen.
// A nil value means no link is being processed.
type ProcessingDeepLink interface {
	isProcessingDeepLink()
}

// WaitingForDeepLink means a link was opened but not yet resolved.
type WaitingForDeepLink struct{}

// WaitingForTimer means the link is resolved and the settle timer is running.
type WaitingForTimer struct {
	Link DeepLink
}

// WaitingForSDKActivation means the SDK is being activated with the link.
type WaitingForSDKActivation struct {
	Link DeepLink
}

func (WaitingForDeepLink) isProcessingDeepLink()      {}
func (WaitingForTimer) isProcessingDeepLink()         {}
func (WaitingForSDKActivation) isProcessingDeepLink() {}
