package api

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/BTreeMap/FieldOps/internal/models"
)

// ActionRequest is the body of POST /v1/actions. Type is an action name as
// reported by models.ActionName; Payload holds its fields.
type ActionRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type actionDecoder func(json.RawMessage) (models.Action, error)

func decodeAs[A models.Action](raw json.RawMessage) (models.Action, error) {
	var a A
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// inputActions are the actions a user or the OS can cause. Completion
// actions carrying capability results are produced by effects only.
var inputActions = map[string]actionDecoder{
	"OSFinishedLaunching":       decodeAs[models.OSFinishedLaunching],
	"AppBecameActive":           decodeAs[models.AppBecameActive],
	"RequestLocationPermission": decodeAs[models.RequestLocationPermission],
	"RequestMotionPermission":   decodeAs[models.RequestMotionPermission],
	"RequestLocationAlways":     decodeAs[models.RequestLocationAlways],
	"DismissAlert":              decodeAs[models.DismissAlert],
	"GoToSignUp":                decodeAs[models.GoToSignUp],
	"GoToSignIn":                decodeAs[models.GoToSignIn],

	"SignUpNameChanged":       decodeAs[models.SignUpNameChanged],
	"SignUpEmailChanged":      decodeAs[models.SignUpEmailChanged],
	"SignUpPasswordChanged":   decodeAs[models.SignUpPasswordChanged],
	"SignUpTapped":            decodeAs[models.SignUpTapped],
	"VerificationCodeChanged": decodeAs[models.VerificationCodeChanged],
	"VerifyTapped":            decodeAs[models.VerifyTapped],
	"ResendCodeTapped":        decodeAs[models.ResendCodeTapped],

	"SignInEmailChanged":    decodeAs[models.SignInEmailChanged],
	"SignInPasswordChanged": decodeAs[models.SignInPasswordChanged],
	"SignInTapped":          decodeAs[models.SignInTapped],
	"CancelSignIn":          decodeAs[models.CancelSignIn],

	"DriverIDChanged":   decodeAs[models.DriverIDChanged],
	"DriverIDSubmitted": decodeAs[models.DriverIDSubmitted],

	"RefreshRequested": decodeAs[models.RefreshRequested],
	"TabSelected":      decodeAs[models.TabSelected],
	"VisitSelected":    decodeAs[models.VisitSelected],
	"VisitDeselected":  decodeAs[models.VisitDeselected],
	"CompleteOrder":    decodeAs[models.CompleteOrder],
	"CancelOrder":      decodeAs[models.CancelOrder],
	"CreatePlace":      decodeAs[models.CreatePlace],
	"SignOut":          decodeAs[models.SignOut],

	"DeepLinkOpened": decodeAs[models.DeepLinkOpened],
}

// DecodeAction turns req into an input action.
func DecodeAction(req ActionRequest) (models.Action, error) {
	decode, ok := inputActions[req.Type]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", req.Type)
	}
	a, err := decode(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid payload for %s: %w", req.Type, err)
	}
	return a, nil
}

// InputActionNames lists the accepted action types, sorted.
func InputActionNames() []string {
	names := make([]string, 0, len(inputActions))
	for name := range inputActions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
