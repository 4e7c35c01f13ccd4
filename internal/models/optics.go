package models

import "github.com/BTreeMap/FieldOps/internal/optic"

// State prisms.
var (
	CreatedCase     = optic.Case[AppState, Created]()
	LaunchingCase   = optic.Case[AppState, Launching]()
	OperationalCase = optic.Case[AppState, Operational]()

	RestoringStateCase = optic.Case[LaunchPhase, RestoringState]()
	LaunchingSDKCase   = optic.Case[LaunchPhase, LaunchingSDK]()
	StartingCase       = optic.Case[LaunchPhase, Starting]()

	FirstRunCase         = optic.Case[Flow, FirstRun]()
	SignUpCase           = optic.Case[Flow, SignUp]()
	SignInCase           = optic.Case[Flow, SignIn]()
	DriverIDEntryCase    = optic.Case[Flow, DriverIDEntry]()
	MainCase             = optic.Case[Flow, Main]()
	NoMotionServicesCase = optic.Case[Flow, NoMotionServices]()

	SignUpFormCase         = optic.Case[SignUpStep, SignUpForm]()
	SignUpVerificationCase = optic.Case[SignUpStep, SignUpVerification]()

	EditingCredentialsCase = optic.Case[SignInStatus, EditingCredentials]()
	SigningInCase          = optic.Case[SignInStatus, SigningIn]()
)

// Field lenses.
var (
	LaunchingPhase = optic.NewLens(
		func(l Launching) LaunchPhase { return l.Phase },
		func(p LaunchPhase, l Launching) Launching { l.Phase = p; return l },
	)
	OperationalFlow = optic.NewLens(
		func(o Operational) Flow { return o.Flow },
		func(f Flow, o Operational) Operational { o.Flow = f; return o },
	)
	SignUpStepLens = optic.NewLens(
		func(s SignUp) SignUpStep { return s.Step },
		func(step SignUpStep, s SignUp) SignUp { s.Step = step; return s },
	)
	SignInStatusLens = optic.NewLens(
		func(s SignIn) SignInStatus { return s.Status },
		func(st SignInStatus, s SignIn) SignIn { s.Status = st; return s },
	)
	MainVisits = optic.NewLens(
		func(m Main) []Visit { return m.Visits },
		func(v []Visit, m Main) Main { m.Visits = v; return m },
	)
	VisitOrders = optic.NewLens(
		func(v Visit) []Order { return v.Orders },
		func(o []Order, v Visit) Visit { v.Orders = o; return v },
	)
)

// Deep-link lenses, one per flow that can be interrupted by a link.
var (
	FirstRunDeepLink = optic.NewLens(
		func(f FirstRun) ProcessingDeepLink { return f.DeepLink },
		func(p ProcessingDeepLink, f FirstRun) FirstRun { f.DeepLink = p; return f },
	)
	SignUpDeepLink = optic.NewLens(
		func(f SignUp) ProcessingDeepLink { return f.DeepLink },
		func(p ProcessingDeepLink, f SignUp) SignUp { f.DeepLink = p; return f },
	)
	SignInDeepLink = optic.NewLens(
		func(f SignIn) ProcessingDeepLink { return f.DeepLink },
		func(p ProcessingDeepLink, f SignIn) SignIn { f.DeepLink = p; return f },
	)
	DriverIDEntryDeepLink = optic.NewLens(
		func(f DriverIDEntry) ProcessingDeepLink { return f.DeepLink },
		func(p ProcessingDeepLink, f DriverIDEntry) DriverIDEntry { f.DeepLink = p; return f },
	)
	MainDeepLink = optic.NewLens(
		func(f Main) ProcessingDeepLink { return f.DeepLink },
		func(p ProcessingDeepLink, f Main) Main { f.DeepLink = p; return f },
	)
)

// Paths from the root state.
var (
	AppLaunchPhase = optic.PrismLens(LaunchingCase, LaunchingPhase)
	AppRestoring   = optic.AffinePrism(AppLaunchPhase, RestoringStateCase)
	AppFlow        = optic.PrismLens(OperationalCase, OperationalFlow)

	AppFirstRun      = optic.AffinePrism(AppFlow, FirstRunCase)
	AppSignUp        = optic.AffinePrism(AppFlow, SignUpCase)
	AppSignIn        = optic.AffinePrism(AppFlow, SignInCase)
	AppDriverIDEntry = optic.AffinePrism(AppFlow, DriverIDEntryCase)
	AppMain          = optic.AffinePrism(AppFlow, MainCase)

	// AppFlowDeepLinks lists the deep-link field of every flow that takes part in the race.
	AppFlowDeepLinks = []optic.Affine[AppState, ProcessingDeepLink]{
		optic.AffineLens(AppFirstRun, FirstRunDeepLink),
		optic.AffineLens(AppSignUp, SignUpDeepLink),
		optic.AffineLens(AppSignIn, SignInDeepLink),
		optic.AffineLens(AppDriverIDEntry, DriverIDEntryDeepLink),
		optic.AffineLens(AppMain, MainDeepLink),
	}
)

// AppReachability focuses the reachability field of whichever phase holds one.
var AppReachability = optic.NewAffine(
	func(s AppState) (Reachability, bool) {
		switch s := s.(type) {
		case Launching:
			return s.Reachability, true
		case Operational:
			return s.Reachability, true
		}
		return "", false
	},
	func(r Reachability, s AppState) (AppState, bool) {
		switch st := s.(type) {
		case Launching:
			st.Reachability = r
			return st, true
		case Operational:
			st.Reachability = r
			return st, true
		}
		return s, false
	},
)

// Action prisms.
var (
	SignUpActions   = optic.Case[Action, SignUpAction]()
	SignInActions   = optic.Case[Action, SignInAction]()
	DriverIDActions = optic.Case[Action, DriverIDAction]()
	MainActions     = optic.Case[Action, MainAction]()
	DeepLinkActions = optic.Case[Action, DeepLinkAction]()
)

// VisitByID focuses the visit with the given id.
func VisitByID(id string) optic.Affine[[]Visit, Visit] {
	return optic.Find(func(v Visit) string { return v.ID }, id)
}

// OrderByID focuses the order with the given id.
func OrderByID(id string) optic.Affine[[]Order, Order] {
	return optic.Find(func(o Order) string { return o.ID }, id)
}

// MainOrder focuses one order of one visit in the main flow.
func MainOrder(visitID, orderID string) optic.Affine[Main, Order] {
	visit := optic.Compose(MainVisits.Affine(), VisitByID(visitID))
	return optic.Compose(optic.AffineLens(visit, VisitOrders), OrderByID(orderID))
}
