package flow

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/capability/sandbox"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
	"github.com/BTreeMap/FieldOps/internal/store"
)

const (
	testKey    models.PublishableKey = "pk_test"
	testDriver models.DriverID       = "driver-1"
)

type harness struct {
	t     *testing.T
	fx    *sandbox.Fixture
	mem   *store.InMemoryStore
	env   capability.Env
	r     AppReducer
	state models.AppState
	names []string
}

func newHarness(t *testing.T, r AppReducer, initial models.AppState) *harness {
	t.Helper()
	fx := sandbox.NewFixture()
	mem := store.NewInMemoryStore()
	return &harness{t: t, fx: fx, mem: mem, env: fx.Env(mem, nil), r: r, state: initial}
}

// step reduces a single action and returns its effect without running it.
func (h *harness) step(a models.Action) Effect {
	eff := h.r(&h.state, a, h.env)
	h.names = append(h.names, models.StateName(h.state))
	return eff
}

// drive reduces a and every action its effects produce, depth-first. Streams
// are not started.
func (h *harness) drive(a models.Action) {
	h.t.Helper()
	queue := []models.Action{a}
	for n := 0; len(queue) > 0; n++ {
		if n > 200 {
			h.t.Fatalf("drive did not settle, last action %s", models.ActionName(queue[0]))
		}
		next := queue[0]
		queue = queue[1:]
		produced := effect.Perform(context.Background(), h.step(next))
		queue = append(produced, queue...)
	}
}

func (h *harness) flow() models.Flow {
	h.t.Helper()
	op, ok := h.state.(models.Operational)
	require.True(h.t, ok, "state is %s", models.StateName(h.state))
	return op.Flow
}

func (h *harness) main() models.Main {
	h.t.Helper()
	m, ok := h.flow().(models.Main)
	require.True(h.t, ok, "flow is %s", models.FlowName(h.flow()))
	return m
}

func operational(f models.Flow) models.AppState {
	return models.Operational{
		Flow:         f,
		SDK:          models.SDKStatus{Running: true},
		Reachability: models.ReachabilityReachable,
	}
}

// stepIndex finds the first step with the given kind and id.
func stepIndex(eff Effect, kind effect.Kind, id effect.ID) int {
	for i, s := range eff.Steps() {
		if s.Kind == kind && s.ID == id {
			return i
		}
	}
	return -1
}

func compact(names []string) []string {
	var out []string
	for _, n := range names {
		if len(out) == 0 || out[len(out)-1] != n {
			out = append(out, n)
		}
	}
	return out
}

func TestColdStartFromSignInSnapshot(t *testing.T) {
	h := newHarness(t, App(), models.Created{})
	require.NoError(t, h.mem.SaveState(context.Background(), models.StorageState{
		Flow: models.SignInStorage{Email: "user@example.com"},
	}))

	eff := h.step(models.OSFinishedLaunching{})
	assert.True(t, eff.Has(effect.KindStream, models.IDReachability))
	assert.True(t, eff.Has(effect.KindStream, models.IDDeepLinks))
	for _, a := range effect.Perform(context.Background(), eff) {
		h.drive(a)
	}

	assert.Equal(t, []string{
		"launching.restoring_state",
		"launching.starting",
		"operational.sign_in",
	}, compact(h.names))
	assert.Equal(t, models.SignIn{Status: models.EditingCredentials{Email: "user@example.com"}}, h.flow())
}

func TestLaunchOnUntrackableDevice(t *testing.T) {
	h := newHarness(t, App(), models.Created{})
	h.fx.SDK.SetTrackability(models.Trackability{Trackable: false, Reason: models.LockMotionRestricted})
	require.NoError(t, h.mem.SaveState(context.Background(), models.StorageState{
		Flow: models.MainStorage{Key: testKey, DriverID: testDriver, Tab: models.TabVisits},
	}))

	h.drive(models.OSFinishedLaunching{})
	assert.Equal(t, models.NoMotionServices{Reason: models.LockMotionRestricted}, h.flow())
	assert.Empty(t, h.fx.SDK.Activations(), "stored key is not activated on an untrackable device")
}

func TestLaunchRestoresMainAfterActivation(t *testing.T) {
	h := newHarness(t, App(), models.Created{})
	h.fx.SDK.AllowKey(testKey)
	require.NoError(t, h.mem.SaveState(context.Background(), models.StorageState{
		Flow:                    models.MainStorage{Key: testKey, DriverID: testDriver, Tab: models.TabPlaces},
		LocationAlwaysRequested: true,
	}))

	h.drive(models.OSFinishedLaunching{})
	assert.Contains(t, h.names, "launching.launching_sdk")
	m := h.main()
	assert.Equal(t, models.TabPlaces, m.Tab)
	assert.Equal(t, []models.PublishableKey{testKey}, h.fx.SDK.Activations())
	assert.True(t, h.state.(models.Operational).LocationAlwaysRequested)

	_, hasToken := m.Token.Get()
	assert.True(t, hasToken, "entering main re-authenticates")
	assert.True(t, h.fx.SDK.Tracking())
	assert.Equal(t, testDriver, h.fx.SDK.DriverID())
}

func TestLaunchWithRejectedStoredKey(t *testing.T) {
	h := newHarness(t, App(), models.Created{})
	require.NoError(t, h.mem.SaveState(context.Background(), models.StorageState{
		Flow: models.MainStorage{Key: "pk_revoked", DriverID: testDriver},
	}))

	h.drive(models.OSFinishedLaunching{})
	f, ok := h.flow().(models.SignIn)
	require.True(t, ok)
	_, alerted := f.Alert.Get()
	assert.True(t, alerted)
}

func TestLaunchIgnoredOnceStarted(t *testing.T) {
	h := newHarness(t, Core(), operational(models.FirstRun{}))
	eff := h.step(models.OSFinishedLaunching{})
	assert.True(t, eff.IsNone())
	assert.Equal(t, operational(models.FirstRun{}), h.state)
}

func TestDeepLinkDuringLaunchIsReplayed(t *testing.T) {
	h := newHarness(t, Core(), models.Created{})
	link := models.DeepLink{Key: testKey, DriverID: testDriver}

	h.step(models.OSFinishedLaunching{})
	h.step(models.DeepLinkResolved{Link: link})
	h.step(models.TrackabilityChecked{Trackability: models.Trackability{Trackable: true}})
	h.step(models.StateRestored{Storage: optic.None[models.StorageState]()})
	eff := h.step(models.StartupFinished{})

	assert.Equal(t, models.FirstRun{DeepLink: models.WaitingForTimer{Link: link}}, h.flow())
	assert.True(t, eff.Has(effect.KindStream, models.IDDeepLinkTimer))
}

func TestSignInCancelsPreviousAttemptFirst(t *testing.T) {
	h := newHarness(t, Core(), operational(models.SignIn{Status: models.EditingCredentials{Email: "a@b.co", Password: "pw"}}))
	eff := h.step(models.SignInTapped{})

	cancel := stepIndex(eff, effect.KindCancel, models.IDSigningIn)
	run := stepIndex(eff, effect.KindRun, models.IDSigningIn)
	require.GreaterOrEqual(t, cancel, 0)
	assert.Less(t, cancel, run)
	assert.IsType(t, models.SigningIn{}, h.flow().(models.SignIn).Status)
}

func TestSignInFailureShowsAlert(t *testing.T) {
	h := newHarness(t, Core(), operational(models.SignIn{Status: models.EditingCredentials{Email: "a@b.co", Password: "wrong"}}))
	h.drive(models.SignInTapped{})

	f := h.flow().(models.SignIn)
	assert.Equal(t, models.EditingCredentials{Email: "a@b.co", Password: "wrong"}, f.Status)
	alert, ok := f.Alert.Get()
	require.True(t, ok)
	assert.Equal(t, "Sign in failed", alert.Title)

	h.step(models.DismissAlert{})
	_, ok = h.flow().(models.SignIn).Alert.Get()
	assert.False(t, ok)
}

func TestSignInSuccessMovesToDriverID(t *testing.T) {
	h := newHarness(t, Core(), operational(models.SignIn{Status: models.EditingCredentials{Email: "a@b.co", Password: "pw"}}))
	h.fx.Auth.AddAccount("a@b.co", "pw", testKey)
	h.drive(models.SignInTapped{})
	assert.Equal(t, models.DriverIDEntry{Key: testKey}, h.flow())
}

func TestCancelSignIn(t *testing.T) {
	h := newHarness(t, Core(), operational(models.SignIn{Status: models.SigningIn{Email: "a@b.co", Password: "pw"}}))
	eff := h.step(models.CancelSignIn{})
	assert.True(t, eff.Has(effect.KindCancel, models.IDSigningIn))
	assert.Equal(t, models.EditingCredentials{Email: "a@b.co", Password: "pw"}, h.flow().(models.SignIn).Status)

	// A late result for the cancelled attempt changes nothing.
	before := h.state
	h.step(models.SignedIn{Result: models.Success[models.PublishableKey](testKey)})
	assert.Equal(t, models.FlowName(before.(models.Operational).Flow), models.FlowName(h.flow()))
}

func TestSignUpWithVerification(t *testing.T) {
	h := newHarness(t, Core(), operational(models.FirstRun{}))
	h.step(models.GoToSignUp{})
	h.step(models.SignUpNameChanged{Name: "Dana"})
	h.step(models.SignUpEmailChanged{Email: "dana@example.com"})
	h.step(models.SignUpPasswordChanged{Password: "hunter2"})
	h.drive(models.SignUpTapped{})

	f := h.flow().(models.SignUp)
	v, ok := f.Step.(models.SignUpVerification)
	require.True(t, ok, "step is %T", f.Step)
	assert.Equal(t, models.Email("dana@example.com"), v.Email)

	h.drive(models.ResendCodeTapped{})
	h.step(models.VerificationCodeChanged{Code: "000000x"})
	h.drive(models.VerifyTapped{})
	f = h.flow().(models.SignUp)
	_, alerted := f.Alert.Get()
	assert.True(t, alerted, "wrong code is reported")

	h.step(models.VerificationCodeChanged{Code: h.fx.Auth.Code("dana@example.com")})
	h.drive(models.VerifyTapped{})
	entry, ok := h.flow().(models.DriverIDEntry)
	require.True(t, ok)
	assert.NotEmpty(t, entry.Key)
}

func TestSignUpAndSignInCarryEmail(t *testing.T) {
	h := newHarness(t, Core(), operational(models.SignUp{Step: models.SignUpForm{Email: "a@b.co"}}))
	h.step(models.GoToSignIn{})
	assert.Equal(t, models.SignIn{Status: models.EditingCredentials{Email: "a@b.co"}}, h.flow())
	h.step(models.GoToSignUp{})
	assert.Equal(t, models.SignUp{Step: models.SignUpForm{Email: "a@b.co"}}, h.flow())
}

func TestDriverIDActivation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*sandbox.SDK)
		check func(*testing.T, models.Flow)
	}{
		{"unlocked", func(s *sandbox.SDK) { s.AllowKey(testKey) }, func(t *testing.T, f models.Flow) {
			m, ok := f.(models.Main)
			require.True(t, ok)
			assert.Equal(t, testDriver, m.DriverID)
		}},
		{"bad key", func(*sandbox.SDK) {}, func(t *testing.T, f models.Flow) {
			s, ok := f.(models.SignIn)
			require.True(t, ok)
			_, alerted := s.Alert.Get()
			assert.True(t, alerted)
		}},
		{"device locked", func(s *sandbox.SDK) { s.LockDevice(models.LockLocationRestricted) }, func(t *testing.T, f models.Flow) {
			assert.Equal(t, models.NoMotionServices{Reason: models.LockLocationRestricted}, f)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Core(), operational(models.DriverIDEntry{Key: testKey}))
			tt.setup(h.fx.SDK)
			h.step(models.DriverIDChanged{DriverID: " " + testDriver + " "})
			h.drive(models.DriverIDSubmitted{})
			tt.check(t, h.flow())
		})
	}
}

func TestEnteringMainStartsSession(t *testing.T) {
	h := newHarness(t, Session(Core()), operational(models.DriverIDEntry{Key: testKey, DriverID: testDriver, Activating: true}))
	eff := h.step(models.DriverActivated{DriverID: testDriver, Status: models.SDKStatus{Running: true}})

	var targets []models.RefreshTarget
	for _, a := range eff.Sent() {
		if r, ok := a.(models.RefreshRequested); ok {
			targets = append(targets, r.Target)
		}
	}
	assert.Equal(t, models.RefreshTargets, targets)
}

func TestSignOut(t *testing.T) {
	m := models.NewMain(testKey, testDriver)
	m.Profile = optic.Some(models.Profile{Name: "Dana", Email: "dana@example.com"})
	h := newHarness(t, App(), operational(m))
	h.fx.SDK.StartTracking(context.Background())

	eff := h.step(models.SignOut{})
	for _, id := range models.MainIDs {
		assert.True(t, eff.Has(effect.KindCancel, id), "cancels %s", id)
	}
	effect.Perform(context.Background(), eff)

	assert.Equal(t, models.SignIn{Status: models.EditingCredentials{Email: "dana@example.com"}}, h.flow())
	assert.False(t, h.fx.SDK.Tracking())
	saved, err := h.mem.LoadState(context.Background())
	require.NoError(t, err)
	snapshot, ok := saved.Get()
	require.True(t, ok)
	assert.Equal(t, models.SignInStorage{Email: "dana@example.com"}, snapshot.Flow)
}

func TestReachabilityAndPermissions(t *testing.T) {
	h := newHarness(t, App(), operational(models.SignIn{Status: models.EditingCredentials{}}))
	h.step(models.ReachabilityChanged{Reachability: models.ReachabilityUnreachable})
	assert.Equal(t, models.ReachabilityUnreachable, h.state.(models.Operational).Reachability)

	effect.Perform(context.Background(), h.step(models.RequestLocationAlways{}))
	assert.True(t, h.state.(models.Operational).LocationAlwaysRequested)
	saved, err := h.mem.LoadState(context.Background())
	require.NoError(t, err)
	snapshot, _ := saved.Get()
	assert.True(t, snapshot.LocationAlwaysRequested, "flag is persisted")
}

func TestDeviceLockWhileInMain(t *testing.T) {
	h := newHarness(t, Core(), operational(models.NewMain(testKey, testDriver)))
	h.step(models.SDKStatusUpdated{Status: models.SDKStatus{Locked: true, Reason: models.LockNoMotionServices}})
	assert.Equal(t, models.NoMotionServices{Reason: models.LockNoMotionServices}, h.flow())
}

func TestStatesCompareStructurally(t *testing.T) {
	a := operational(models.NewMain(testKey, testDriver))
	b := operational(models.NewMain(testKey, testDriver))
	assert.Empty(t, cmp.Diff(a, b))
}
