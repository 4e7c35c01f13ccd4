package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/capability/sandbox"
	"github.com/BTreeMap/FieldOps/internal/engine"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
	"github.com/BTreeMap/FieldOps/internal/store"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type appEngine = engine.Engine[models.AppState, models.Action, capability.Env]

// journal records what the engine reduced, from the engine goroutine.
type journal struct {
	mu      sync.Mutex
	states  []string
	actions []string
}

func (j *journal) observe(a models.Action, _, after models.AppState) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions = append(j.actions, models.ActionName(a))
	name := models.StateName(after)
	if len(j.states) == 0 || j.states[len(j.states)-1] != name {
		j.states = append(j.states, name)
	}
}

func (j *journal) stateNames() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.states...)
}

func (j *journal) count(action string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, a := range j.actions {
		if a == action {
			n++
		}
	}
	return n
}

type scenario struct {
	fx  *sandbox.Fixture
	mem *store.InMemoryStore
	eng *appEngine
	log *journal
}

// startScenario runs an App engine over a fresh sandbox. setup prepares the
// fixture and returns the initial state.
func startScenario(t *testing.T, setup func(*sandbox.Fixture, *store.InMemoryStore) models.AppState) *scenario {
	t.Helper()
	sc := &scenario{fx: sandbox.NewFixture(), mem: store.NewInMemoryStore(), log: &journal{}}
	initial := setup(sc.fx, sc.mem)
	sc.eng = engine.New(initial, App(), sc.fx.Env(sc.mem, nil),
		engine.WithObserver[models.AppState, models.Action](sc.log.observe),
		engine.WithActionNames[models.AppState, models.Action](models.ActionName),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sc.eng.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sc
}

func (sc *scenario) dispatch(t *testing.T, a models.Action) models.AppState {
	t.Helper()
	s, err := sc.eng.Dispatch(context.Background(), a)
	require.NoError(t, err)
	return s
}

func (sc *scenario) stateName() string {
	return models.StateName(sc.eng.State())
}

func TestScenarioColdStartResumesSignIn(t *testing.T) {
	sc := startScenario(t, func(_ *sandbox.Fixture, mem *store.InMemoryStore) models.AppState {
		require.NoError(t, mem.SaveState(context.Background(), models.StorageState{
			Flow: models.SignInStorage{Email: "user@example.com"},
		}))
		return models.Created{}
	})

	sc.dispatch(t, models.OSFinishedLaunching{})
	require.Eventually(t, func() bool {
		names := sc.log.stateNames()
		return len(names) > 0 && names[len(names)-1] == "operational.sign_in"
	}, waitFor, tick)

	assert.Equal(t, []string{
		"created",
		"launching.restoring_state",
		"launching.starting",
		"operational.sign_in",
	}, append([]string{"created"}, sc.log.stateNames()...))
	require.Eventually(t, func() bool {
		return sc.fx.Network.Subscribers() == 1 && sc.fx.DeepLinks.Subscribers() == 1
	}, waitFor, tick, "reachability and deep links are watched")

	sc.fx.Network.Set(models.ReachabilityUnreachable)
	require.Eventually(t, func() bool {
		op, ok := sc.eng.State().(models.Operational)
		return ok && op.Reachability == models.ReachabilityUnreachable
	}, waitFor, tick)
}

func TestScenarioDeepLinkActivatesAfterWindow(t *testing.T) {
	sc := startScenario(t, func(fx *sandbox.Fixture, _ *store.InMemoryStore) models.AppState {
		fx.SDK.AllowKey(testKey)
		return operational(models.DriverIDEntry{Key: "pk_prev"})
	})
	link := models.DeepLink{Key: testKey, DriverID: testDriver}

	s := sc.dispatch(t, models.DeepLinkResolved{Link: link})
	f, ok := s.(models.Operational).Flow.(models.DriverIDEntry)
	require.True(t, ok)
	assert.Equal(t, models.WaitingForTimer{Link: link}, f.DeepLink)

	require.Eventually(t, func() bool { return sc.fx.Clock.Timers() == 1 }, waitFor, tick)
	assert.Empty(t, sc.fx.SDK.Activations(), "nothing is activated inside the window")

	sc.fx.Clock.Tick()
	require.Eventually(t, func() bool { return sc.stateName() == "operational.main" }, waitFor, tick)
	require.Eventually(t, func() bool { return sc.fx.Clock.Timers() == 0 }, waitFor, tick)

	assert.Equal(t, []models.PublishableKey{testKey}, sc.fx.SDK.Activations())
	m := sc.eng.State().(models.Operational).Flow.(models.Main)
	assert.Equal(t, testDriver, m.DriverID)
	assert.Nil(t, m.DeepLink)
}

func TestScenarioDeepLinkOpenedWithoutResolution(t *testing.T) {
	initial := operational(models.SignIn{Status: models.EditingCredentials{}})
	sc := startScenario(t, func(*sandbox.Fixture, *store.InMemoryStore) models.AppState { return initial })

	sc.dispatch(t, models.DeepLinkOpened{URL: "https://example.com/unrelated"})
	require.Eventually(t, func() bool { return sc.fx.Clock.Timers() == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return len(sc.fx.DeepLinks.Continued()) == 1 }, waitFor, tick)

	sc.fx.Clock.Tick()
	require.Eventually(t, func() bool { return sc.fx.Clock.Timers() == 0 }, waitFor, tick)
	assert.Equal(t, initial, sc.eng.State())
}

func TestScenarioRefreshSupersedesInFlight(t *testing.T) {
	sc := startScenario(t, func(fx *sandbox.Fixture, _ *store.InMemoryStore) models.AppState {
		fx.Remote.SampleRoute(fx.Clock.Now())
		token, err := fx.Auth.RefreshToken(context.Background(), testKey, testDriver)
		require.NoError(t, err)
		m := models.NewMain(testKey, testDriver)
		m.Token = optic.Some(token)
		return operational(m)
	})

	release := sc.fx.Remote.Hold()
	sc.dispatch(t, models.RefreshRequested{Target: models.RefreshVisitsTarget})
	sc.dispatch(t, models.RefreshRequested{Target: models.RefreshVisitsTarget})
	require.Eventually(t, func() bool { return sc.fx.Remote.Calls(sandbox.OpVisits) == 2 }, waitFor, tick)
	release()

	require.Eventually(t, func() bool {
		return sc.eng.Outstanding(models.IDRefreshingVisits) == 0 && sc.log.count("VisitsUpdated") > 0
	}, waitFor, tick)
	// Flush anything still queued behind the last result.
	s := sc.dispatch(t, models.VisitDeselected{})

	assert.Equal(t, 1, sc.log.count("VisitsUpdated"), "only the latest refresh reports")
	got := s.(models.Operational).Flow.(models.Main)
	assert.Len(t, got.Visits, 2)
	assert.False(t, got.Refreshing.Visits)
}

func TestScenarioSignOutClearsMain(t *testing.T) {
	sc := startScenario(t, func(*sandbox.Fixture, *store.InMemoryStore) models.AppState {
		return operational(models.NewMain(testKey, testDriver))
	})

	sc.dispatch(t, models.SignOut{})
	require.Eventually(t, func() bool {
		saved, err := sc.mem.LoadState(context.Background())
		if err != nil {
			return false
		}
		s, ok := saved.Get()
		return ok && s.Flow.Screen() == models.ScreenSignIn
	}, waitFor, tick)
	assert.Equal(t, "operational.sign_in", sc.stateName())
	assert.Equal(t, 0, sc.eng.Outstanding(models.IDReauthenticating))
}
