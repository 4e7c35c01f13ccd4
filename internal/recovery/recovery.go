// Package recovery bridges the live application state and its persisted
// snapshot so FieldOps can resume after a process restart.
//
// DeriveSnapshot picks the minimal StorageState out of an AppState, Restore
// rebuilds a flow from one, and Persisting saves the snapshot whenever it
// changes.
package recovery

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
	"github.com/BTreeMap/FieldOps/internal/reducer"
)

// DeriveSnapshot returns the part of s worth persisting. Launch phases,
// FirstRun and NoMotionServices have nothing to persist.
func DeriveSnapshot(s models.AppState) optic.Option[models.StorageState] {
	op, ok := s.(models.Operational)
	if !ok {
		return optic.None[models.StorageState]()
	}
	flow, ok := snapshotFlow(op.Flow)
	if !ok {
		return optic.None[models.StorageState]()
	}
	return optic.Some(models.StorageState{Flow: flow, LocationAlwaysRequested: op.LocationAlwaysRequested})
}

func snapshotFlow(f models.Flow) (models.StorageFlow, bool) {
	switch f := f.(type) {
	case models.SignUp:
		switch step := f.Step.(type) {
		case models.SignUpForm:
			return models.SignUpStorage{Email: step.Email}, true
		case models.SignUpVerification:
			return models.SignUpStorage{Email: step.Email, AwaitingVerification: true}, true
		}
	case models.SignIn:
		switch st := f.Status.(type) {
		case models.EditingCredentials:
			return models.SignInStorage{Email: st.Email}, true
		case models.SigningIn:
			return models.SignInStorage{Email: st.Email}, true
		}
	case models.DriverIDEntry:
		return models.DriverIDStorage{Key: f.Key, DriverID: f.DriverID}, true
	case models.Main:
		return models.MainStorage{Key: f.Key, DriverID: f.DriverID, Tab: f.Tab}, true
	}
	return nil, false
}

// BadKeyAlert is shown when a stored or linked key no longer unlocks the SDK.
var BadKeyAlert = models.Alert{
	Title:   "Sign in again",
	Message: "Your account key was not accepted. Please sign in again.",
}

// Restore rebuilds the flow to resume from a snapshot. sdk is the status of
// the activation done for a stored main flow. Snapshots that do not agree with
// the SDK degrade to an earlier flow instead of failing.
func Restore(storage optic.Option[models.StorageState], sdk models.SDKStatus) models.Flow {
	snapshot, ok := storage.Get()
	if !ok {
		return models.FirstRun{}
	}
	switch f := snapshot.Flow.(type) {
	case models.SignUpStorage:
		if f.AwaitingVerification {
			return models.SignUp{Step: models.SignUpVerification{Email: f.Email}}
		}
		return models.SignUp{Step: models.SignUpForm{Email: f.Email}}
	case models.SignInStorage:
		return models.SignIn{Status: models.EditingCredentials{Email: f.Email}}
	case models.DriverIDStorage:
		if f.Key == "" {
			slog.Warn("Recovery.Restore: driver id snapshot without key, signing in again")
			return models.SignIn{Status: models.EditingCredentials{}}
		}
		return models.DriverIDEntry{Key: f.Key, DriverID: f.DriverID}
	case models.MainStorage:
		return restoreMain(f, sdk)
	}
	slog.Warn("Recovery.Restore: unknown snapshot flow, starting over")
	return models.FirstRun{}
}

func restoreMain(f models.MainStorage, sdk models.SDKStatus) models.Flow {
	if f.Key == "" {
		slog.Warn("Recovery.Restore: main snapshot without key, signing in again")
		return models.SignIn{Status: models.EditingCredentials{}}
	}
	if sdk.Locked {
		if sdk.Reason.DeviceLevel() {
			slog.Info("Recovery.Restore: device cannot track", "reason", sdk.Reason)
			return models.NoMotionServices{Reason: sdk.Reason}
		}
		slog.Warn("Recovery.Restore: stored key rejected by SDK", "reason", sdk.Reason)
		return models.SignIn{Status: models.EditingCredentials{}, Alert: optic.Some(BadKeyAlert)}
	}
	if f.DriverID == "" {
		return models.DriverIDEntry{Key: f.Key}
	}
	m := models.NewMain(f.Key, f.DriverID)
	if f.Tab.Valid() {
		m.Tab = f.Tab
	}
	return m
}

// Persisting saves the snapshot through env.Persistence whenever r changes it.
// Leaving the main flow clears the old snapshot before the new one is written.
// Writes never overlap, and a write overtaken by a newer snapshot is dropped,
// so the stored snapshot is always the latest one.
func Persisting(r reducer.Reducer[models.AppState, models.Action, capability.Env]) reducer.Reducer[models.AppState, models.Action, capability.Env] {
	w := newSnapshotWriter()
	return reducer.OnChange(r, DeriveSnapshot, w.persist)
}

// snapshotWriter orders the writes of one Persisting reducer. Every snapshot
// gets a generation number; only the newest generation may reach the store.
type snapshotWriter struct {
	slot   chan struct{}
	latest atomic.Uint64
	// wipe is set when a pending snapshot left the main flow and the store
	// has not been cleared since.
	wipe atomic.Bool
}

func newSnapshotWriter() *snapshotWriter {
	return &snapshotWriter{slot: make(chan struct{}, 1)}
}

func (w *snapshotWriter) persist(old, next optic.Option[models.StorageState], env capability.Env) effect.Effect[models.Action] {
	snapshot, ok := next.Get()
	if !ok {
		// Nothing worth keeping; the previous snapshot stays for the next launch.
		return effect.None[models.Action]()
	}
	if prev, had := old.Get(); had && prev.Flow.Screen() == models.ScreenMain && snapshot.Flow.Screen() != models.ScreenMain {
		w.wipe.Store(true)
	}
	gen := w.latest.Add(1)
	write := effect.FireAndForget[models.Action](func(ctx context.Context) {
		w.write(ctx, env.Persistence, snapshot, gen)
	})
	// Cancelling stops a superseded write that has not reached the store yet.
	return effect.Concatenate(
		effect.Cancel[models.Action](models.IDPersisting),
		write.Cancellable(models.IDPersisting),
	)
}

func (w *snapshotWriter) write(ctx context.Context, p capability.Persistence, snapshot models.StorageState, gen uint64) {
	select {
	case w.slot <- struct{}{}:
	case <-ctx.Done():
		slog.Debug("Recovery.persist: superseded before writing", "generation", gen)
		return
	}
	defer func() { <-w.slot }()

	if latest := w.latest.Load(); gen != latest {
		slog.Debug("Recovery.persist: dropping stale snapshot", "generation", gen, "latest", latest)
		return
	}
	cleared := false
	if w.wipe.Swap(false) {
		if err := p.ClearState(ctx); err != nil {
			w.wipe.Store(true)
			slog.Error("Recovery.persist: clear failed", "error", err)
		} else {
			cleared = true
		}
	}
	if err := p.SaveState(ctx, snapshot); err != nil {
		slog.Error("Recovery.persist: save failed", "error", err, "screen", snapshot.Flow.Screen())
		return
	}
	slog.Debug("Recovery.persist: snapshot saved", "screen", snapshot.Flow.Screen(), "generation", gen, "cleared", cleared)
}
