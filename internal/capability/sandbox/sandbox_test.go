package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/models"
)

func TestAuthSignUpAndVerify(t *testing.T) {
	ctx := context.Background()
	auth := NewAuth()

	out, err := auth.SignUp(ctx, "Dana", "dana@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, out.NeedsVerification)

	_, err = auth.SignIn(ctx, "dana@example.com", "secret")
	assert.Equal(t, models.CodeEmailNotVerified, models.AsAPIError(err).Code)

	_, err = auth.VerifyEmail(ctx, "dana@example.com", "secret", "nope")
	assert.Equal(t, models.CodeInvalidVerificationCode, models.AsAPIError(err).Code)

	key, err := auth.VerifyEmail(ctx, "dana@example.com", "secret", auth.Code("dana@example.com"))
	require.NoError(t, err)

	signedIn, err := auth.SignIn(ctx, "dana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, key, signedIn)
}

func TestRemoteRequiresFreshToken(t *testing.T) {
	ctx := context.Background()
	f := NewFixture()
	f.Remote.SetVisits([]models.Visit{{ID: "v"}})

	creds := capability.Credentials{Key: "pk", DriverID: "d"}
	_, err := f.Remote.Visits(ctx, creds)
	assert.True(t, models.AsAPIError(err).TokenExpired())

	creds.Token, err = f.Auth.RefreshToken(ctx, "pk", "d")
	require.NoError(t, err)
	visits, err := f.Remote.Visits(ctx, creds)
	require.NoError(t, err)
	assert.Len(t, visits, 1)

	f.Auth.ExpireTokens()
	_, err = f.Remote.Visits(ctx, creds)
	assert.True(t, models.AsAPIError(err).TokenExpired())
	assert.Equal(t, 3, f.Remote.Calls(OpVisits))
}

func TestRemoteHoldRespectsCancellation(t *testing.T) {
	f := NewFixture()
	release := f.Remote.Hold()
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Remote.Places(ctx, capability.Credentials{})
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("held call did not observe cancellation")
	}
}

func TestParseDeepLink(t *testing.T) {
	link, ok := ParseDeepLink("fieldops://signin?publishable_key=pk_1&driver_id=driver-7")
	require.True(t, ok)
	assert.Equal(t, models.DeepLink{Key: "pk_1", DriverID: "driver-7"}, link)

	_, ok = ParseDeepLink("fieldops://signin?driver_id=x")
	assert.False(t, ok)
}

func TestSDKActivation(t *testing.T) {
	ctx := context.Background()
	sdk := NewSDK()
	sdk.AllowKey("good")

	assert.Equal(t, models.LockBadPublishableKey, sdk.Activate(ctx, "bad").Reason)
	st := sdk.Activate(ctx, "good")
	assert.True(t, st.Unlocked())
	assert.True(t, st.Running)

	sdk.LockDevice(models.LockNoMotionServices)
	assert.True(t, sdk.Activate(ctx, "good").Reason.DeviceLevel())
	assert.Equal(t, []models.PublishableKey{"bad", "good", "good"}, sdk.Activations())
}

func TestManualClockTicksRunningTimers(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		clock.Every(ctx, time.Second, func() { ticks <- struct{}{} })
	}()

	require.Eventually(t, func() bool { return clock.Timers() == 1 }, time.Second, time.Millisecond)
	clock.Tick()
	<-ticks
	cancel()
	<-done
	assert.Equal(t, 0, clock.Timers())
}
