package fixsource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCommand(t *testing.T) {
	c, err := NewCommand(`gpspipe --json -n "5"`)
	require.NoError(t, err)
	require.Equal(t, `gpspipe --json -n "5"`, c.String())
}

func TestNewCommandErrors(t *testing.T) {
	_, err := NewCommand(`gpspipe "--json`)
	require.Error(t, err)

	_, err = NewCommand("   ")
	require.Error(t, err)
}

func TestFetchCapturesStdout(t *testing.T) {
	c, err := NewCommand(`printf '{"class":"TPV"}\n{"class":"SKY"}\n'`)
	require.NoError(t, err)

	out, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "{\"class\":\"TPV\"}\n{\"class\":\"SKY\"}\n", out)
}

func TestFetchRunsThroughShell(t *testing.T) {
	c, err := NewCommand(`printf 'a\n{"class":"TPV"}\n' | grep TPV`)
	require.NoError(t, err)

	out, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "{\"class\":\"TPV\"}\n", out)

	c, err = NewCommand(`LINCOT_MARK=TPV; echo "$LINCOT_MARK" 2>/dev/null`)
	require.NoError(t, err)

	out, err = c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "TPV\n", out)
}

func TestFetchFailingCommandIsNoData(t *testing.T) {
	c, err := NewCommand("false")
	require.NoError(t, err)

	out, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestFetchMissingCommandIsNoData(t *testing.T) {
	c, err := NewCommand("lincot-no-such-command --json")
	require.NoError(t, err)

	out, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestFetchCanceledWhileRunning(t *testing.T) {
	c, err := NewCommand("sleep 10; echo late")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Fetch(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchCanceled(t *testing.T) {
	c, err := NewCommand("sleep 10")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Fetch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
