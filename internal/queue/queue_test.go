package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSize(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}

func TestFIFO(t *testing.T) {
	q, err := New(3)
	require.NoError(t, err)
	ctx := context.Background()

	for _, ev := range []string{"a", "b", "c"} {
		require.NoError(t, q.Put(ctx, []byte(ev)))
	}
	require.Equal(t, 3, q.Len())
	require.Equal(t, 3, q.Cap())

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}
	require.Equal(t, 0, q.Len())
}

func TestPutBlocksWhenFull(t *testing.T) {
	q, err := New(1)
	require.NoError(t, err)
	require.NoError(t, q.Put(context.Background(), []byte("a")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Put(ctx, []byte("b")), context.DeadlineExceeded)
	require.Equal(t, 1, q.Len())
}

func TestGetCanceled(t *testing.T) {
	q, err := New(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCloseDrainsThenReportsClosed(t *testing.T) {
	q, err := New(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, []byte("a")))
	q.Close()
	q.Close()

	got, err := q.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", string(got))

	_, err = q.Get(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentProducers(t *testing.T) {
	q, err := New(4)
	require.NoError(t, err)
	ctx := context.Background()

	const producers, perProducer = 4, 25
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				require.NoError(t, q.Put(ctx, []byte("x")))
			}
		}()
	}

	got := 0
	for got < producers*perProducer {
		_, err := q.Get(ctx)
		require.NoError(t, err)
		got++
	}
	wg.Wait()
	require.Equal(t, 0, q.Len())
}
