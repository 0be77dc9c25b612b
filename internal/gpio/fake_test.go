package gpio

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/homesec-node/internal/logic"
)

func TestFakeButtonScripted(t *testing.T) {
	b := NewScriptedButton([]bool{true, false, false, true})

	var got []bool
	for i := 0; i < 6; i++ {
		lvl, err := b.Level()
		require.NoError(t, err)
		got = append(got, lvl)
	}
	// Last sample repeats once exhausted.
	require.Equal(t, []bool{true, false, false, true, true, true}, got)
}

func TestFakeButtonPressRelease(t *testing.T) {
	b := NewFakeButton()

	lvl, err := b.Level()
	require.NoError(t, err)
	require.True(t, lvl, "released button reads high")

	b.Press()
	lvl, _ = b.Level()
	require.False(t, lvl)

	b.Release()
	lvl, _ = b.Level()
	require.True(t, lvl)
}

func TestFakeButtonError(t *testing.T) {
	b := NewFakeButton()
	b.ReadError = errors.New("line busy")

	_, err := b.Level()
	require.EqualError(t, err, "line busy")

	require.NoError(t, b.Close())
	require.True(t, b.Closed)
}

func TestFakeButtonConcurrent(t *testing.T) {
	b := NewFakeButton()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Set(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_, _ = b.Level()
		}
	}()
	wg.Wait()
}

func TestFakeOutputsRecords(t *testing.T) {
	o := NewFakeOutputs()

	require.NoError(t, o.Write(logic.FrameOff))
	require.NoError(t, o.Write(logic.Frame{Buzzer: true, Primary: true, Secondary: true}))

	require.Equal(t, logic.Frame{Buzzer: true, Primary: true, Secondary: true}, o.Current())
	require.Len(t, o.Frames(), 2)
	require.Equal(t, logic.FrameOff, o.Frames()[0])

	o.WriteError = errors.New("short")
	require.Error(t, o.Write(logic.Frame{}))
	require.Len(t, o.Frames(), 2)

	require.NoError(t, o.Close())
	o.WriteError = nil
	require.Error(t, o.Write(logic.Frame{}))
}

func TestFrameValuesOrder(t *testing.T) {
	require.Equal(t, []int{0, 0, 1}, frameValues(logic.FrameOff))
	require.Equal(t, []int{1, 1, 1}, frameValues(logic.Frame{Buzzer: true, Primary: true, Secondary: true}))
	require.Equal(t, []int{0, 1, 0}, frameValues(logic.Frame{Primary: true}))
}
