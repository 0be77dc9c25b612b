package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/homesec-node/internal/logic"
	"github.com/sweeney/homesec-node/internal/node"
)

func TestShellRunsSingleCommand(t *testing.T) {
	b := NewBench(context.Background(), testConfig(), t0)
	s := NewShell(b, 5*time.Millisecond)

	var out bytes.Buffer
	s.Shell.SetOut(&out)

	require.NoError(t, s.Run(context.Background(), "outputs"))

	require.Contains(t, out.String(), Describe(logic.FrameOff)+"\n")
	require.Contains(t, out.String(), "app    <- "+node.BannerReady+"\n")
	require.Contains(t, out.String(), "app    <- "+node.BannerOff+"\n")
	require.Equal(t, logic.ModeOff, b.Node.State().Mode)

	app, camera := b.Transcript()
	require.Empty(t, app)
	require.Empty(t, camera)
}

func TestShellCommandError(t *testing.T) {
	b := NewBench(context.Background(), testConfig(), t0)
	s := NewShell(b, 5*time.Millisecond)
	s.Shell.SetOut(&bytes.Buffer{})

	require.Error(t, s.Run(context.Background(), "sound", "lots"))
}
