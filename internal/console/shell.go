package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/status"
)

const (
	prompt = "homesec> "

	// DefaultClick is how long "press" holds the button.
	DefaultClick = 100 * time.Millisecond

	transcriptInterval = 50 * time.Millisecond
)

// Shell is the interactive front end of a Bench.
type Shell struct {
	Bench *Bench
	Shell *ishell.Shell

	tick time.Duration
}

// NewShell creates a shell driving b, ticking the loop every tick.
func NewShell(b *Bench, tick time.Duration) *Shell {
	s := &Shell{
		Bench: b,
		Shell: ishell.New(),
		tick:  tick,
	}
	s.Shell.SetPrompt(prompt)
	for _, cmd := range s.commands() {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// Run ticks the loop in the background and serves the shell. With args it
// runs that one command and returns; otherwise it reads commands until exit.
func (s *Shell) Run(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- s.Bench.Node.Run(ctx, ticker.C, time.Now)
	}()

	if len(args) > 0 {
		err := s.Shell.Process(args...)
		// let the loop answer before exiting
		time.Sleep(2 * s.tick)
		cancel()
		<-loopDone
		s.flushTranscript()
		return err
	}

	printed := make(chan struct{})
	go func() {
		s.printTranscript(ctx)
		close(printed)
	}()

	s.Shell.Println("Bench node running. Type 'help' for commands.")
	s.Shell.Run()
	cancel()
	<-printed
	return <-loopDone
}

func (s *Shell) printTranscript(ctx context.Context) {
	t := time.NewTicker(transcriptInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.flushTranscript()
		}
	}
}

func (s *Shell) flushTranscript() {
	app, camera := s.Bench.Transcript()
	for _, line := range splitLines(app) {
		s.Shell.Println("app    <- " + line)
	}
	if len(camera) > 0 {
		s.Shell.Printf("camera <- %q\n", camera)
	}
}

// splitLines breaks node output into printable lines.
func splitLines(p []byte) []string {
	var out []string
	for _, line := range strings.Split(string(p), "\r\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (s *Shell) commands() []*ishell.Cmd {
	b := s.Bench
	return []*ishell.Cmd{
		{
			Name: "send",
			Help: "TEXT  send bytes from the app (escapes like \\r work)",
			Func: func(c *ishell.Context) {
				if len(c.Args) == 0 {
					c.Err(errors.New("nothing to send"))
					return
				}
				b.Send(DecodeText(c.Args))
			},
		},
		{
			Name: "camera",
			Help: "TEXT  send bytes from the camera bridge",
			Func: func(c *ishell.Context) {
				if len(c.Args) == 0 {
					c.Err(errors.New("nothing to send"))
					return
				}
				b.Camera(DecodeText(c.Args))
			},
		},
		{
			Name: "press",
			Help: "click the power button",
			Func: func(c *ishell.Context) {
				b.Button.Press()
				time.Sleep(DefaultClick)
				b.Button.Release()
			},
		},
		{
			Name: "hold",
			Help: "DURATION  hold the power button down, e.g. hold 2s",
			Func: func(c *ishell.Context) {
				d := time.Second
				if len(c.Args) > 0 {
					var err error
					if d, err = time.ParseDuration(c.Args[0]); err != nil {
						c.Err(err)
						return
					}
				}
				b.Button.Press()
				time.Sleep(d)
				b.Button.Release()
			},
		},
		{
			Name: "down",
			Help: "hold the button until 'release'",
			Func: func(c *ishell.Context) { b.Button.Press() },
		},
		{
			Name:    "release",
			Aliases: []string{"up"},
			Help:    "release the button",
			Func: func(c *ishell.Context) { b.Button.Release() },
		},
		{
			Name: "climate",
			Help: "TEMP HUM | fail  set the climate sensor",
			Func: func(c *ishell.Context) {
				if len(c.Args) == 1 && c.Args[0] == "fail" {
					b.Climate.Fail(errors.New("simulated failure"))
					return
				}
				t, h, err := ParseClimate(c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				b.Climate.Set(t, h)
			},
		},
		s.analogCmd("sound", b.Sound.Set, b.Sound.Fail),
		s.analogCmd("light", b.Light.Set, b.Light.Fail),
		{
			Name: "outputs",
			Help: "show the actuator levels",
			Func: func(c *ishell.Context) {
				c.Println(Describe(b.Outputs.Current()))
			},
		},
		{
			Name: "events",
			Help: "list published events",
			Func: func(c *ishell.Context) {
				for _, e := range b.Publisher.EventTypes() {
					c.Println(e)
				}
			},
		},
		{
			Name: "status",
			Help: "print the status JSON",
			Func: func(c *ishell.Context) {
				c.Println(string(status.FormatJSON(b.Tracker.Snapshot())))
			},
		},
		{
			Name: "loglevel",
			Help: "LEVEL  change the log level",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(fmt.Errorf("current level is %s", logger.Level()))
					return
				}
				lvl, ok := logger.ParseLogLevel(c.Args[0])
				if !ok {
					c.Err(fmt.Errorf("unknown log level %q", c.Args[0]))
					return
				}
				logger.SetLevel(lvl)
			},
		},
	}
}

func (s *Shell) analogCmd(name string, set func(int), fail func(error)) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: "RAW | fail  set the " + name + " sensor (0-1023)",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 1 && c.Args[0] == "fail" {
				fail(errors.New("simulated failure"))
				return
			}
			v, err := ParseRaw(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			set(v)
		},
	}
}
