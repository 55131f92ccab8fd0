package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/icco/keytutor/internal/audio"
	"github.com/icco/keytutor/internal/input"
	"github.com/icco/keytutor/internal/score"
	"github.com/icco/keytutor/internal/session"
	"github.com/icco/keytutor/internal/tui"
)

var (
	portName        string
	virtualName     string
	litUntilRelease bool
	lookahead       int
	brightness      float64
	tempo           int
	sound           bool
	muted           []int
	saveSettings    bool
)

var practiceCmd = &cobra.Command{
	Use:   "practice [file.mid]",
	Short: "Practice a MIDI file on a connected keyboard",
	Long: `Practice a MIDI file. The keys to play next are lit on the on-screen
keyboard; the score moves on once you have played them.

Without a file a browser opens in the current directory.

Example:
  keytutor practice minuet.mid --port "Digital Piano" --tempo 80
  keytutor practice --virtual "keytutor in"
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPractice,
}

func init() {
	f := practiceCmd.Flags()
	f.StringVarP(&portName, "port", "p", "", "MIDI input to listen on (substring match, default first)")
	f.StringVar(&virtualName, "virtual", "", "Create a virtual MIDI input with this name instead of opening a port")
	f.BoolVarP(&litUntilRelease, "lit-until-release", "l", false, "Keep played keys lit until released")
	f.IntVar(&lookahead, "lookahead", 2, "Number of upcoming steps to preview")
	f.Float64Var(&brightness, "brightness", 1, "Brightness coefficient for due keys")
	f.IntVarP(&tempo, "tempo", "t", 100, "Playback speed in percent of the score tempo, 0 to never wait")
	f.BoolVar(&sound, "sound", true, "Play feedback tones")
	f.IntSliceVarP(&muted, "mute", "m", nil, "MIDI channels (1-16) to leave out")
	f.BoolVar(&saveSettings, "save", false, "Save these settings to the config file")
	rootCmd.AddCommand(practiceCmd)
}

// applyFlags overrides config values with the flags given on the command line.
func applyFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("port") {
		cfg.InputPort = portName
	}
	if f.Changed("lit-until-release") {
		cfg.LitUntilRelease = litUntilRelease
	}
	if f.Changed("lookahead") {
		cfg.Lookahead = lookahead
	}
	if f.Changed("brightness") {
		cfg.Brightness = brightness
	}
	if f.Changed("tempo") {
		cfg.Tempo = tempo
	}
	if f.Changed("sound") {
		cfg.Sound = sound
	}
	if f.Changed("mute") {
		cfg.MutedChannels = cfg.MutedChannels[:0]
		for _, ch := range muted {
			cfg.MutedChannels = append(cfg.MutedChannels, ch-1)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if saveSettings {
		if err := cfg.Save(configPath); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
	}
	return nil
}

func runPractice(cmd *cobra.Command, args []string) error {
	if err := applyFlags(cmd); err != nil {
		return err
	}
	log := logrus.StandardLogger()

	var feedback session.Feedback
	if cfg.Sound {
		voice, err := audio.NewVoice()
		if err != nil {
			log.WithError(err).Warn("audio disabled")
		} else {
			defer func() { _ = voice.Close() }()
			feedback = voice
		}
	}

	// One port feeds whichever session is current.
	sw := &input.Switch{}
	var (
		l   *input.Listener
		err error
	)
	if virtualName != "" {
		l, err = input.OpenVirtual(virtualName, sw, log)
	} else {
		l, err = input.Open(cfg.InputPort, sw, log)
	}
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	start := func(path string) (*session.Session, error) {
		sc, err := score.Load(path)
		if err != nil {
			return nil, err
		}
		s := session.New(cfg, sc, session.WithFeedback(feedback), session.WithLogger(log.WithField("score", path)))
		sw.Set(s)
		log.WithFields(logrus.Fields{"score": path, "steps": len(sc.Steps), "input": l.Name()}).Info("session started")
		return s, nil
	}

	var m tui.Model
	if len(args) == 1 {
		s, err := start(args[0])
		if err != nil {
			return err
		}
		m = tui.NewPractice(args[0], s)
	} else {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		m = tui.NewBrowser(dir, start)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		if _, ok := <-c; ok {
			p.Quit()
		}
	}()

	final, err := p.Run()
	sw.Set(nil)
	if fm, ok := final.(tui.Model); ok {
		fm.Close()
	}
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
