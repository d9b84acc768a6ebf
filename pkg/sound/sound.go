// Package sound plays short WAV cues while the course runs.
package sound

import (
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"
)

type Cue string

const (
	CueStart  Cue = "start"
	CueSwitch Cue = "switch"
	CueDone   Cue = "done"
	CueFault  Cue = "fault"
)

// Player plays cues from a directory of <cue>.wav files on a background
// goroutine.  Play never blocks; a cue that arrives while the player is busy
// is dropped.
type Player struct {
	dir    string
	sounds chan string
	log    *zap.SugaredLogger
}

// New returns a player for the given directory.  An empty directory gives a
// player that only logs.
func New(dir string, log *zap.SugaredLogger) *Player {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := &Player{
		dir:    dir,
		sounds: make(chan string, 4),
		log:    log,
	}
	if dir != "" {
		go p.loop()
	}
	return p
}

func (p *Player) Path(c Cue) string {
	return filepath.Join(p.dir, string(c)+".wav")
}

func (p *Player) Play(c Cue) {
	if p == nil || p.dir == "" {
		return
	}
	select {
	case p.sounds <- p.Path(c):
	default:
		p.log.Debugw("Sound busy, dropping cue", "cue", c)
	}
}

func (p *Player) Close() {
	if p == nil || p.dir == "" {
		return
	}
	close(p.sounds)
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("Sound player crashed", "panic", r)
		}
		p.drain()
	}()
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		p.log.Errorw("Failed to open speaker", "error", err)
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for path := range p.sounds {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			_ = s.Close()
			s = nil
		}

		f, err := os.Open(path)
		if err != nil {
			p.log.Warnw("Failed to open sound", "path", path, "error", err)
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			p.log.Warnw("Failed to decode sound", "path", path, "error", err)
			_ = f.Close()
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}

func (p *Player) drain() {
	for path := range p.sounds {
		p.log.Debugw("Unable to play", "path", path)
	}
}
