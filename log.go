package main

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// subsystems lists every package that logs through a subsystem tag.
// Each tag is handed to the relevant constructor (NewBtcdConnector,
// NewHbitWatcher, NewServer, ...) as its btclog.Logger argument; there
// is no package-level log var to patch, so wiring happens once, here,
// at daemon startup.
var subsystems = []string{"SWAP", "HBIT", "HERC", "WLET", "SWDB", "NTFN", "PROT"}

// LoggingBackend is the single btclog.Backend shared by every
// subsystem logger in the daemon, writing to both stdout and a
// rotating log file.
type LoggingBackend struct {
	backend *btclog.Backend
	rotator *rotator.Rotator
}

// NewLoggingBackend opens logFile for rotation and returns a backend
// that writes every subsystem's output to both stdout and the file.
func NewLoggingBackend(logFile string, maxRolls int) (*LoggingBackend, error) {
	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return nil, err
	}
	backend := btclog.NewBackend(io.MultiWriter(os.Stdout, r))
	return &LoggingBackend{backend: backend, rotator: r}, nil
}

// Logger returns the logger for subsystem, defaulting to the info
// level. Callers pass the result directly into a component
// constructor.
func (b *LoggingBackend) Logger(subsystem string) btclog.Logger {
	l := b.backend.Logger(subsystem)
	l.SetLevel(btclog.LevelInfo)
	return l
}

// SetLevel sets the level of every logger previously handed out for
// subsystem. btclog loggers are mutable in place, so a level change
// here is visible to every component already holding that logger.
func (b *LoggingBackend) SetLevel(subsystem, level string) bool {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return false
	}
	for _, s := range subsystems {
		if s == subsystem {
			b.backend.Logger(subsystem).SetLevel(lvl)
			return true
		}
	}
	return false
}

// SetLevels sets every subsystem logger to level.
func (b *LoggingBackend) SetLevels(level string) {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return
	}
	for _, s := range subsystems {
		b.backend.Logger(s).SetLevel(lvl)
	}
}

// Close flushes and closes the underlying rotator.
func (b *LoggingBackend) Close() {
	b.rotator.Close()
}
