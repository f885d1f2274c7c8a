package network

import "github.com/davecgh/go-spew/spew"

// logClosure defers a string-valued computation until the logger
// actually decides to print it, so a trace-level frame dump never pays
// its spew.Sdump cost when the subsystem is running at info level.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(fn func() string) logClosure {
	return logClosure(fn)
}

func dumpFrame(f frame) logClosure {
	return newLogClosure(func() string {
		return spew.Sdump(f)
	})
}
