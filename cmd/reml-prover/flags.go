package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
)

// flagSet wraps flag.FlagSet with the value types the commands need.
type flagSet struct {
	*flag.FlagSet
}

// newCommandFlagSet creates a ContinueOnError flag set that reports to w.
func newCommandFlagSet(name string, w io.Writer) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return &flagSet{FlagSet: fs}
}

// Uint16Var defines a uint16 flag, used for ports.
func (fs *flagSet) Uint16Var(p *uint16, name string, value uint16, usage string) {
	*p = value
	fs.FlagSet.Var(&uint16Value{p: p}, name, usage)
}

// isSet reports whether the named flag was given on the command line.
func (fs *flagSet) isSet(name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// uint16Value implements flag.Value for uint16 flags.
type uint16Value struct {
	p *uint16
}

func (v *uint16Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(uint64(*v.p), 10)
}

func (v *uint16Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port %q", s)
	}
	*v.p = uint16(n)
	return nil
}
