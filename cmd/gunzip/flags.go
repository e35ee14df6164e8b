package main

import (
	"github.com/chronos-tachyon/parflate"
	getopt "github.com/pborman/getopt/v2"
)

// type WindowBitsFlag {{{

// WindowBitsFlag implements getopt.Value for parflate.WindowBits.
type WindowBitsFlag struct {
	Value parflate.WindowBits
}

// Set fulfills getopt.Value.
func (flag *WindowBitsFlag) Set(str string, opt getopt.Option) error {
	return flag.Value.Parse(str)
}

// String fulfills getopt.Value.
func (flag WindowBitsFlag) String() string {
	return flag.Value.String()
}

var _ getopt.Value = (*WindowBitsFlag)(nil)

// }}}
