//go:build z3

package main

import (
	"io"

	"github.com/benbjohnson/ovc"
	"github.com/benbjohnson/ovc/z3"
)

func init() {
	newEmbeddedProver = func(config SolverConfig) (ovc.Prover, io.Closer) {
		p := z3.NewProver()
		p.Timeout = config.Timeout
		return p, p
	}
}
