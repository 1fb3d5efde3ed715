// Package z3 implements an ovc.Prover on top of an embedded Z3 solver.
//
// The package links against libz3 through cgo and is only compiled with the
// "z3" build tag:
//
//	go build -tags z3 ./...
package z3
