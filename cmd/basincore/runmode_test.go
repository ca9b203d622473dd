package main

import (
	"testing"

	"github.com/cauldronfem/basincore/project"
	"github.com/cpmech/gosl/chk"
)

func TestResolveRunModeAcceptsEveryKnownSpelling(tst *testing.T) {
	chk.PrintTitle("resolveRunMode accepts every spelling in the known run-mode table")
	for _, m := range knownRunModes {
		got, err := resolveRunMode(string(m))
		if err != nil {
			tst.Fatalf("unexpected error for mode %q: %v", m, err)
		}
		if got != m {
			tst.Fatalf("expected %q, got %q", m, got)
		}
	}
}

func TestResolveRunModeRejectsUnknownString(tst *testing.T) {
	chk.PrintTitle("resolveRunMode rejects a string outside the known run-mode table")
	_, err := resolveRunMode("not-a-real-mode")
	if err == nil {
		tst.Fatalf("expected an error for an unknown run mode")
	}
}

func TestResolveRunModeRejectsEmptyString(tst *testing.T) {
	chk.PrintTitle("resolveRunMode rejects the empty string")
	_, err := resolveRunMode("")
	if err == nil {
		tst.Fatalf("expected an error for the empty run mode string")
	}
}
