// Package runutil generates short, memorable suffixes for run directory
// names so two runs started in the same second don't collide on disk.
package runutil

import (
	"math/rand"
	"time"
)

// randomSource is a dedicated random source for generating run names
var randomSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// adjectives describes a draft's posture going into an attempt.
var adjectives = []string{
	"careful", "terse", "brittle", "patient", "stubborn", "tidy", "blunt",
	"quiet", "eager", "strict", "steady", "curious", "plain", "wary",
	"sharp", "loose", "dense", "calm", "restless", "thorough", "lean",
	"grim", "bold", "idle", "keen", "dry", "fresh", "stale", "deft",
	"rough", "exact", "sparse", "earnest", "wry", "solid", "spry",
}

// nouns names a noun from the testing vocabulary (fixture, assertion, mock,
// and the like) rather than generic nature words.
var nouns = []string{
	"fixture", "assertion", "mock", "stub", "harness", "invariant", "probe",
	"sandbox", "snapshot", "checkpoint", "oracle", "coverage", "mutant",
	"regression", "seam", "scaffold", "teardown", "matcher", "spy", "fake",
	"suite", "corpus", "edge", "branch", "patch", "diff", "trace", "sentinel",
	"witness", "breadcrumb", "tripwire", "canary", "ledger", "marker", "tally",
}

// GenerateRunName creates a random adjective-noun combination suitable for use
// as a run name or directory suffix. The result follows the pattern
// "adjective-noun" with all lowercase and a hyphen as separator.
func GenerateRunName() string {
	adjective := adjectives[randomSource.Intn(len(adjectives))]
	noun := nouns[randomSource.Intn(len(nouns))]

	return adjective + "-" + noun
}
