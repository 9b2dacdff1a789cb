// Package testkit is the core's own test harness: a process-wide registry
// of named test closures and a deterministic random source, independent of
// go test, mirroring the registration macro and master RNG of the
// original implementation.
package testkit

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/coretoy32/corevm/internal/corelog"
)

// Func is a registered test body. It receives a T for reporting failure
// and drawing from the per-test RNG.
type Func func(t *T)

// T is the handle a test body uses to report failure and to obtain a
// reproducible random source.
type T struct {
	name   string
	rng    *rand.Rand
	failed error
}

// Name returns the test's registered name.
func (t *T) Name() string {
	return t.name
}

// RNG returns the test's per-test random source, seeded deterministically
// from the master seed for this run.
func (t *T) RNG() *rand.Rand {
	return t.rng
}

// Errorf records a failure without aborting the test body.
func (t *T) Errorf(format string, args ...any) {
	if t.failed == nil {
		t.failed = fmt.Errorf(format, args...)
	}
}

// Fatalf records a failure and aborts the test body immediately.
func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	panic(t.failed)
}

type entry struct {
	name string
	fn   Func
}

var registry []entry

// Register adds a named test to the process-wide registry. It is meant to
// be called from package init functions, mirroring the original
// implementation's constructor-based self-registration.
func Register(name string, fn Func) {
	registry = append(registry, entry{name: name, fn: fn})
}

// Result is the outcome of running one registered test.
type Result struct {
	Name string
	Err  error
}

// RunAll runs every registered test in registration order and returns one
// Result per test. Tests never share RNG state: each draws its own seed
// from a master RNG that is itself seeded once for the whole run.
func RunAll() []Result {
	master := rand.New(rand.NewSource(masterSeed()))
	results := make([]Result, 0, len(registry))
	for _, e := range registry {
		corelog.Info("running test %q", e.name)
		seed := master.Int63()
		corelog.Debug("test %q seed=%d", e.name, seed)
		results = append(results, runOne(e, seed))
	}
	return results
}

func runOne(e entry, seed int64) (result Result) {
	result = Result{Name: e.name}
	t := &T{name: e.name, rng: rand.New(rand.NewSource(seed))}
	defer func() {
		if r := recover(); r != nil {
			if t.failed != nil {
				result.Err = t.failed
				return
			}
			result.Err = fmt.Errorf("panic: %v", r)
		}
	}()
	e.fn(t)
	result.Err = t.failed
	return result
}

// masterSeed reads TEST_RNG_SEED, when present, as the master RNG seed;
// otherwise it falls back to a time-based seed so repeated runs without
// the override are still non-deterministic.
func masterSeed() int64 {
	raw, ok := os.LookupEnv("TEST_RNG_SEED")
	if !ok {
		return time.Now().UnixNano()
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		corelog.Err("TEST_RNG_SEED=%q is not a valid integer, using a time-based seed", raw)
		return time.Now().UnixNano()
	}
	corelog.Debug("master rng seeded from TEST_RNG_SEED=%d", seed)
	return seed
}
