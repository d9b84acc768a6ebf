package tunable

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
)

// Tunable is a named value that can be adjusted while the robot is running.
type Tunable struct {
	Name string
	bits uint64
}

func (t *Tunable) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&t.bits))
}

func (t *Tunable) Set(v float64) {
	atomic.StoreUint64(&t.bits, math.Float64bits(v))
}

func (t *Tunable) String() string {
	return fmt.Sprintf("%s=%v", t.Name, t.Get())
}

type Tunables struct {
	All []*Tunable
}

// Create registers a new tunable, or returns the existing one with that name.
func (t *Tunables) Create(name string, value float64) *Tunable {
	if existing := t.Lookup(name); existing != nil {
		return existing
	}
	newTunable := &Tunable{Name: name}
	newTunable.Set(value)
	t.All = append(t.All, newTunable)
	return newTunable
}

func (t *Tunables) Lookup(name string) *Tunable {
	for _, tun := range t.All {
		if tun.Name == name {
			return tun
		}
	}
	return nil
}

// Apply sets each named tunable.  Unknown names are an error so that typos in
// config files don't go unnoticed; nothing is changed in that case.
func (t *Tunables) Apply(values map[string]float64) error {
	var unknown []string
	for name := range values {
		if t.Lookup(name) == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown tunables: %v", unknown)
	}
	for name, v := range values {
		t.Lookup(name).Set(v)
	}
	return nil
}

// Values snapshots every tunable.
func (t *Tunables) Values() map[string]float64 {
	values := make(map[string]float64, len(t.All))
	for _, tun := range t.All {
		values[tun.Name] = tun.Get()
	}
	return values
}
