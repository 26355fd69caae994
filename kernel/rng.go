package kernel

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible run. Two runs with the
// same SimulationKey and identical configuration must produce bit-for-bit
// identical results — this is what §9's "bind global counters to the
// simulation instance" redesign note demands for randomness as well as
// for id counters.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a scenario seed.
func NewSimulationKey(seed int64) SimulationKey { return SimulationKey(seed) }

// Subsystem names used to derive independent RNG streams. Each duct,
// radio, and router draws from its own stream so that, e.g., adding a
// second radio to a scenario does not perturb the BER draws of an
// unrelated radio already present.
const (
	SubsystemTraffic    = "traffic"    // bundle generators (CBR/file/Markov)
	SubsystemRadio      = "radio"      // BER/FER stochastic error draws
	SubsystemConnection = "connection" // MER has_errors draws
	SubsystemRouter     = "router"     // opportunistic/epidemic tie-breaks
)

// SubsystemInstance names a per-instance stream, e.g. one radio among
// several of the same kind on a node.
func SubsystemInstance(name string, id int) string {
	return fmt.Sprintf("%s_%d", name, id)
}

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem, all derived from a single scenario seed. Grounded in the
// teacher's SimulationKey/PartitionedRNG (sim/rng.go), generalized from
// workload/router subsystems to the DTN subsystem set above.
//
// Not safe for concurrent use; the kernel runs single-threaded, so every
// subsystem call happens from the same goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, subsystems: make(map[string]*rand.Rand)}
}

// ForSubsystem returns a deterministically-seeded RNG for name, caching
// it so repeated calls return the same stream.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derivedSeed := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey this PartitionedRNG was derived from.
func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
