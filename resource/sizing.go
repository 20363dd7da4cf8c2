//go:build linux

package resource

import "github.com/elastic/gosigar"

// bytesPerSimulatedQubit is the rough working-set cost of one
// simulated physical qubit in the logical-qubit simulator (state
// vector amplitudes plus bookkeeping), used only to size a sane
// default pool when the operator hasn't configured one explicitly.
const bytesPerSimulatedQubit = 1 << 16

// DefaultCapacity sizes a physical qubit pool off a fraction of the
// host's free memory, the way a process sizes its cache off gosigar's
// memory reading rather than a hardcoded constant.
func DefaultCapacity() (uint64, error) {
	var mem sigar.Mem
	if err := mem.Get(); err != nil {
		return 0, err
	}
	budget := mem.Free / 4
	return budget / bytesPerSimulatedQubit, nil
}
