// Package qubit implements the logical qubit simulator (component C6):
// a bounded, deterministic stand-in for a fault-tolerant qubit, tagged
// by a coarse stabilizer basis rather than a full amplitude vector, plus
// an accumulated-error counter driven by its QEC profile's physical
// error rate.
package qubit

import "time"

// Profile is an opaque QEC descriptor: the kernel treats the
// Surface/SHYPS/Bacon-Shor code family's cost and fidelity formulas as
// someone else's problem and just carries the numbers a code family
// publishes about itself.
type Profile struct {
	CodeFamily         string
	Distance           int
	PhysicalPerLogical int
	CycleTime          time.Duration
	PhysicalErrorRate  float64
}

// BitmapBytes is the size of the zeroed physical-qubit bitmap template
// this profile draws from resource.TemplateCache: one byte per physical
// qubit's reset-state flag.
func (p Profile) BitmapBytes() int {
	if p.PhysicalPerLogical <= 0 {
		return 0
	}
	return p.PhysicalPerLogical
}
