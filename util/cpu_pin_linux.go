//go:build linux

package util

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PinTo restricts the calling thread to cpus. Callers should hold
// runtime.LockOSThread for the pin to stick to a goroutine.
func PinTo(cpus ...int) error {
	set := &unix.CPUSet{}
	for _, cpu := range cpus {
		set.Set(cpu)
	}

	if err := unix.SchedSetaffinity(0, set); err != nil {
		return fmt.Errorf("sched_setaffinity %v: %w", cpus, err)
	}

	verify := &unix.CPUSet{}
	if err := unix.SchedGetaffinity(0, verify); err != nil {
		return fmt.Errorf("sched_getaffinity: %w", err)
	}

	if verify.Count() != len(cpus) {
		return fmt.Errorf("could not pin to CPUs %v", cpus)
	}
	for _, cpu := range cpus {
		if !verify.IsSet(cpu) {
			return fmt.Errorf("could not pin to CPUs %v", cpus)
		}
	}

	return nil
}
