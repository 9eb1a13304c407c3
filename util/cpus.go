package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseCPUList parses lists like "0,2-4" as accepted by taskset(1).
func ParseCPUList(s string) ([]int, error) {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(lo)
		if err != nil || from < 0 {
			return nil, fmt.Errorf("invalid cpu %q", part)
		}
		to := from
		if isRange {
			to, err = strconv.Atoi(hi)
			if err != nil || to < from {
				return nil, fmt.Errorf("invalid cpu range %q", part)
			}
		}
		for cpu := from; cpu <= to; cpu++ {
			seen[cpu] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("empty cpu list %q", s)
	}

	cpus := make([]int, 0, len(seen))
	for cpu := range seen {
		cpus = append(cpus, cpu)
	}
	sort.Ints(cpus)
	return cpus, nil
}
