// Package cpuspec derives the inference thread count from the host CPU topology.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	PhysicalCores    int
	LogicalCores     int
	PerformanceCores int
	AVX2             bool
	NEON             bool
}

// GetCPUSpec returns the host CPU specification
func GetCPUSpec() CPUSpec {
	brandName := cpuid.CPU.BrandName

	return CPUSpec{
		BrandName:        brandName,
		PhysicalCores:    cpuid.CPU.PhysicalCores,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PerformanceCores: determinePerformanceCores(brandName),
		AVX2:             cpuid.CPU.Supports(cpuid.AVX2),
		NEON:             cpuid.CPU.Supports(cpuid.ASIMD),
	}
}

// GetOptimalThreadCount returns the recommended number of inference threads.
// Performance cores are preferred on hybrid parts; otherwise physical cores,
// then logical cores. The result never exceeds runtime.NumCPU, which reflects
// container and VM limits, and is at least 1.
func (c CPUSpec) GetOptimalThreadCount() int {
	available := runtime.NumCPU()

	threads := c.PerformanceCores
	if threads <= 0 {
		threads = c.PhysicalCores
	}
	if threads <= 0 {
		threads = c.LogicalCores
	}
	if threads <= 0 || threads > available {
		threads = available
	}
	return max(threads, 1)
}

// ThreadCount resolves a configured thread count. Zero or negative means auto.
func ThreadCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return GetCPUSpec().GetOptimalThreadCount()
}

var (
	intelCoreRegex  = regexp.MustCompile(`intel.*core.*i[3579]-(1[234]\d)00`)
	intelUltraRegex = regexp.MustCompile(`intel.*core.*ultra\s+[579]\s+(?:processor\s+)?(\d{3})`)
	appleRegex      = regexp.MustCompile(`apple\s+(m[1-4](?:\s+(?:pro|max|ultra))?)`)
)

// P-core counts keyed by model prefix, for hybrid parts where using E-cores
// slows inference down.
var (
	intelCorePCores = map[string]int{
		"129": 8, "127": 8, "126": 6, "124": 6, "121": 4,
		"139": 8, "137": 8, "136": 6, "135": 6, "134": 6, "131": 4,
		"149": 8, "147": 8, "146": 6, "144": 6, "141": 4,
	}
	intelUltraPCores = map[string]int{
		"285": 8, "265": 8, "255": 8, "245": 6, "235": 6, "225": 4,
	}
	applePCores = map[string]int{
		"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
		"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
		"m3": 4, "m3 pro": 6, "m3 max": 12, "m3 ultra": 24,
		"m4": 4, "m4 pro": 10, "m4 max": 12,
	}
)

// determinePerformanceCores returns the P-core count of known hybrid CPUs, or 0.
func determinePerformanceCores(brandName string) int {
	brandName = strings.ToLower(brandName)

	if m := intelCoreRegex.FindStringSubmatch(brandName); m != nil {
		return intelCorePCores[m[1]]
	}
	if m := intelUltraRegex.FindStringSubmatch(brandName); m != nil {
		return intelUltraPCores[m[1]]
	}
	if m := appleRegex.FindStringSubmatch(brandName); m != nil {
		return applePCores[strings.Join(strings.Fields(m[1]), " ")]
	}
	return 0
}
