package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePerformanceCores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		brand string
		want  int
	}{
		{"12th Gen Intel(R) Core(TM) i9-12900K", 8},
		{"13th Gen Intel(R) Core(TM) i5-13600K", 6},
		{"Intel(R) Core(TM) i3-14100", 4},
		{"Intel(R) Core(TM) Ultra 7 265K", 8},
		{"Apple M1", 4},
		{"Apple M2 Max", 12},
		{"AMD Ryzen 9 7950X 16-Core Processor", 0},
		{"Intel(R) Core(TM) i7-8700K CPU @ 3.70GHz", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, determinePerformanceCores(tt.brand))
		})
	}
}

func TestGetOptimalThreadCount(t *testing.T) {
	t.Parallel()

	available := runtime.NumCPU()

	tests := []struct {
		name string
		spec CPUSpec
		want int
	}{
		{"performance cores win", CPUSpec{PerformanceCores: 1, PhysicalCores: 8, LogicalCores: 16}, 1},
		{"physical cores next", CPUSpec{PhysicalCores: 1, LogicalCores: 2}, 1},
		{"logical cores last", CPUSpec{LogicalCores: 1}, 1},
		{"nothing known", CPUSpec{}, available},
		{"capped by available", CPUSpec{PhysicalCores: available + 64}, available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.spec.GetOptimalThreadCount())
		})
	}
}

func TestThreadCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, ThreadCount(3))

	auto := ThreadCount(0)
	assert.GreaterOrEqual(t, auto, 1)
	assert.LessOrEqual(t, auto, runtime.NumCPU())
}
