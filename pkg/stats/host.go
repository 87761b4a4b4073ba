package stats

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/samber/lo"
	"golang.org/x/sys/cpu"
)

// HostInfo describes the machine a benchmark ran on.
type HostInfo struct {
	OS            string
	Arch          string
	CPUModel      string
	LogicalCores  int
	PhysicalCores int
	GOMAXPROCS    int
	Features      []string
}

// DetectHost gathers CPU model, core counts and the SIMD extensions that
// matter for the stencil loops.
func DetectHost() HostInfo {
	info := HostInfo{
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUModel:      strings.TrimSpace(cpuid.CPU.BrandName),
		LogicalCores:  runtime.NumCPU(),
		PhysicalCores: cpuid.CPU.PhysicalCores,
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
	}
	if info.CPUModel == "" {
		info.CPUModel = "unknown CPU"
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		info.Features = featureNames(map[string]bool{
			"sse4.1":  cpu.X86.HasSSE41,
			"avx":     cpu.X86.HasAVX,
			"avx2":    cpu.X86.HasAVX2,
			"fma":     cpu.X86.HasFMA,
			"avx512f": cpu.X86.HasAVX512F,
		})
	case "arm64":
		info.Features = featureNames(map[string]bool{
			"asimd": cpu.ARM64.HasASIMD,
			"sve":   cpu.ARM64.HasSVE,
			"sve2":  cpu.ARM64.HasSVE2,
		})
	}
	return info
}

func featureNames(flags map[string]bool) []string {
	names := lo.Keys(lo.PickBy(flags, func(_ string, ok bool) bool { return ok }))
	slices.Sort(names)
	return names
}

func (h HostInfo) String() string {
	features := "none"
	if len(h.Features) > 0 {
		features = strings.Join(h.Features, ",")
	}
	return fmt.Sprintf("%s/%s, %s, %d logical / %d physical cores, GOMAXPROCS=%d, features=%s",
		h.OS, h.Arch, h.CPUModel, h.LogicalCores, h.PhysicalCores, h.GOMAXPROCS, features)
}
