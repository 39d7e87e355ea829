package device

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
)

// Kind names a compute backend.
type Kind string

// CPU is the only backend compiled into this binary.
const CPU Kind = "cpu"

// ErrNoCUDA is returned when a CUDA device is requested explicitly.
var ErrNoCUDA = errors.New("device: no CUDA backend available")

// Device is the compute handle selected once at startup.
type Device struct {
	Kind    Kind
	Name    string
	Threads int
	AVX2    bool
}

func (d Device) String() string {
	return fmt.Sprintf("%s (%s, %d threads)", d.Kind, d.Name, d.Threads)
}

// Select resolves a device name. "auto" falls back to the CPU when no
// accelerator is present, which is always the case here.
func Select(name string) (Device, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); {
	case n == "" || n == "auto" || n == "cpu":
		return hostCPU(), nil
	case strings.HasPrefix(n, "cuda"):
		return Device{}, errors.Wrapf(ErrNoCUDA, "select %q", name)
	default:
		return Device{}, errors.Errorf("device: unknown device %q", name)
	}
}

func hostCPU() Device {
	threads := cpuid.CPU.LogicalCores
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}
	return Device{
		Kind:    CPU,
		Name:    brand,
		Threads: threads,
		AVX2:    cpuid.CPU.Supports(cpuid.AVX2),
	}
}
