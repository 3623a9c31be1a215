package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Detector is the interface for host detection.
type Detector interface {
	Detect(ctx context.Context) (Host, error)
}

// RealDetector implements Detector against the running machine.
type RealDetector struct {
	// kernelArch is swapped in tests.
	kernelArch func() (string, error)
}

// NewDetector creates a new host detector.
func NewDetector() *RealDetector {
	return &RealDetector{kernelArch: host.KernelArch}
}

// Detect reports the host OS and architecture.
//
// The architecture comes from the kernel. If the kernel cannot be queried the
// Go architecture of the launcher is used instead, which still resolves on
// every supported platform except armv7.
func (d *RealDetector) Detect(ctx context.Context) (Host, error) {
	if err := ctx.Err(); err != nil {
		return Host{}, fmt.Errorf("platform detection cancelled: %w", err)
	}

	h := Host{
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		ArchRaw: runtime.GOARCH,
	}

	kernelArch := d.kernelArch
	if kernelArch == nil {
		kernelArch = host.KernelArch
	}
	if arch, err := kernelArch(); err == nil && strings.TrimSpace(arch) != "" {
		h.Arch = strings.TrimSpace(arch)
	}

	return h, nil
}

// Detect reports the host using a RealDetector.
func Detect(ctx context.Context) (Host, error) {
	return NewDetector().Detect(ctx)
}
