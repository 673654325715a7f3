package pkernel

import (
	"time"

	"github.com/joeycumines/logiface"
)

// bootConfig holds configuration resolved from BootOption values.
type bootConfig struct {
	kernelStackBytes uint64
	arenaBytes       uint64
	allocTableSize   int
	processSlots     int
	cpuHz            int
	tickHz           int
	logger           *logiface.Logger[logiface.Event]
	getTime          func() time.Time
	setTime          func(time.Time)
}

// --- Boot Options ---

// BootOption configures a Kernel at Boot time.
type BootOption interface {
	applyBoot(*bootConfig) error
}

// bootOptionImpl implements BootOption.
type bootOptionImpl struct {
	applyBootFunc func(*bootConfig) error
}

func (o *bootOptionImpl) applyBoot(cfg *bootConfig) error {
	return o.applyBootFunc(cfg)
}

// WithArena sets the size, in bytes, of the contiguous RAM region the
// allocator manages, and the number of entries in its allocation table.
func WithArena(bytes uint64, tableSize int) BootOption {
	return &bootOptionImpl{func(cfg *bootConfig) error {
		if bytes == 0 || tableSize < 2 {
			return WrapError("WithArena", ErrInvalidArgument)
		}
		cfg.arenaBytes = bytes
		cfg.allocTableSize = tableSize
		return nil
	}}
}

// WithProcessSlots sets the fixed size of the process table, including the
// slot reserved for the idle process.
func WithProcessSlots(n int) BootOption {
	return &bootOptionImpl{func(cfg *bootConfig) error {
		if n < 1 {
			return WrapError("WithProcessSlots", ErrInvalidArgument)
		}
		cfg.processSlots = n
		return nil
	}}
}

// WithLogger installs a logiface logger used for kernel lifecycle and
// error events. If not supplied, Boot installs a logger that discards
// everything.
func WithLogger(logger *logiface.Logger[logiface.Event]) BootOption {
	return &bootOptionImpl{func(cfg *bootConfig) error {
		cfg.logger = logger
		return nil
	}}
}

// WithRTC installs the external real-time-clock hook pair named in
// spec.md §6: if installed, Kernel.Time and Kernel.SetTime forward to it
// instead of operating on the kernel's internal Now.
func WithRTC(getTime func() time.Time, setTime func(time.Time)) BootOption {
	return &bootOptionImpl{func(cfg *bootConfig) error {
		cfg.getTime = getTime
		cfg.setTime = setTime
		return nil
	}}
}

// resolveBootOptions applies BootOption instances over kernel defaults.
func resolveBootOptions(kernelStackBytes uint64, cpuHz, tickHz int, opts []BootOption) (*bootConfig, error) {
	cfg := &bootConfig{
		kernelStackBytes: kernelStackBytes,
		arenaBytes:       64 * 1024,
		allocTableSize:   32,
		processSlots:     16,
		cpuHz:            cpuHz,
		tickHz:           tickHz,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyBoot(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = NewDiscardLogger()
	}
	return cfg, nil
}
