package endpoint

import (
	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/kernel"
)

// CBRGenerator emits bundles of BundleSize bits back-to-back at a
// constant bit rate between Start and End (§6 traffic input: "rate
// bps"), grounded in DtnCbrBundleGenerator.run. Test 1's "voice
// generator (rate = R, until = T)" is exactly this type.
type CBRGenerator struct {
	k      *kernel.Kernel
	alloc  *bundle.IDAllocator
	target Target

	Orig, Dest, DataType string
	RateBps              float64
	BundleSize           float64 // bits per bundle
	TTL                  int64
	Critical             bool
	Start, End           int64
}

// NewCBRGenerator returns a CBRGenerator originating from orig.
func NewCBRGenerator(k *kernel.Kernel, alloc *bundle.IDAllocator, target Target) *CBRGenerator {
	return &CBRGenerator{k: k, alloc: alloc, target: target}
}

// Run schedules the first bundle at Start; each subsequent one follows
// after BundleSize/RateBps ticks, the time a bundle of that size takes
// to originate at the configured rate, until End. Every bundle whose
// nominal time falls within one tick is originated at that tick.
func (g *CBRGenerator) Run(k *kernel.Kernel) {
	if g.RateBps <= 0 || g.BundleSize <= 0 {
		return
	}
	delay := g.Start - k.Now()
	if delay < 0 {
		delay = 0
	}
	k.After(delay, func(k *kernel.Kernel) { g.emit(k, float64(k.Now())) })
}

func (g *CBRGenerator) emit(k *kernel.Kernel, next float64) {
	for next < float64(k.Now()+1) {
		if next >= float64(g.End) {
			return
		}
		b := bundle.New(g.alloc, g.Orig, g.Dest, g.DataType, g.BundleSize, g.TTL, g.Critical, k.Now())
		g.target.Originate(b)
		next += g.BundleSize / g.RateBps
	}
	k.At(int64(next), func(k *kernel.Kernel) { g.emit(k, next) })
}

// FileGenerator originates a single file of TotalBits, chunked into
// BundleSize-bit bundles sent back-to-back starting at Start, grounded
// in DtnFileBundleGenerator.run. Test 1's "file generator of size S" is
// this type; a trailing bundle smaller than BundleSize carries the
// remainder.
type FileGenerator struct {
	k      *kernel.Kernel
	alloc  *bundle.IDAllocator
	target Target

	Orig, Dest, DataType string
	TotalBits            float64
	BundleSize           float64
	TTL                  int64
	Critical             bool
	Start                int64
	RateBps              float64 // pacing rate between bundles; 0 sends all at Start
}

// NewFileGenerator returns a FileGenerator originating from orig.
func NewFileGenerator(k *kernel.Kernel, alloc *bundle.IDAllocator, target Target) *FileGenerator {
	return &FileGenerator{k: k, alloc: alloc, target: target}
}

func (g *FileGenerator) Run(k *kernel.Kernel) {
	if g.TotalBits <= 0 || g.BundleSize <= 0 {
		return
	}
	delay := g.Start - k.Now()
	if delay < 0 {
		delay = 0
	}
	k.After(delay, func(k *kernel.Kernel) { g.emit(k, g.TotalBits) })
}

func (g *FileGenerator) emit(k *kernel.Kernel, remaining float64) {
	if remaining <= 0 {
		return
	}
	size := g.BundleSize
	if remaining < size {
		size = remaining
	}
	b := bundle.New(g.alloc, g.Orig, g.Dest, g.DataType, size, g.TTL, g.Critical, k.Now())
	g.target.Originate(b)
	next := remaining - size
	if next <= 0 {
		return
	}
	var delay int64
	if g.RateBps > 0 {
		delay = int64(size / g.RateBps)
	}
	k.After(delay, func(k *kernel.Kernel) { g.emit(k, next) })
}

// MarkovGenerator is a 2-state (ON/OFF) Markov-modulated CBR source
// (§12 supplement, grounded in DtnMarkovBundleGenerator's stub plus the
// "duty cycle"/"on-duration" fields §6 already names): while ON it
// behaves like CBRGenerator at RateBps; OnDuration fixes the ON sojourn
// and DutyCycle derives the OFF sojourn (off = on*(1-duty)/duty).
type MarkovGenerator struct {
	k      *kernel.Kernel
	alloc  *bundle.IDAllocator
	target Target

	Orig, Dest, DataType string
	RateBps              float64
	BundleSize           float64
	TTL                  int64
	Critical             bool
	Start, End           int64
	OnDuration           int64
	DutyCycle            float64 // in (0, 1]
}

// NewMarkovGenerator returns a MarkovGenerator originating from orig.
func NewMarkovGenerator(k *kernel.Kernel, alloc *bundle.IDAllocator, target Target) *MarkovGenerator {
	return &MarkovGenerator{k: k, alloc: alloc, target: target}
}

func (g *MarkovGenerator) offDuration() int64 {
	if g.DutyCycle <= 0 {
		return 0
	}
	return int64(float64(g.OnDuration) * (1 - g.DutyCycle) / g.DutyCycle)
}

func (g *MarkovGenerator) Run(k *kernel.Kernel) {
	if g.RateBps <= 0 || g.BundleSize <= 0 || g.OnDuration <= 0 {
		return
	}
	delay := g.Start - k.Now()
	if delay < 0 {
		delay = 0
	}
	k.After(delay, g.enterOn)
}

func (g *MarkovGenerator) enterOn(k *kernel.Kernel) {
	if k.Now() >= g.End {
		return
	}
	onEnd := k.Now() + g.OnDuration
	if onEnd > g.End {
		onEnd = g.End
	}
	g.emit(k, onEnd, float64(k.Now()))
}

func (g *MarkovGenerator) emit(k *kernel.Kernel, onEnd int64, next float64) {
	for next < float64(k.Now()+1) && next < float64(onEnd) {
		b := bundle.New(g.alloc, g.Orig, g.Dest, g.DataType, g.BundleSize, g.TTL, g.Critical, k.Now())
		g.target.Originate(b)
		next += g.BundleSize / g.RateBps
	}
	if next >= float64(onEnd) {
		off := g.offDuration()
		if onEnd+off >= g.End {
			return
		}
		k.At(onEnd+off, g.enterOn)
		return
	}
	k.At(int64(next), func(k *kernel.Kernel) { g.emit(k, onEnd, next) })
}
