// Package scatter is a sample instance producer: it scatters blades
// uniformly over a square around a pivot and pushes them into a
// core.PositionSink whenever its inputs change.
package scatter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/grass/grassrt/rt/core"
)

// chunkSize positions are generated from one seeded source, so the output
// does not depend on the number of workers.
const chunkSize = 16384

var ErrNegativeCount = errors.New("scatter: negative instance count")

type Params struct {
	Count int
	Pivot mgl32.Vec3
	Seed  int64
}

// Scale is the half extent of the scattered square. It grows with the
// square root of the count so density stays constant.
func (p Params) Scale() float32 {
	return float32(math.Sqrt(float64(p.Count/4))) / 2
}

// BoundSize is the material bound size matching Scale.
func (p Params) BoundSize() mgl32.Vec2 {
	s := p.Scale()
	return mgl32.Vec2{s, s}
}

// Generate returns Count positions uniformly distributed in
// [-Scale, Scale] on X and Z around Pivot, at the pivot's height.
func Generate(ctx context.Context, p Params, workers int) ([]mgl32.Vec3, error) {
	if p.Count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeCount, p.Count)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]mgl32.Vec3, p.Count)
	scale := p.Scale()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < p.Count; start += chunkSize {
		end := min(start+chunkSize, p.Count)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(p.Seed + int64(start/chunkSize)))
			for i := start; i < end; i++ {
				x := (rng.Float32()*2 - 1) * scale
				z := (rng.Float32()*2 - 1) * scale
				out[i] = mgl32.Vec3{x, 0, z}.Add(p.Pivot)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Producer regenerates positions only when its parameters change.
type Producer struct {
	sink    core.PositionSink
	logger  core.Logger
	workers int

	params Params
	cache  Params
	cached bool
}

func NewProducer(sink core.PositionSink, logger core.Logger, params Params) *Producer {
	return &Producer{
		sink:   sink,
		logger: logger,
		params: params,
	}
}

func (p *Producer) Params() Params { return p.params }

func (p *Producer) SetParams(params Params) {
	p.params = params
}

// SetWorkers bounds the number of generation goroutines; zero uses GOMAXPROCS.
func (p *Producer) SetWorkers(n int) {
	p.workers = n
}

// UpdateIfNeeded refreshes the material transform and, if the parameters
// changed since the last successful call, regenerates and pushes positions.
func (p *Producer) UpdateIfNeeded(ctx context.Context) (bool, error) {
	p.sink.SetMaterialTransform(p.params.Pivot, p.params.BoundSize())

	if p.cached && p.params == p.cache {
		return false, nil
	}

	if p.logger != nil {
		p.logger.Debugf("scatter: generating %d positions (seed %d)", p.params.Count, p.params.Seed)
	}
	positions, err := Generate(ctx, p.params, p.workers)
	if err != nil {
		return false, err
	}

	p.sink.SetInstancePositions(positions)
	p.cache = p.params
	p.cached = true
	return true, nil
}
