package agemodel

import (
	"context"
	"math"
	"math/rand"
)

// MonotoneSampler fits a piecewise linear age-depth model by Monte Carlo:
// each draw perturbs every dated point within its reported uncertainty and
// enforces that age never decreases downcore. Marine radiocarbon dates are
// reservoir corrected before sampling. It is a fallback for when no
// external calibration sampler is wired in, not a replacement for one.
type MonotoneSampler struct {
	// Seed fixes the random stream. Zero derives a seed from the input so
	// repeated runs over the same chronology stay reproducible.
	Seed int64
}

// node is one depth the model is evaluated at.
type node struct {
	depth, age, err float64
}

func (s *MonotoneSampler) Sample(ctx context.Context, in *Input, draws int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := modelNodes(in)
	seed := s.Seed
	if seed == 0 {
		seed = seedFrom(in)
	}
	rng := rand.New(rand.NewSource(seed))

	res := &Result{
		Depths:   make([]float64, len(nodes)),
		Ensemble: make([][]float64, len(nodes)),
	}
	for i := range nodes {
		res.Depths[i] = nodes[i].depth
		res.Ensemble[i] = make([]float64, draws)
	}

	ages := make([]float64, len(nodes))
	for j := 0; j < draws; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range nodes {
			age := nodes[i].age + rng.NormFloat64()*nodes[i].err
			ages[i] = math.Min(math.Max(age, in.MinYear), in.MaxYear)
		}
		// age must not decrease downcore
		for i := 1; i < len(ages); i++ {
			if ages[i] < ages[i-1] {
				ages[i] = ages[i-1]
			}
		}
		for i := range nodes {
			res.Ensemble[i][j] = ages[i]
		}
	}
	return res, nil
}

// modelNodes lays dated points out on a strictly increasing depth grid
// spanning the full input range. Points sharing a depth merge into one node
// with pooled uncertainty. When samples sit above the first date the surface
// is pinned at MinYear, below the last date the final segment's slope is
// extended.
func modelNodes(in *Input) []node {
	nodes := make([]node, 0, len(in.Points)+2)
	for _, p := range in.Points {
		age, err := p.Age, p.Error
		if p.Curve == CurveMarine {
			age -= p.DeltaR
			err = math.Hypot(err, p.DeltaRError)
		}
		if n := len(nodes); n > 0 && nodes[n-1].depth == p.Depth {
			prev := &nodes[n-1]
			prev.age = (prev.age + age) / 2
			prev.err = math.Hypot(prev.err, err) / 2
			continue
		}
		nodes = append(nodes, node{depth: p.Depth, age: age, err: err})
	}

	if in.DepthMin < nodes[0].depth {
		nodes = append([]node{{depth: in.DepthMin, age: in.MinYear}}, nodes...)
	}
	if n := len(nodes); in.DepthMax > nodes[n-1].depth {
		last := nodes[n-1]
		slope := 0.0
		if n > 1 {
			prev := nodes[n-2]
			slope = (last.age - prev.age) / (last.depth - prev.depth)
		}
		nodes = append(nodes, node{
			depth: in.DepthMax,
			age:   last.age + slope*(in.DepthMax-last.depth),
			err:   last.err,
		})
	}
	return nodes
}

func seedFrom(in *Input) int64 {
	h := int64(len(in.Points))
	for _, p := range in.Points {
		h = h*31 + int64(math.Float64bits(p.Depth)>>17)
		h = h*31 + int64(math.Float64bits(p.Age)>>17)
	}
	if h == 0 {
		h = 1
	}
	return h
}
