package utils

import (
	"errors"
	"image"
	"image/color"
	"log"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/setanarut/mgflow"
)

type MotionMethod int

const (
	MotionMethodKMeans MotionMethod = iota
	MotionMethodDominantColor
)

func (m MotionMethod) String() string {
	switch m {
	case MotionMethodDominantColor:
		return "dominantcolor"
	default:
		return "kmeans"
	}
}

// ParseMotionMethod accepts the names returned by String.
func ParseMotionMethod(s string) (MotionMethod, error) {
	switch s {
	case "kmeans":
		return MotionMethodKMeans, nil
	case "dominantcolor":
		return MotionMethodDominantColor, nil
	}
	return 0, errors.New("unknown motion method " + s)
}

// Motion is one representative displacement of a flow field. Weight is the
// share of pixels it stands for (kmeans) or its colour weight
// (dominantcolor), in [0, 1].
type Motion struct {
	U, V   float64
	Weight float64
}

func (m Motion) Magnitude() float64 { return math.Hypot(m.U, m.V) }

// ExtractMotions summarizes flow by at most k representative motions,
// strongest first.
func ExtractMotions(flow *mgflow.FlowField, k int, method MotionMethod) []Motion {
	switch method {
	case MotionMethodDominantColor:
		return ExtractDominantMotions(flow, k)
	default:
		m := ExtractKMeansMotions(flow, k)
		if len(m) != 0 {
			return m
		}
		log.Println("motion warning: kmeans returned no motions, falling back to dominantcolor")
		return ExtractDominantMotions(flow, k)
	}
}

// ExtractDominantMotions finds the dominant colours of the colour-coded flow
// and decodes them back to displacements.
func ExtractDominantMotions(flow *mgflow.FlowField, k int) []Motion {
	if k <= 0 {
		return nil
	}
	scale := MaxMagnitude(flow)
	if scale == 0 {
		return []Motion{{Weight: 1}}
	}

	candidates := dominantcolor.FindWeight(FlowColorImage(flow, scale), max(24, k*8))
	cands := make([]Motion, 0, len(candidates))
	for _, c := range candidates {
		col, _ := colorful.MakeColor(c.RGBA)
		u, v := ColorMotion(col, scale)
		cands = append(cands, Motion{U: u, V: v, Weight: c.Weight})
	}
	return SelectDiverseMotions(cands, k)
}

// ExtractKMeansMotions clusters the (u, v) samples of flow. Large fields are
// subsampled.
func ExtractKMeansMotions(flow *mgflow.FlowField, k int) []Motion {
	if k <= 0 {
		return nil
	}
	sh := flow.Shape()
	if sh.Rows == 0 || sh.Cols == 0 {
		return nil
	}
	scale := MaxMagnitude(flow)
	if scale == 0 {
		return []Motion{{Weight: 1}}
	}

	maxSamples := 12000
	step := 1
	if sh.Rows*sh.Cols > maxSamples {
		step = int(math.Sqrt(float64(sh.Rows*sh.Cols)/float64(maxSamples))) + 1
	}

	// Cluster in the unit square so the random seeds land among the samples.
	dataset := make(clusters.Observations, 0, min(sh.Rows*sh.Cols, maxSamples))
	for i := 0; i < sh.Rows; i += step {
		for j := 0; j < sh.Cols; j += step {
			dataset = append(dataset, clusters.Coordinates{
				(flow.U.At(i, j)/scale + 1) / 2,
				(flow.V.At(i, j)/scale + 1) / 2,
			})
		}
	}

	workK := min(max(k*4, k+2), len(dataset))
	km := kmeans.New()
	cc, err := km.Partition(dataset, workK)
	if err != nil || len(cc) == 0 {
		return nil
	}

	cands := make([]Motion, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 2 {
			continue
		}
		cands = append(cands, Motion{
			U:      (2*c.Center[0] - 1) * scale,
			V:      (2*c.Center[1] - 1) * scale,
			Weight: float64(len(c.Observations)) / float64(len(dataset)),
		})
	}
	return SelectDiverseMotions(cands, k)
}

// SelectDiverseMotions picks k candidates, seeded with the heaviest one and
// then greedily maximizing the distance to those already picked, scaled
// towards heavier candidates. The result is ordered by weight.
func SelectDiverseMotions(cands []Motion, k int) []Motion {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	maxW := 0.0
	for i := range cands {
		if cands[i].Weight <= 0 {
			cands[i].Weight = 1e-6
		}
		maxW = max(maxW, cands[i].Weight)
	}
	k = min(k, len(cands))

	selected := make([]bool, len(cands))
	seed := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].Weight > cands[seed].Weight {
			seed = i
		}
	}
	picked := []int{seed}
	selected[seed] = true

	for len(picked) < k {
		bestIdx := -1
		bestScore := -1.0
		for i := range cands {
			if selected[i] {
				continue
			}
			minD := math.MaxFloat64
			for _, s := range picked {
				minD = min(minD, math.Hypot(cands[i].U-cands[s].U, cands[i].V-cands[s].V))
			}
			score := minD * (0.55 + 0.45*math.Sqrt(cands[i].Weight/maxW))
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		selected[bestIdx] = true
		picked = append(picked, bestIdx)
	}

	out := make([]Motion, 0, len(picked))
	for _, idx := range picked {
		out = append(out, cands[idx])
	}
	slices.SortStableFunc(out, func(a, b Motion) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	return out
}

// SaveMotionPalette writes one colour-coded tile per motion, relative to the
// fastest of them.
func SaveMotionPalette(motions []Motion, tileSize int, filename string) error {
	if len(motions) == 0 {
		return errors.New("no motions")
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	scale := 0.0
	for _, m := range motions {
		scale = max(scale, m.Magnitude())
	}

	img := image.NewRGBA(image.Rect(0, 0, tileSize*len(motions), tileSize))
	for i, m := range motions {
		r, g, b := FlowColor(m.U, m.V, scale).RGB255()
		x0 := i * tileSize
		for y := range tileSize {
			for x := x0; x < x0+tileSize; x++ {
				img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}
	return SaveImage(img, filename)
}
