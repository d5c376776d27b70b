package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/setanarut/mgflow"
)

var ErrMissingReference = errors.New("reference flow not found")

// ReferencePaths derives the reference flow images belonging to a frame:
// the frame path with its last five bytes (e.g. "1.bmp") replaced by
// "ref_u.bmp" and "ref_v.bmp".
func ReferencePaths(framePath string) (pathU, pathV string) {
	base := framePath[:max(0, len(framePath)-5)]
	return base + "ref_u.bmp", base + "ref_v.bmp"
}

// LoadReference reads the reference flow of framePath. Reference images
// store [-1, 1] as [0, 1] gray.
func LoadReference(framePath string) (refU, refV *mgflow.Grid, err error) {
	pathU, pathV := ReferencePaths(framePath)
	for _, p := range []string{pathU, pathV} {
		if _, err := os.Stat(p); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingReference, p)
		}
	}
	if refU, err = ReadGrayGrid(pathU); err != nil {
		return nil, nil, err
	}
	if refV, err = ReadGrayGrid(pathV); err != nil {
		return nil, nil, err
	}
	for _, g := range []*mgflow.Grid{refU, refV} {
		g.Scale(2)
		g.AddScalar(-1)
	}
	return refU, refV, nil
}

// FitReference crops the reference components to the shape of flow. A
// reference written at frame size is one row and column larger than the flow;
// the comparison covers the overlapping window. References smaller than flow
// are rejected.
func FitReference(flow *mgflow.FlowField, refU, refV *mgflow.Grid) (*mgflow.Grid, *mgflow.Grid, error) {
	sh := flow.Shape()
	for _, g := range []*mgflow.Grid{refU, refV} {
		if g.Rows() < sh.Rows || g.Cols() < sh.Cols {
			return nil, nil, fmt.Errorf("reference is %v, smaller than flow %v", g.Shape(), sh)
		}
	}
	return refU.Resize(sh), refV.Resize(sh), nil
}

// CompareWithReference returns the mean relative error of flow against the
// reference flow of framePath, or ErrMissingReference.
func CompareWithReference(flow *mgflow.FlowField, framePath string, norm mgflow.Norm) (float64, error) {
	refU, refV, err := LoadReference(framePath)
	if err != nil {
		return 0, err
	}
	if refU, refV, err = FitReference(flow, refU, refV); err != nil {
		return 0, err
	}
	return flow.Compare(refU, refV, norm), nil
}

// ReferenceDiffs returns ref - flow per component. The references must have
// the shape of flow; see FitReference.
func ReferenceDiffs(flow *mgflow.FlowField, refU, refV *mgflow.Grid) (du, dv *mgflow.Grid) {
	du, dv = flow.U.Clone(), flow.V.Clone()
	du.Scale(-1)
	du.Add(refU)
	dv.Scale(-1)
	dv.Add(refV)
	return du, dv
}
