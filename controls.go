package pixedit

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/soypat/geometry/ms2"
)

// Control represents an editable parameter of a filter.
// A successful ChangeValue takes effect on the filter's next Process call.
type Control interface {
	// Display/human readable name and description.
	Describe() (name, description string)
	// ActualValue returns the current value of the control.
	ActualValue() any
	// ChangeValue attempts to update the ActualValue to newValue.
	ChangeValue(newValue any) error
}

// ControlOrdered maps to a slider bounded by Min and Max, both inclusive.
type ControlOrdered[T cmp.Ordered] struct {
	Name        string
	Description string
	Value       T
	Min         T
	Max         T
	Step        T
	OnChange    func(T) error
}

func (co *ControlOrdered[T]) Describe() (name, description string) {
	return co.Name, co.Description
}
func (co *ControlOrdered[T]) ActualValue() any { return co.Value }
func (co *ControlOrdered[T]) ChangeValue(newValue any) error {
	v, ok := newValue.(T)
	if !ok {
		return fmt.Errorf("%s: new value %T not of type %T", co.Name, newValue, co.Value)
	}
	if v < co.Min || v > co.Max {
		return fmt.Errorf("%s: new value %v exceeds limits %v..%v", co.Name, v, co.Min, co.Max)
	}
	return co.commit(v)
}

func (co *ControlOrdered[T]) commit(v T) (err error) {
	if co.OnChange != nil {
		err = co.OnChange(v)
	}
	if err == nil {
		co.Value = v
	}
	return err
}

type integer interface {
	~int | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

type enum interface {
	integer
	fmt.Stringer
}

// ControlEnum maps to dropdown kind of list.
type ControlEnum[T enum] struct {
	Name        string
	Description string
	Value       T
	ValidValues []T
	OnChange    func(T) error
}

func (ce *ControlEnum[T]) Describe() (name, description string) {
	return ce.Name, ce.Description
}
func (ce *ControlEnum[T]) ActualValue() any {
	return ce.Value
}
func (ce *ControlEnum[T]) ChangeValue(newValue any) error {
	v, ok := newValue.(T)
	if !ok {
		return fmt.Errorf("%s: new value %T not of type %T", ce.Name, newValue, ce.Value)
	}
	if !slices.Contains(ce.ValidValues, v) {
		return fmt.Errorf("%s: value %v of %T not valid", ce.Name, v, v)
	}
	var err error
	if ce.OnChange != nil {
		err = ce.OnChange(v)
	}
	if err == nil {
		ce.Value = v
	}
	return err
}

// CurvePoint is a control point for curve-type controls.
// X represents input (0-1), Y represents output (0-1).
type CurvePoint = ms2.Vec

// ControlCurve is a spline curve control with editable control points.
// Points are in normalized 0-1 range for both X (input) and Y (output).
type ControlCurve struct {
	Name        string
	Description string
	Points      []CurvePoint // Control points sorted by X.
	OnChange    func([]CurvePoint) error
}

func (cc *ControlCurve) Describe() (name, description string) {
	return cc.Name, cc.Description
}

func (cc *ControlCurve) ActualValue() any {
	return cc.Points
}

func (cc *ControlCurve) ChangeValue(newValue any) error {
	pts, ok := newValue.([]CurvePoint)
	if !ok {
		return fmt.Errorf("%s: new value %T not of type []CurvePoint", cc.Name, newValue)
	}
	pts, err := NormalizeCurve(pts)
	if err != nil {
		return fmt.Errorf("%s: %w", cc.Name, err)
	}
	if cc.OnChange != nil {
		err = cc.OnChange(pts)
	}
	if err == nil {
		cc.Points = pts
	}
	return err
}

// NormalizeCurve returns a copy of pts sorted by X after checking that every
// coordinate lies in 0..1 and that no two points share an X.
func NormalizeCurve(pts []CurvePoint) ([]CurvePoint, error) {
	if len(pts) < 2 {
		return nil, errors.New("curve needs at least two points")
	}
	for _, p := range pts {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return nil, fmt.Errorf("curve point (%v,%v) outside 0..1", p.X, p.Y)
		}
	}
	sorted := slices.Clone(pts)
	slices.SortFunc(sorted, func(a, b CurvePoint) int { return cmp.Compare(a.X, b.X) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].X == sorted[i-1].X {
			return nil, fmt.Errorf("duplicate curve point at x=%v", sorted[i].X)
		}
	}
	return sorted, nil
}
