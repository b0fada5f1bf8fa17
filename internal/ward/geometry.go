package ward

// Vec2 is a position in ward coordinates.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the component-wise sum of v and o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Facing records which way a doctor sprite looks.
type Facing int8

const (
	FacingRight Facing = 1
	FacingLeft  Facing = -1
)

func (f Facing) String() string {
	if f == FacingLeft {
		return "left"
	}
	return "right"
}

func (f Facing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// stepAxis advances current toward dest by at most step. The result is
// clamped to dest on overshoot; arrived reports whether dest was reached.
func stepAxis(current, dest, step float64) (next float64, arrived bool) {
	delta := dest - current
	if delta == 0 {
		return dest, true
	}
	if step <= 0 {
		return current, false
	}
	if delta > 0 {
		if delta <= step {
			return dest, true
		}
		return current + step, false
	}
	if -delta <= step {
		return dest, true
	}
	return current - step, false
}
