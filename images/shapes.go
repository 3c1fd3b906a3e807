// Package images - Image geometry and loading utilities.
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned rectangle in image pixel coordinates.
//
// Right >= Left and Bottom >= Top hold only when the values that produced the
// rectangle were well-formed; nothing here enforces it.
type Rect struct {
	Left   float32 `json:"left" yaml:"left"`
	Top    float32 `json:"top" yaml:"top"`
	Right  float32 `json:"right" yaml:"right"`
	Bottom float32 `json:"bottom" yaml:"bottom"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float32 {
	return r.Right - r.Left
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float32 {
	return r.Bottom - r.Top
}

// Area returns Width * Height. Inverted rectangles yield a negative area.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// ToRectangle converts the rectangle to an image.Rectangle, truncating the
// fractional pixels and canonicalizing the corners.
//
// Returns:
//   - image.Rectangle: The integral rectangle.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f, %.2f, %.2f, %.2f]", r.Left, r.Top, r.Right, r.Bottom)
}

// CalculateIoU computes the Intersection over Union of two rectangles.
//
// IoU answers "how much do these two rectangles overlap?" with a number
// between 0.0 and 1.0:
//
//	IoU = Area of Intersection / Area of Union
//
//	- 1.0 means the rectangles are identical.
//	- 0.0 means the rectangles don't overlap at all.
//
// The intersection's top-left corner is the maximum of the two top-left
// corners and its bottom-right corner is the minimum of the two bottom-right
// corners. A non-positive intersection width or height clamps the
// intersection area to zero.
//
// The union follows the Principle of Inclusion-Exclusion:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// Degenerate input (a union area of zero or below, e.g. two zero-area
// rectangles) returns 0 rather than NaN.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	a := Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}
//	b := Rect{Left: 5, Top: 5, Right: 15, Bottom: 15}
//
//	fmt.Printf("%f\n", CalculateIoU(a, b)) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	interW := math32.Max(0, math32.Min(r.Right, o.Right)-math32.Max(r.Left, o.Left))
	interH := math32.Max(0, math32.Min(r.Bottom, o.Bottom)-math32.Max(r.Top, o.Top))
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	return interArea / unionArea
}
