package bridge

import "math"

// Scale maps a point in a frameW x frameH frame onto a screenW x screenH
// screen, rounding to the nearest pixel.
func Scale(x, y, frameW, frameH float64, screenW, screenH int) (int, int) {
	sx := math.Round(x / frameW * float64(screenW))
	sy := math.Round(y / frameH * float64(screenH))
	return int(sx), int(sy)
}
