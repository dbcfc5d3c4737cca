package camera

// previewMax caps the larger preview dimension, in display units.
const previewMax = 400.0

// PreviewSize scales a desired resolution so the larger dimension equals the
// preview cap while preserving aspect ratio. Non-positive input yields a
// zero-sized preview.
func PreviewSize(desired Resolution) (width, height float64) {
	if desired.Width <= 0 || desired.Height <= 0 {
		return 0, 0
	}
	w := float64(desired.Width)
	h := float64(desired.Height)
	if desired.Width > desired.Height {
		return previewMax, previewMax * h / w
	}
	return previewMax * w / h, previewMax
}
