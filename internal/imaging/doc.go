// Package imaging provides the pixel-level operations of the segmentation
// export: caching decoded images and aggregating intensities under a mask.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner of the image bounds, X increases
// rightward, and Y increases downward. Masks from package mask are addressed
// relative to the image's Bounds().Min, so images decoded with a non-zero
// origin are handled transparently.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. MeanIntensities is stateless
// and can be called concurrently on the same image as long as nobody mutates
// it.
//
// # Color Representation
//
// Means are reported on the 8-bit scale (0-255) regardless of the source bit
// depth:
//   - Gray: BT.601 luminance of each pixel, averaged over the mask
//   - R, G, B: non-premultiplied channel values, averaged over the mask
//
// Single-channel sources produce only Gray.
//
// # Error Handling
//
// MeanIntensities returns ErrDimensionMismatch when the mask does not match
// the image size. An empty mask is not an error; it yields no values.
package imaging
