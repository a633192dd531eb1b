package export

import "errors"

// Reasons a result produces no row. None of them stop the batch.
var (
	// ErrNoImageReference means the task data holds no image for the result.
	ErrNoImageReference = errors.New("no image reference")

	// ErrUnrecognizedShape means the result is neither a brush mask nor a
	// polygon (labels-only, text, rectangles and so on).
	ErrUnrecognizedShape = errors.New("unrecognized region shape")

	// ErrDuplicateRegion means a row was already emitted for the region id in
	// this annotation.
	ErrDuplicateRegion = errors.New("duplicate region")

	// ErrSizeUnavailable means neither the result nor the image itself gave
	// the original image dimensions.
	ErrSizeUnavailable = errors.New("image size unavailable")
)
