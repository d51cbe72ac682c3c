package detector

import (
	"github.com/pkg/errors"
)

// ErrNoOpenCV is returned when the binary was built without the gocv build tag
var ErrNoOpenCV = errors.New("detector: built without OpenCV support (use -tags gocv)")
