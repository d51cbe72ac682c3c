package store

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/LdDl/conveyor-inspect/inspect"
)

// WriteCSV writes ledger as ';' separated CSV with header
func WriteCSV(w io.Writer, ledger []inspect.CountedProduct) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	if err := writer.Write([]string{"track_id", "class", "rotation_degrees", "scale_factor", "frame_index"}); err != nil {
		return errors.Wrap(err, "Can't write CSV header")
	}
	for _, product := range ledger {
		record := []string{
			strconv.Itoa(product.TrackID),
			product.Class.String(),
			strconv.FormatFloat(product.RotationDegrees, 'f', 2, 64),
			strconv.FormatFloat(product.ScaleFactor, 'f', 3, 64),
			strconv.Itoa(product.FrameIndex),
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "Can't write CSV row of track %d", product.TrackID)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "Can't flush CSV")
}
