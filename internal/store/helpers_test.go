package store

import (
	"io"
	"log/slog"

	"github.com/LdDl/conveyor-inspect/mot"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func point(x, y float64) mot.Point {
	return mot.NewPoint(x, y)
}
