package pipeline

import (
	"time"

	"github.com/Andraszao/Image-Preprocessor/internal/config"
	"github.com/Andraszao/Image-Preprocessor/internal/convert"
	"github.com/Andraszao/Image-Preprocessor/internal/logging"
	"github.com/Andraszao/Image-Preprocessor/internal/tensor"
)

// ConvertOne converts a single image and logs its tensor statistics. Used
// for debugging a conversion setup without touching the output directory.
func ConvertOne(cfg *config.Config, log *logging.Logger, path string) error {
	pool := tensor.NewPool(cfg.Width, cfg.Height, cfg.Channels, 1)
	nrm := convert.New(cfg.Width, cfg.Height, cfg.Channels, pool)

	t0 := time.Now()
	im, err := nrm.Convert(path)
	if err != nil {
		return err
	}
	elapsed := time.Since(t0)

	log.Success("Converted %s in %s", path, elapsed.Round(time.Microsecond))
	log.Info("  Geometry: %dx%dx%d (%d values)", im.Width, im.Height, im.Channels, im.Len())
	log.Info("  Range: [%.6f, %.6f], mean %.6f", im.Min(), im.Max(), im.Mean())

	pool.Release(im)
	return nil
}
