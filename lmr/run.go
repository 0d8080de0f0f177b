package lmr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"proxysift/export"
	"proxysift/state"
)

// Run converts previously exported NetCDF proxy datasets into the flat LMR
// store. SOURCE is one dataset or a directory of them, DESTINATION the
// SQLite database file.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("lmr")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		return errors.New("no database destination has been specified")
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoSeasons = cmd.Bool("annual")

	opts := Options{
		ModernSeasonality:   env.Cfg.LMR.ModernSeasonality && !env.NoSeasons,
		DatabaseLabels:      env.Cfg.LMR.DatabaseLabels,
		IceVolumeCorrection: env.Cfg.LMR.IceVolumeCorrection && !cmd.Bool("no-icevol"),
	}
	if cmd.IsSet("ensemble") {
		draw := int(cmd.Int("ensemble"))
		opts.EnsembleIndex = &draw
	}

	files, err := collectDatasets(src)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Debug("Nothing to convert", zap.String("source", src))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	store, err := OpenStore(dst)
	if err != nil {
		return fmt.Errorf("unable to open proxy store: %w", err)
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	log.Info("Conversion starting", zap.String("source", src), zap.String("destination", dst), zap.Int("datasets", len(files)))
	defer func(start time.Time) {
		log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		// one bad dataset must not stop the corpus
		if err := convertDataset(path, store, opts, log); err != nil {
			log.Error("Unable to convert dataset", zap.String("file", path), zap.Error(err))
		}
	}

	if env.Rpt != nil {
		env.Rpt.Store("result-"+filepath.Base(dst), dst)
	}
	return nil
}

// collectDatasets expands src into the list of NetCDF files to convert in
// natural name order.
func collectDatasets(src string) ([]string, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsDir() {
		return []string{src}, nil
	}

	var files []string
	err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && strings.EqualFold(filepath.Ext(path), ".nc") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Sort(natural.StringSlice(files))
	return files, nil
}

func convertDataset(path string, store *Store, opts Options, log *zap.Logger) error {
	f, err := export.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read dataset: %w", err)
	}

	meta, series, err := Convert(f, opts, log)
	if err != nil {
		return err
	}
	if err := store.Save(meta, series); err != nil {
		return fmt.Errorf("unable to save proxies: %w", err)
	}

	log.Info("Dataset converted", zap.String("file", filepath.Base(path)), zap.Int("proxies", len(meta)))
	return nil
}
