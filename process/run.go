package process

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"proxysift/agemodel"
	"proxysift/archive"
	"proxysift/config"
	"proxysift/export"
	"proxysift/ncdc"
	"proxysift/qcreport"
	"proxysift/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

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
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process handles the core batch logic independently of CLI framework. It
// determines the input type (directory, archive, or single file) and
// processes accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return errors.New("unable to process directory")
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		archived, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if archived {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, tail, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		proxy, err := isProxyFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if proxy && len(tail) == 0 {
			// we have proxy file, it cannot have tail
			if file, err := os.Open(head); err != nil {
				log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			} else {
				defer file.Close()
				if err := processRecord(ctx, file, filepath.Base(head), dst, log); err != nil {
					log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
				}
			}
			break
		}
		return fmt.Errorf("input was not recognized as proxy archive file (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks directory tree finding proxy files and processes them in
// natural name order so numbered cores come out deterministically.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Sort(natural.StringSlice(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		archived, err := isArchiveFile(path)
		if err != nil {
			// checking format - but cannot open target file
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if archived {
			if err := processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}

		proxy, err := isProxyFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if !proxy {
			log.Debug("Skipping file, not recognized as proxy archive or zip", zap.String("file", path))
			continue
		}

		count++

		file, err := os.Open(path)
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			continue
		}

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processRecord(ctx, file, src, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		file.Close()
	}
	return nil
}

// processArchive walks all files inside archive, finds proxy files under
// "pathIn" and processes them.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	err = archive.Walk(path, pathIn, func(archive string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		proxy, err := isProxyInArchive(f)
		if err != nil {
			log.Warn("Skipping file in archive",
				zap.String("archive", archive), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !proxy {
			log.Debug("Skipping file, not recognized as proxy archive", zap.String("archive", archive), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		cp := state.EnvFromContext(ctx).CodePage

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if err := processRecord(ctx, r, filepath.Join(pathOut, pathInArchive), dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
	return err
}

// processRecord processes single proxy file. "src" is part of the source
// path (always including file name) relative to the original path. When
// actual file was specified it will be just base file name without a path.
// When looking inside archive or directory it will be relative path inside
// archive or directory (including base file name). "dst" is the destination
// directory where outputs should be written.
func processRecord(ctx context.Context, r io.Reader, src string, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var identifier, outputName string

	log.Info("Record processing starting", zap.String("from", src))
	defer func(start time.Time) {
		// if multiple records are being processed we do not want one bad
		// site to stop the run
		if r := recover(); r != nil {
			log.Error("Record processing ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("record processing panic: %v", r)
		} else {
			log.Info("Record processing completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.String("site", identifier))
		}
	}(time.Now())

	rec, err := ncdc.Read(r)
	if err != nil {
		return fmt.Errorf("unable to parse proxy source (%s): %w", src, err)
	}
	identifier = rec.Identifier()

	if env.Cfg.Processing.AverageDuplicateDepths {
		rec.Data.AverageDuplicateDepths()
	}

	overrides, err := LoadOverrides(env.Cfg.Processing.SiteConfigDir, identifier)
	if err != nil {
		return err
	}
	if overrides != nil {
		log.Debug("Applying site overrides", zap.String("site", identifier))
		if err := overrides.Apply(rec); err != nil {
			return err
		}
	}

	if env.Cfg.AgeModel.Enable {
		if err := fitAges(ctx, rec, log); err != nil {
			// record is still exportable without modeled ages
			log.Warn("Skipping age model", zap.String("site", identifier), zap.Error(err))
		}
	}

	data, err := exportData(rec, env)
	if err != nil {
		return err
	}

	ds, err := export.NewDataset(rec, data)
	if err != nil {
		return err
	}
	if overrides != nil {
		decorateDataset(ds, overrides)
	}

	// Determine output file name and path based on input and configuration.
	outputName = buildOutputPath(rec, src, dst, ".nc", env)

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := export.WriteFile(outputName, ds); err != nil {
		return fmt.Errorf("unable to write dataset: %w", err)
	}

	if env.Cfg.QC.Enable {
		if err := writeQCReport(rec, data, outputName, env, log); err != nil {
			return err
		}
	}

	// Store conversion result for debugging
	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", ds.SiteGroup, filepath.Ext(outputName)), outputName)
	}

	return nil
}

// fitAges runs the configured age-depth sampler over the record's chronology
// and attaches the resulting ensemble to its data rows. Fitted models are
// cached by chronology content.
func fitAges(ctx context.Context, rec *ncdc.Record, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	info := ncdc.AgeModelInfo{CalibrationCurve: "marine"}
	if year, ok := rec.RecentDate(); ok {
		info.MinYear = float64(1950 - year)
	}

	in, err := agemodel.PrepareInput(rec, info, env.Cfg.AgeModel.MaxAge)
	if err != nil {
		return err
	}

	if !rec.Chronology.HasDeltaR() {
		if err := fillReservoirCorrection(rec, in, env, log); err != nil {
			return err
		}
	}

	cache, err := agemodel.NewCache(env.Cfg.AgeModel.CacheDir, log.Named("cache"))
	if err != nil {
		return err
	}

	res, err := cache.Fit(ctx, &agemodel.MonotoneSampler{}, in, env.Cfg.AgeModel.Draws)
	if err != nil {
		return err
	}
	agemodel.RemoveOutliers(res, outlierIQRMin)
	return agemodel.AttachAges(rec, res)
}

// outlierIQRMin keeps the interquartile gate from firing on very tight
// ensembles where spread is all rounding noise.
const outlierIQRMin = 20

// fillReservoirCorrection pools reservoir corrections observed near the site
// onto radiocarbon dates that arrived without one. The lookup table is a
// shared file in the site config directory, absent table means nothing to
// fill.
func fillReservoirCorrection(rec *ncdc.Record, in *agemodel.Input, env *state.LocalEnv, log *zap.Logger) error {
	lat, lon, ok := rec.Site.LatLon()
	if !ok {
		return nil
	}
	points, err := LoadReservoirPoints(env.Cfg.Processing.SiteConfigDir)
	if err != nil {
		return err
	}
	near := agemodel.Nearby(points, lat, lon, env.Cfg.AgeModel.MaxReservoirDistance)
	if len(near) == 0 {
		return nil
	}
	mean, sigma, err := agemodel.PooledDeltaR(near)
	if err != nil {
		return err
	}
	log.Debug("Pooled reservoir correction from nearby observations",
		zap.String("site", rec.Identifier()), zap.Int("observations", len(near)), zap.Float64("delta_r", mean), zap.Float64("delta_r_1s_err", sigma))
	for i := range in.Points {
		if in.Points[i].Curve == agemodel.CurveMarine {
			in.Points[i].DeltaR, in.Points[i].DeltaRError = mean, sigma
		}
	}
	return nil
}

// exportData selects which data rows leave the program according to the
// cutoff mode: trim drops out of range rows, flag keeps everything and lets
// the bounds ride along as attributes, none strips the bounds entirely.
func exportData(rec *ncdc.Record, env *state.LocalEnv) (*ncdc.DataCollection, error) {
	if env.Cfg.Processing.Cutoffs.Destructive() {
		return rec.TrimmedData()
	}
	if env.Cfg.Processing.Cutoffs == config.CutoffModeNone {
		rec.Chronology.CutShallow, rec.Chronology.CutDeep = nil, nil
	}
	return &rec.Data, nil
}

// decorateDataset rides override metadata with no record-level operation
// through to the exported dataset attributes.
func decorateDataset(ds *export.Dataset, o *SiteOverrides) {
	if len(o.Seasonality) > 0 {
		months := make([]int32, len(o.Seasonality))
		for i, m := range o.Seasonality {
			months[i] = int32(m)
		}
		ds.Global = append(ds.Global, export.Attr{Name: "seasonality", Value: months})
	}
	if len(o.DatabaseLabels) > 0 {
		ds.Global = append(ds.Global, export.Attr{Name: "databases", Value: strings.Join(o.DatabaseLabels, ", ")})
	}
}

// writeQCReport renders the HTML quality report next to the exported
// dataset, optionally with PNG rendering and thumbnail of the age-depth
// plot.
func writeQCReport(rec *ncdc.Record, data *ncdc.DataCollection, outputName string, env *state.LocalEnv, log *zap.Logger) error {
	opts := qcreport.PlotOptions{
		Width:  env.Cfg.QC.PlotWidth,
		Height: env.Cfg.QC.PlotHeight,
		MaxAge: env.Cfg.AgeModel.MaxAge,
		Title:  rec.Identifier(),
	}

	svg, err := qcreport.AgeDepthSVG(rec, data, opts)
	if err != nil {
		var empty *ncdc.EmptyDataError
		if !errors.As(err, &empty) {
			return fmt.Errorf("unable to plot age-depth model: %w", err)
		}
		// report is still useful without the plot
		log.Debug("Skipping age-depth plot", zap.String("site", rec.Identifier()), zap.Error(err))
		svg = nil
	}

	base := strings.TrimSuffix(outputName, filepath.Ext(outputName))

	report, err := os.Create(base + ".html")
	if err != nil {
		return fmt.Errorf("unable to create report file: %w", err)
	}
	defer report.Close()

	if err := qcreport.Generate(report, rec, data, svg, qcreport.ReportOptions{SummarySentences: env.Cfg.QC.SummarySentences}); err != nil {
		return fmt.Errorf("unable to generate report: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.Store("report-"+filepath.Base(base)+".html", base+".html")
	}

	if !env.Cfg.QC.Rasterize || svg == nil {
		return nil
	}

	img, err := qcreport.RasterizeImage(svg, env.Cfg.QC.PlotWidth, env.Cfg.QC.PlotHeight)
	if err != nil {
		return fmt.Errorf("unable to rasterize plot: %w", err)
	}
	png, err := qcreport.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+".png", png, 0644); err != nil {
		return fmt.Errorf("unable to write plot image: %w", err)
	}

	if env.Cfg.QC.ThumbnailWidth > 0 {
		thumb, err := qcreport.Thumbnail(img, env.Cfg.QC.ThumbnailWidth)
		if err != nil {
			return fmt.Errorf("unable to build plot thumbnail: %w", err)
		}
		if err := os.WriteFile(base+"-thumb.png", thumb, 0644); err != nil {
			return fmt.Errorf("unable to write plot thumbnail: %w", err)
		}
	}
	return nil
}
