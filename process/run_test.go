package process

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"proxysift/config"
	"proxysift/export"
	"proxysift/ncdc"
	"proxysift/state"
)

var proxyFixture = strings.Join([]string{
	"# Wonder Lake multiproxy record",
	"#------------------------",
	"# Contribution_Date",
	"#    Date: 2015-06-12",
	"#------------------------",
	"# Investigators",
	"#    Investigators: Smith, A.; Jones, B.",
	"#------------------------",
	"# Description and Notes",
	"#    Description: Marine sediment core record. Proxy data cover the deglaciation.",
	"#------------------------",
	"# Publication",
	"#    Authors: Smith, A.; Jones, B.",
	"#    Published_Date_or_Year: 2014",
	"#    Published_Title: Holocene variability at Wonder Lake",
	"#    Journal_Name: Paleoceanography",
	"#------------------------",
	"# Site Information",
	"#    Site_Name: Wonder Lake",
	"#    Location: North Pacific Ocean",
	"#    Northernmost_Latitude: 54.5",
	"#    Westernmost_Longitude: -160.25",
	"#    Elevation: -1420",
	"#------------------------",
	"# Data_Collection",
	"#    Collection_Name: WL-21K",
	"#    First_Year: 21000",
	"#    Last_Year: 150",
	"#    Time_Unit: cal yr BP",
	"#    Collection_Year: 2009",
	"#------------------------",
	"# Chronology_Information",
	"# Labcode\tdepth_top\tdepth_bottom\tmat_dated\t14C_date\t14C_1s_err\tdelta_R\tdelta_R_1s_err\tother_date\tother_1s_err\tother_type",
	"# OS-1001\t10\t12\tforam mix\t1850\t30\t400\t50\t-999\t-999\tnan",
	"# OS-1002\t100\t102\tforam mix\t9800\t60\t400\t50\t-999\t-999\tnan",
	"#------------------------",
	"# Variables",
	"## depth\t,,cm,,marine sediment,,,N,",
	"## d18O\tforaminifera,,permil,,marine sediment,,analytic,N,",
	"#------------------------",
	"# Data",
	"# Data lines follow (have no #)",
	"# Missing Value: -999",
	"depth\td18O",
	"15\t3.21",
	"50\t3.05",
	"120\t2.44",
	"",
}, "\n")

// testContext builds a context carrying a fully populated environment the
// way the command lifecycle would.
func testContext(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t)
	env.Cfg = &config.Config{
		Version: 1,
		Processing: config.ProcessingConfig{
			AverageDuplicateDepths: true,
			Cutoffs:                config.CutoffModeFlag,
		},
		AgeModel: config.AgeModelConfig{
			Enable:               true,
			Draws:                20,
			MaxAge:               50000,
			CacheDir:             filepath.Join(t.TempDir(), "agemodels"),
			MaxReservoirDistance: 3000,
		},
		QC: config.QCConfig{
			Enable:           true,
			SummarySentences: 2,
			PlotWidth:        400,
			PlotHeight:       300,
		},
		LMR: config.LMRConfig{DatabaseLabels: []string{"DTDA"}},
	}
	return ctx, env
}

func TestProcessRecord(t *testing.T) {
	ctx, env := testContext(t)
	dst := t.TempDir()

	if err := processRecord(ctx, strings.NewReader(proxyFixture), "wonder-lake.txt", dst, env.Log); err != nil {
		t.Fatalf("processRecord() error = %v", err)
	}

	ncPath := filepath.Join(dst, "wonder-lake.nc")
	f, err := export.ReadFile(ncPath)
	if err != nil {
		t.Fatalf("unable to read exported dataset: %v", err)
	}
	if got := f.GlobalString("site_group"); got != "wonder-lake" {
		t.Errorf("site_group = %q, want %q", got, "wonder-lake")
	}
	if got := len(f.Floats("data_depth")); got != 3 {
		t.Errorf("exported %d data rows, want 3", got)
	}
	// age model ran and attached per-row medians
	if ages := f.Floats("data_age_median"); len(ages) != 3 {
		t.Errorf("exported %d modeled ages, want 3", len(ages))
	}

	if _, err := os.Stat(filepath.Join(dst, "wonder-lake.html")); err != nil {
		t.Errorf("QC report missing: %v", err)
	}
}

func TestProcessRecord_ExistingOutput(t *testing.T) {
	ctx, env := testContext(t)
	dst := t.TempDir()

	if err := os.WriteFile(filepath.Join(dst, "wonder-lake.nc"), []byte("old"), 0644); err != nil {
		t.Fatalf("unable to seed destination: %v", err)
	}

	err := processRecord(ctx, strings.NewReader(proxyFixture), "wonder-lake.txt", dst, env.Log)
	if err == nil {
		t.Fatal("expected error for existing output without overwrite")
	}

	env.Overwrite = true
	if err := processRecord(ctx, strings.NewReader(proxyFixture), "wonder-lake.txt", dst, env.Log); err != nil {
		t.Errorf("processRecord() with overwrite error = %v", err)
	}
}

func TestProcessRecord_BadInput(t *testing.T) {
	ctx, env := testContext(t)

	err := processRecord(ctx, strings.NewReader("not a proxy file at all"), "junk.txt", t.TempDir(), env.Log)
	if err == nil {
		t.Error("expected error for unparseable input")
	}
}

func TestProcess_SingleFile(t *testing.T) {
	ctx, env := testContext(t)
	srcDir, dst := t.TempDir(), t.TempDir()

	src := filepath.Join(srcDir, "wonder-lake.txt")
	if err := os.WriteFile(src, []byte(proxyFixture), 0644); err != nil {
		t.Fatalf("unable to create source: %v", err)
	}

	if err := process(ctx, src, dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "wonder-lake.nc")); err != nil {
		t.Errorf("dataset missing: %v", err)
	}
}

func TestProcess_Dir(t *testing.T) {
	ctx, env := testContext(t)
	srcDir, dst := t.TempDir(), t.TempDir()

	for _, name := range []string{"core-2.txt", "core-10.txt"} {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(proxyFixture), 0644); err != nil {
			t.Fatalf("unable to create source: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(srcDir, "readme.md"), []byte("notes\n"), 0644); err != nil {
		t.Fatalf("unable to create source: %v", err)
	}

	if err := process(ctx, srcDir, dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	for _, name := range []string{"core-2.nc", "core-10.nc"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("dataset %s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "readme.nc")); err == nil {
		t.Error("non-proxy file should have been skipped")
	}
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := testContext(t)
	srcDir, dst := t.TempDir(), t.TempDir()

	zipPath := filepath.Join(srcDir, "bundle.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("unable to create archive: %v", err)
	}
	w := zip.NewWriter(f)
	entry, err := w.CreateHeader(&zip.FileHeader{Name: "sites/wonder-lake.txt", Method: zip.Store})
	if err != nil {
		t.Fatalf("unable to create entry: %v", err)
	}
	entry.Write([]byte(proxyFixture))
	w.Close()
	f.Close()

	if err := process(ctx, zipPath, dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "sites", "wonder-lake.nc")); err != nil {
		t.Errorf("dataset missing: %v", err)
	}
}

func TestProcess_MissingSource(t *testing.T) {
	ctx, env := testContext(t)

	if err := process(ctx, "/nonexistent/input.txt", t.TempDir(), env.Log); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestExportData_Modes(t *testing.T) {
	_, env := testContext(t)

	parse := func(t *testing.T) *ncdc.Record {
		t.Helper()
		rec, err := ncdc.Read(strings.NewReader(proxyFixture))
		if err != nil {
			t.Fatalf("unable to parse fixture: %v", err)
		}
		shallow, deep := 20.0, 100.0
		if err := rec.Chronology.SetCutoffs(&shallow, &deep); err != nil {
			t.Fatalf("unable to set cutoffs: %v", err)
		}
		return rec
	}

	t.Run("flag keeps all rows and bounds", func(t *testing.T) {
		env.Cfg.Processing.Cutoffs = config.CutoffModeFlag
		rec := parse(t)
		data, err := exportData(rec, env)
		if err != nil {
			t.Fatalf("exportData() error = %v", err)
		}
		if data.Len() != 3 {
			t.Errorf("rows = %d, want 3", data.Len())
		}
		if rec.Chronology.CutShallow == nil || rec.Chronology.CutDeep == nil {
			t.Error("flag mode must keep cutoff bounds")
		}
	})

	t.Run("trim drops out of range rows", func(t *testing.T) {
		env.Cfg.Processing.Cutoffs = config.CutoffModeTrim
		data, err := exportData(parse(t), env)
		if err != nil {
			t.Fatalf("exportData() error = %v", err)
		}
		if data.Len() != 1 {
			t.Errorf("rows = %d, want 1 (only depth 50 inside [20, 100])", data.Len())
		}
	})

	t.Run("none strips bounds", func(t *testing.T) {
		env.Cfg.Processing.Cutoffs = config.CutoffModeNone
		rec := parse(t)
		data, err := exportData(rec, env)
		if err != nil {
			t.Fatalf("exportData() error = %v", err)
		}
		if data.Len() != 3 {
			t.Errorf("rows = %d, want 3", data.Len())
		}
		if rec.Chronology.CutShallow != nil || rec.Chronology.CutDeep != nil {
			t.Error("none mode must strip cutoff bounds")
		}
	})
}

func TestDecorateDataset(t *testing.T) {
	rec, err := ncdc.Read(strings.NewReader(proxyFixture))
	if err != nil {
		t.Fatalf("unable to parse fixture: %v", err)
	}
	ds, err := export.NewDataset(rec, &rec.Data)
	if err != nil {
		t.Fatalf("unable to build dataset: %v", err)
	}

	decorateDataset(ds, &SiteOverrides{
		Seasonality:    []int{6, 7, 8},
		DatabaseLabels: []string{"DTDA", "PAGES2k"},
	})

	var months []int32
	var databases string
	for _, a := range ds.Global {
		switch a.Name {
		case "seasonality":
			months = a.Value.([]int32)
		case "databases":
			databases = a.Value.(string)
		}
	}
	if len(months) != 3 || months[0] != 6 {
		t.Errorf("seasonality attribute = %v, want [6 7 8]", months)
	}
	if databases != "DTDA, PAGES2k" {
		t.Errorf("databases attribute = %q", databases)
	}
}
