package process

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"proxysift/config"
	"proxysift/ncdc"
	"proxysift/state"
)

// Values holds variables we make available for output name template
// expansion.
type Values struct {
	Context    string
	Site       string
	Collection string
	Location   string
	FirstYear  string
	LastYear   string
	SourceFile string
}

func buildValues(r *ncdc.Record, src string, name config.TemplateFieldName) Values {
	v := Values{
		Context:    string(name),
		Collection: r.Identifier(),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
	}
	if r.Site.SiteName != nil {
		v.Site = *r.Site.SiteName
	}
	if r.Site.Location != nil {
		v.Location = *r.Site.Location
	}
	v.FirstYear = formatYear(r.Data.FirstYear)
	v.LastYear = formatYear(r.Data.LastYear)
	return v
}

func formatYear(y *float64) string {
	if y == nil {
		return ""
	}
	return strconv.FormatFloat(*y, 'f', -1, 64)
}

func expandTemplate(r *ncdc.Record, src string, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, buildValues(r, src, name)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildOutputPath returns constructed output file path/name based on various
// input parameters. It uses either default naming scheme or user-defined
// template and takes into account whether to preserve source directory
// structure on the output. It cleans up path and if requested transliterates
// it.
func buildOutputPath(r *ncdc.Record, src, dst, ext string, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	defaultFile := buildDefaultFileName(src, ext, env)

	if env.Cfg.Processing.OutputNameTemplate == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expandedName := expandOutputNameTemplate(r, src, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, defaultFile)
	}

	return assemblePathWithSubdirs(outDir, expandedName, ext, env)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func buildDefaultFileName(src, ext string, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if env.Cfg.Processing.FileNameTransliterate {
		baseName = slug.Make(baseName)
	}
	return config.CleanFileName(baseName) + ext
}

func expandOutputNameTemplate(r *ncdc.Record, src string, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(r, src, config.OutputNameTemplateFieldName, env.Cfg.Processing.OutputNameTemplate)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(expandedName)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output
// path, cleaning and transliterating segments as needed.
func assemblePathWithSubdirs(outDir, expandedName, ext string, env *state.LocalEnv) string {
	pathSegments := splitAndCleanPath(expandedName)

	if len(pathSegments) == 0 {
		return outDir
	}

	fileName := cleanPathSegment(pathSegments[len(pathSegments)-1], env) + ext
	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)

	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}

	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
		path = head
	}

	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Processing.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
