package align

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"pagestyle/config"
	"pagestyle/state"
)

const outputExt = ".json"

// buildOutputPath returns output file path for the page tree "src" (slash
// separated, relative to source root). It uses user-defined template and
// takes into account whether to preserve source directory structure on the
// output. Path segments are cleaned and, if requested, transliterated.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	page := pageName(src)

	if name := assemblePathWithSubdirs(outDir, expandOutputNameTemplate(src, env), env); name != "" {
		return name
	}
	// fallback to default name if template expansion failed
	return filepath.Join(outDir, cleanPathSegment(page+"--style", env)+outputExt)
}

// pageName is tree file name without extension.
func pageName(src string) string {
	base := path.Base(src)
	return strings.TrimSuffix(base, path.Ext(base))
}

func sourceDir(src string) string {
	if dir := path.Dir(src); dir != "." {
		return dir
	}
	return ""
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.FromSlash(sourceDir(src)))
}

func expandOutputNameTemplate(src string, env *state.LocalEnv) string {
	expanded, err := expandTemplate(config.OutputNameTemplateFieldName, env.Cfg.Batch.OutputNameTemplate, Values{
		Page:   pageName(src),
		Source: sourceDir(src),
	})
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(expanded)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// "/" for subdirectories) and assembles it into a full output path, cleaning
// and transliterating segments as needed. Empty string is returned when
// nothing usable is left.
func assemblePathWithSubdirs(outDir, expanded string, env *state.LocalEnv) string {
	var segments []string
	for s := range strings.SplitSeq(filepath.ToSlash(expanded), "/") {
		if s = strings.TrimSpace(s); s != "" && s != "." && s != ".." {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return ""
	}

	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, outDir)
	for _, s := range segments[:len(segments)-1] {
		parts = append(parts, cleanPathSegment(s, env))
	}
	name := strings.TrimSuffix(segments[len(segments)-1], outputExt)
	parts = append(parts, cleanPathSegment(name, env)+outputExt)
	return filepath.Join(parts...)
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Batch.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
