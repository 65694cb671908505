package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font sizes in pixels for each text role on the certificate.
const (
	headerSize  = 60
	titleSize   = 40
	nameSize    = 50
	courseSize  = 30
	detailsSize = 25
	idSize      = 20
)

// embeddedFontSource names the fallback face in logs.
const embeddedFontSource = "embedded:goregular"

// systemFontDirs are searched for bare font file names (e.g. "arial.ttf") that
// do not exist relative to the working directory.
var systemFontDirs = []string{
	"/usr/share/fonts/truetype/msttcorefonts",
	"/usr/share/fonts/TTF",
	"/usr/share/fonts/truetype",
	"/Library/Fonts",
	"/System/Library/Fonts/Supplemental",
	`C:\Windows\Fonts`,
}

// fontSet holds one face per text role. Faces are not safe for concurrent use,
// so a fresh set is built for every render.
type fontSet struct {
	header  font.Face
	title   font.Face
	name    font.Face
	course  font.Face
	details font.Face
	id      font.Face
	source  string
}

// Close releases all faces in the set.
func (s *fontSet) Close() {
	for _, f := range []font.Face{s.header, s.title, s.name, s.course, s.details, s.id} {
		if f != nil {
			_ = f.Close()
		}
	}
}

// loadFonts tries each candidate font file in order and builds the face set
// from the first one that parses. When none is usable the embedded Go Regular
// font is used instead.
func loadFonts(candidates []string, logger *slog.Logger) (*fontSet, error) {
	for _, candidate := range candidates {
		for _, path := range resolveFontPath(candidate) {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}

			parsed, err := opentype.Parse(data)
			if err != nil {
				logger.Warn("font unusable, trying next candidate", "path", path, "error", err)
				continue
			}

			set, err := newFontSet(parsed, path)
			if err != nil {
				logger.Warn("font unusable, trying next candidate", "path", path, "error", err)
				continue
			}
			return set, nil
		}
	}

	logger.Debug("no candidate font available, using embedded font", "candidates", candidates)

	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded font: %w", err)
	}
	return newFontSet(parsed, embeddedFontSource)
}

// resolveFontPath expands a bare font file name into the locations where it
// might be installed. Paths containing a directory are returned unchanged.
func resolveFontPath(candidate string) []string {
	if candidate == "" {
		return nil
	}
	if filepath.IsAbs(candidate) || filepath.Base(candidate) != candidate {
		return []string{candidate}
	}

	paths := make([]string, 0, len(systemFontDirs)+1)
	paths = append(paths, candidate)
	for _, dir := range systemFontDirs {
		paths = append(paths, filepath.Join(dir, candidate))
	}
	return paths
}

func newFontSet(parsed *opentype.Font, source string) (*fontSet, error) {
	set := &fontSet{source: source}

	faces := []struct {
		dst  *font.Face
		size float64
	}{
		{&set.header, headerSize},
		{&set.title, titleSize},
		{&set.name, nameSize},
		{&set.course, courseSize},
		{&set.details, detailsSize},
		{&set.id, idSize},
	}

	for _, f := range faces {
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    f.size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("create font face at %.0fpx from %s: %w", f.size, source, err)
		}
		*f.dst = face
	}

	return set, nil
}
