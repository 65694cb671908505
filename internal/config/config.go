// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultListenAddr       = "127.0.0.1:8080"
	defaultDBPath           = "certpanel.db"
	defaultUploadFolder     = "uploads"
	defaultFontPath         = "arial.ttf"
	defaultMaxTemplateBytes = 10 << 20

	// MaxTemplateBytesLimit caps CERTPANEL_MAX_TEMPLATE_BYTES; uploads are
	// buffered in memory before decoding.
	MaxTemplateBytesLimit = 256 << 20
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr   string
	DBPath       string
	UploadFolder string

	// FontPaths are tried in order when rendering; bare names are also looked
	// up in the system font directories. The embedded font is the last resort.
	FontPaths []string

	MaxTemplateBytes int64
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: CERTPANEL_LISTEN_ADDR (127.0.0.1:8080),
// CERTPANEL_DB_PATH (certpanel.db), CERTPANEL_UPLOAD_FOLDER (uploads),
// CERTPANEL_FONT_PATHS (arial.ttf, comma separated) and
// CERTPANEL_MAX_TEMPLATE_BYTES (10 MiB, at most 256 MiB).
func Load() (*Config, error) {
	listenAddr := defaultListenAddr
	if v, ok := os.LookupEnv("CERTPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := defaultDBPath
	if v, ok := os.LookupEnv("CERTPANEL_DB_PATH"); ok {
		dbPath = v
	}

	uploadFolder := defaultUploadFolder
	if v, ok := os.LookupEnv("CERTPANEL_UPLOAD_FOLDER"); ok {
		uploadFolder = strings.TrimSpace(v)
	}
	if uploadFolder == "" {
		return nil, fmt.Errorf("CERTPANEL_UPLOAD_FOLDER must not be empty")
	}

	fontPaths := []string{defaultFontPath}
	if v, ok := os.LookupEnv("CERTPANEL_FONT_PATHS"); ok {
		fontPaths = []string{}
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				fontPaths = append(fontPaths, p)
			}
		}
	}

	maxTemplateBytes := int64(defaultMaxTemplateBytes)
	if v, ok := os.LookupEnv("CERTPANEL_MAX_TEMPLATE_BYTES"); ok {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("CERTPANEL_MAX_TEMPLATE_BYTES has invalid value %q: %w", v, err)
		}
		if parsed <= 0 || parsed > MaxTemplateBytesLimit {
			return nil, fmt.Errorf("CERTPANEL_MAX_TEMPLATE_BYTES must be between 1 and %d, got %d", MaxTemplateBytesLimit, parsed)
		}
		maxTemplateBytes = parsed
	}

	return &Config{
		ListenAddr:       listenAddr,
		DBPath:           dbPath,
		UploadFolder:     uploadFolder,
		FontPaths:        fontPaths,
		MaxTemplateBytes: maxTemplateBytes,
	}, nil
}
