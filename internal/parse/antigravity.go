package parse

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// MaxAntigravityChars caps the body of a single Markdown artifact.
const MaxAntigravityChars = 20000

// antigravityImageExts are the extensions counted toward a session's image
// histogram when computing its summary event.
var antigravityImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true, ".svg": true,
}

// AntigravityArtifactContent renders a Markdown artifact's body as a
// message-like record, prefixed with the file it came from.
func AntigravityArtifactContent(fileName, body string) string {
	return fmt.Sprintf("Antigravity artifact: %s\n\n%s", fileName, body)
}

// AntigravitySessionStats accumulates the file/byte/image counts that back
// an Antigravity session's mandatory summary event.
type AntigravitySessionStats struct {
	TotalFiles int
	TotalBytes int64
	ImageCount int
	ImageExts  map[string]int
}

// AddFile folds one session-directory file into the running totals,
// bumping the image histogram when name's extension is an image type.
func (s *AntigravitySessionStats) AddFile(name string, size int64) {
	s.TotalFiles++
	s.TotalBytes += size
	ext := strings.ToLower(filepath.Ext(name))
	if antigravityImageExts[ext] {
		s.ImageCount++
		if s.ImageExts == nil {
			s.ImageExts = map[string]int{}
		}
		s.ImageExts[ext]++
	}
}

// SummaryContent renders the session's mandatory summary event body.
func (s *AntigravitySessionStats) SummaryContent() string {
	return fmt.Sprintf("Antigravity session summary: images=%d, files=%d, bytes=%d", s.ImageCount, s.TotalFiles, s.TotalBytes)
}

// SortedImageExts returns the image histogram's extensions in a stable order,
// for deterministic metadata output.
func (s *AntigravitySessionStats) SortedImageExts() []string {
	exts := make([]string, 0, len(s.ImageExts))
	for ext := range s.ImageExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// TrimChars truncates s to at most n runes.
func TrimChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

// AntigravityMetadata is the decoded content of a "<file>.metadata.json" sidecar.
type AntigravityMetadata struct {
	ArtifactType string
	Summary      string
	Raw          map[string]interface{}
}

// ParseAntigravityMetadata decodes a metadata sidecar's bytes, tolerating
// malformed input by returning ok=false rather than an error.
func ParseAntigravityMetadata(raw []byte) (AntigravityMetadata, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return AntigravityMetadata{}, false
	}
	m := AntigravityMetadata{Raw: doc}
	if s, ok := asString(doc["artifactType"], true); ok {
		m.ArtifactType = s
	}
	if s, ok := asString(doc["summary"], true); ok {
		m.Summary = s
	}
	return m, true
}
