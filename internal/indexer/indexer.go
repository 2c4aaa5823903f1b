// Package indexer scans the peer's shared directory and produces the file
// metadata served by the control surface.
package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileMeta describes one regular file in the shared directory.
type FileMeta struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MTime     int64  `json:"mtime"`
	Checksum  string `json:"checksum"`
	Extension string `json:"extension"`
	Type      string `json:"type"`
}

// checksumHexLen is the truncated hex length of the SHA-256 content digest.
const checksumHexLen = 16

// hashChunkSize is the read granularity while checksumming.
const hashChunkSize = 4 * 1024

var typeByExtension = map[string]string{
	".txt": "text", ".md": "text", ".log": "text", ".json": "text", ".xml": "text", ".csv": "text",
	".jpg": "image", ".jpeg": "image", ".png": "image", ".gif": "image", ".bmp": "image", ".svg": "image",
	".mp4": "video", ".avi": "video", ".mkv": "video", ".mov": "video", ".wmv": "video", ".flv": "video",
	".mp3": "audio", ".wav": "audio", ".flac": "audio", ".aac": "audio", ".ogg": "audio",
	".pdf": "document", ".doc": "document", ".docx": "document", ".xls": "document", ".xlsx": "document",
	".ppt": "document", ".pptx": "document",
	".py": "code", ".js": "code", ".java": "code", ".cpp": "code", ".c": "code", ".h": "code",
	".go": "code", ".rs": "code",
}

// TypeForExtension maps a lowercased extension (with leading dot) to the
// file-type enumeration; unknown extensions map to "other".
func TypeForExtension(ext string) string {
	if t, ok := typeByExtension[ext]; ok {
		return t
	}
	return "other"
}

// List scans dir non-recursively and returns metadata for every regular file,
// ordered lexicographically by name. A missing directory yields an empty
// list; files that cannot be read are omitted rather than failing the scan.
func List(dir string) []FileMeta {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []FileMeta{}
	}

	files := make([]FileMeta, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sum, err := checksumFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		files = append(files, FileMeta{
			Name:      entry.Name(),
			Size:      info.Size(),
			MTime:     info.ModTime().Unix(),
			Checksum:  sum,
			Extension: ext,
			Type:      TypeForExtension(ext),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

// checksumFile streams the file through SHA-256 and returns the first 16 hex
// characters of the digest.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:checksumHexLen], nil
}
