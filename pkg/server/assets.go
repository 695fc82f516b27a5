package server

import (
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// CachePolicy selects the Cache-Control headers sent with assets.
type CachePolicy int

const (
	// CacheNone disables caching. Useful while rebuilding the client.
	CacheNone CachePolicy = iota

	// CacheProduction caches fingerprinted files for a year and
	// everything else for an hour with revalidation.
	CacheProduction
)

// indexFile is served for directory requests.
const indexFile = "index.html"

// assetHandler serves the page, wasm_exec.js and the compiled client from
// a directory.
type assetHandler struct {
	dir    http.Dir
	policy CachePolicy
}

func newAssetHandler(dir string, policy CachePolicy) *assetHandler {
	return &assetHandler{dir: http.Dir(dir), policy: policy}
}

func (h *assetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	rel, ok := assetPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, info, ok := h.open(rel)
	if ok && info.IsDir() {
		f.Close()
		rel = path.Join(rel, indexFile)
		f, info, ok = h.open(rel)
		if ok && info.IsDir() {
			f.Close()
			ok = false
		}
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	h.applyCacheHeaders(w, rel)
	http.ServeContent(w, r, rel, info.ModTime(), f)
}

func (h *assetHandler) open(name string) (http.File, fs.FileInfo, bool) {
	f, err := h.dir.Open(name)
	if err != nil {
		return nil, nil, false
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, false
	}
	return f, info, true
}

// assetPath returns the cleaned path of urlPath inside the assets
// directory. "/" maps to ".". It rejects anything that could escape the
// directory.
func assetPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return ".", true
	}

	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	// "//etc/passwd" leaves a leading slash after trimming.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(strings.TrimSuffix(rel, "/"), "/") {
		if seg == "." || seg == ".." || seg == "" {
			return "", false
		}
	}

	clean := path.Clean(rel)
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

func (h *assetHandler) applyCacheHeaders(w http.ResponseWriter, name string) {
	switch {
	case h.policy == CacheNone:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case isFingerprinted(name):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	default:
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}
}

// isFingerprinted reports whether the file name carries a content hash,
// e.g. "client.a1b2c3d4.wasm".
func isFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}

	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
