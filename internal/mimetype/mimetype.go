// Package mimetype maps file extensions to content types.
package mimetype

import "strings"

// DefaultType is served when the extension is unknown.
const DefaultType = "application/octet-stream"

var builtin = map[string]string{
	".aac":       "audio/aac",
	".avi":       "video/x-msvideo",
	".bz":        "application/x-bzip",
	".bz2":       "application/x-bzip2",
	".css":       "text/css",
	".csv":       "text/csv",
	".directory": "application/directory",
	".doc":       "application/msword",
	".docx":      "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".gif":       "image/gif",
	".htm":       "text/html",
	".html":      "text/html",
	".ico":       "image/ico",
	".jpeg":      "image/jpeg",
	".jpg":       "image/jpeg",
	".js":        "text/javascript",
	".json":      "application/json",
	".mp3":       "audio/mpeg",
	".mp4":       "video/mp4",
	".mpeg":      "video/mpeg",
	".odt":       "application/vnd.oasis.opendocument.text",
	".odg":       "application/vnd.oasis.opendocument.graphics",
	".odp":       "application/vnd.oasis.opendocument.presentation",
	".ods":       "application/vnd.oasis.opendocument.spreadsheet",
	".oga":       "audio/ogg",
	".ogv":       "video/ogg",
	".ogx":       "application/ogg",
	".opus":      "audio/opus",
	".otf":       "font/otf",
	".pdf":       "application/pdf",
	".png":       "image/png",
	".ppt":       "application/ms-powerpoint",
	".pptx":      "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".py":        "text/plain",
	".rtf":       "application/rtf",
	".svg":       "image/svg+xml",
	".sxc":       "application/vnd.sun.xml.calc",
	".sxd":       "application/vnd.sun.xml.draw",
	".sxi":       "application/vnd.sun.xml.impress",
	".sxw":       "application/vnd.sun.xml.writer",
	".tar":       "application/x-tar",
	".tif":       "image/tiff",
	".tiff":      "image/tiff",
	".ts":        "video/mp2t",
	".ttf":       "font/ttf",
	".txt":       "text/plain",
	".vsd":       "application/vnd.visio",
	".wav":       "audio/wav",
	".weba":      "audio/webm",
	".webm":      "video/webm",
	".webp":      "image/webp",
	".woff":      "font/woff",
	".woff2":     "font/woff2",
	".xhtml":     "application/xhtml+xml",
	".xls":       "application/ms-excel",
	".xlsx":      "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xml":       "application/xml",
	".zip":       "application/zip",
}

// Lookup resolves ext (".md", ".html", ...) to a content type. A space's
// override map wins over the builtin table; unknown extensions fall back
// to DefaultType.
func Lookup(ext string, overrides map[string]string) string {
	ext = strings.ToLower(ext)
	if overrides != nil {
		if ct, ok := overrides[ext]; ok {
			return ct
		}
	}
	if ct, ok := builtin[ext]; ok {
		return ct
	}
	return DefaultType
}
