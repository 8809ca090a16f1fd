// Package lang maps file extensions to syntax language identifiers.
package lang

import (
	"mime"
	"path"
	"strings"
)

// Plaintext is the tag for anything the table does not know.
const Plaintext = "plaintext"

var byExt = map[string]string{
	".js":         "javascript",
	".mjs":        "javascript",
	".cjs":        "javascript",
	".jsx":        "javascript",
	".ts":         "typescript",
	".tsx":        "typescript",
	".html":       "html",
	".htm":        "html",
	".css":        "css",
	".scss":       "scss",
	".less":       "less",
	".json":       "json",
	".md":         "markdown",
	".markdown":   "markdown",
	".py":         "python",
	".go":         "go",
	".java":       "java",
	".kt":         "kotlin",
	".c":          "c",
	".h":          "c",
	".cpp":        "cpp",
	".cc":         "cpp",
	".hpp":        "cpp",
	".cs":         "csharp",
	".rs":         "rust",
	".rb":         "ruby",
	".php":        "php",
	".swift":      "swift",
	".sh":         "shell",
	".bash":       "shell",
	".zsh":        "shell",
	".yml":        "yaml",
	".yaml":       "yaml",
	".toml":       "toml",
	".xml":        "xml",
	".svg":        "xml",
	".sql":        "sql",
	".vue":        "html",
	".lua":        "lua",
	".dockerfile": "dockerfile",
	".txt":        Plaintext,
}

var byName = map[string]string{
	"Dockerfile": "dockerfile",
	"Makefile":   "makefile",
}

// ForFile returns the language for a file name or path.
func ForFile(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if l, ok := byName[base]; ok {
		return l
	}
	return ForExt(path.Ext(base))
}

// ForExt returns the language for an extension, with or without the dot.
func ForExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	if l, ok := byExt[ext]; ok {
		return l
	}
	return Plaintext
}

// MimeType guesses a content type from the file extension. Text files the
// system table does not know default to text/plain.
func MimeType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "text/plain; charset=utf-8"
}
