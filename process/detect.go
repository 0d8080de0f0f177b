// Package process drives batch conversion of NCDC proxy archive files:
// input discovery and detection, per-site overrides, age modeling and all
// configured outputs.
package process

import (
	"archive/zip"
	"io"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"proxysift/ncdc"
)

// sniffLen bounds how much of a file content detection reads.
const sniffLen = 4096

// isArchiveFile reports whether path is a zip archive judged by content, not
// extension.
func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return false, err
	}
	return kind == matchers.TypeZip, nil
}

// isProxyFile reports whether path looks like an NCDC proxy text file.
func isProxyFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return looksLikeProxyText(head[:n]), nil
}

// isProxyInArchive checks a single zip entry the same way isProxyFile checks
// a file on disk.
func isProxyInArchive(f *zip.File) (bool, error) {
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return looksLikeProxyText(head[:n]), nil
}

// looksLikeProxyText recognizes the NCDC archive layout: a comment-marked
// header whose sections are fenced by dash divider lines. Decoding failures
// disqualify the candidate rather than failing detection.
func looksLikeProxyText(head []byte) bool {
	text, err := ncdc.DecodeBytes(head)
	if err != nil {
		return false
	}

	sawDivider := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			// header must come before any bare data line
			return false
		}
		if strings.HasPrefix(line, "#----") {
			sawDivider = true
			break
		}
	}
	return sawDivider
}
