package codex

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ExtractBinary pulls the codex executable out of a downloaded release
// asset. Gzipped tarballs are unpacked and searched for a member named
// codex, codex.exe, or codex-*; when nothing matches, the first regular file
// wins. Uncompressed assets are assumed to be the binary itself.
func ExtractBinary(asset []byte, assetName string) ([]byte, error) {
	lowered := strings.ToLower(assetName)
	switch {
	case strings.HasSuffix(lowered, ".tar.gz"), strings.HasSuffix(lowered, ".tgz"):
		return extractTarGz(asset, assetName)
	case strings.HasSuffix(lowered, ".zst"):
		return nil, fmt.Errorf("unsupported asset compression for %q; use the .tar.gz asset", assetName)
	default:
		return asset, nil
	}
}

func extractTarGz(asset []byte, assetName string) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(asset))
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", assetName, err)
	}
	defer gz.Close()

	var first []byte
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", assetName, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", assetName, err)
		}

		base := path.Base(hdr.Name)
		if base == "codex" || base == "codex.exe" || strings.HasPrefix(base, "codex-") {
			return data, nil
		}
		if first == nil {
			first = data
		}
	}

	if first == nil {
		return nil, fmt.Errorf("archive %q does not contain any files", assetName)
	}
	return first, nil
}
