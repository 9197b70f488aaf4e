package fingerprint

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opencontainers/go-digest"
)

// Computes a digest of a file or directory tree on the host.
//
// Each entry contributes its slash-separated relative path, file mode,
// and (for regular files) content; directories are walked in lexical
// order, so the result is deterministic for a given tree state. Used to
// fingerprint copy steps: any change to the source tree changes the
// digest and therefore invalidates the cached layer.
func Tree(root string) (digest.Digest, error) {
	digester := digest.Canonical.Digester()
	h := digester.Hash()

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		io.WriteString(h, filepath.ToSlash(rel)+sep)
		io.WriteString(h, strconv.FormatUint(uint64(info.Mode()), 8)+sep)

		switch {
		case info.Mode().IsRegular():
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(h, f)
			f.Close()
			if err != nil {
				return err
			}
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			io.WriteString(h, target)
		}

		io.WriteString(h, sep)
		return nil
	})
	if err != nil {
		return "", err
	}

	return digester.Digest(), nil
}
