package construct

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
)

// AssetPackaging tells how an asset is uploaded.
type AssetPackaging string

const (
	// PackagingZip uploads a directory as a zip archive.
	PackagingZip AssetPackaging = "zip"
	// PackagingFile uploads a single file as is.
	PackagingFile AssetPackaging = "file"
)

// AssetProps configures an Asset.
type AssetProps struct {
	Path    string
	Exclude []string // glob patterns matched against relative paths and path segments
}

// Asset is a local file or directory published to the asset bucket before the
// resources that use it are created.
type Asset struct {
	node      *Node
	Path      string
	Packaging AssetPackaging
	Exclude   []string
	Hash      string
	err       error
}

// zipEpoch keeps staged archives byte-identical between runs.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// NewAsset fingerprints props.Path and adds the asset under scope. A path that
// cannot be read is reported when the stack is synthesized.
func NewAsset(scope Construct, id string, props AssetProps) (*Asset, error) {
	a := &Asset{Path: filepath.Clean(props.Path), Exclude: props.Exclude}
	n, err := NewNode(scope, id, a)
	if err != nil {
		return nil, err
	}
	a.node = n

	a.Packaging, a.Hash, a.err = fingerprint(a.Path, a.Exclude)
	if a.err != nil {
		// keep keys stable even for a broken source
		sum := sha256.Sum256([]byte(a.Path))
		a.Hash = hex.EncodeToString(sum[:])
		a.Packaging = PackagingFile
	}
	n.AddValidation(func() diag.Diagnostics {
		if a.err != nil {
			return diag.Errorf("asset %s: %v", a.Path, a.err)
		}
		return nil
	})
	return a, nil
}

// Node implements Construct.
func (a *Asset) Node() *Node { return a.node }

// ObjectKey is the key of the asset in the asset bucket.
func (a *Asset) ObjectKey() string {
	if a.Packaging == PackagingZip {
		return a.Hash + ".zip"
	}
	return a.Hash + filepath.Ext(a.Path)
}

// Bucket is the asset bucket token.
func (a *Asset) Bucket() string { return PseudoAssetBucket }

// S3URL is the s3:// location of the published asset.
func (a *Asset) S3URL() string {
	return "s3://" + a.Bucket() + "/" + a.ObjectKey()
}

// Err returns the error met while reading the source, if any.
func (a *Asset) Err() error { return a.err }

// excluded reports whether rel (slash separated) matches one of patterns.
func excluded(rel string, patterns []string) bool {
	segments := strings.Split(rel, "/")
	for _, p := range patterns {
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		for _, s := range segments {
			if ok, _ := path.Match(p, s); ok {
				return true
			}
		}
	}
	return false
}

func fingerprint(src string, exclude []string) (AssetPackaging, string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", "", err
	}

	h := sha256.New()
	if !info.IsDir() {
		if err := copyFile(h, src); err != nil {
			return "", "", err
		}
		return PackagingFile, hex.EncodeToString(h.Sum(nil)), nil
	}

	// entry framing: rel, NUL, sha256(content)
	err = walkAsset(src, exclude, func(rel, full string) error {
		fh := sha256.New()
		if err := copyFile(fh, full); err != nil {
			return err
		}
		io.WriteString(h, rel)
		h.Write([]byte{0})
		h.Write(fh.Sum(nil))
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return PackagingZip, hex.EncodeToString(h.Sum(nil)), nil
}

// walkAsset calls fn for each regular file under root, in lexical order,
// skipping excluded entries.
func walkAsset(root string, exclude []string, fn func(rel, full string) error) error {
	return filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if full == root {
			return nil
		}
		rel, err := filepath.Rel(root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel, exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(rel, full)
	})
}

func copyFile(w io.Writer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// stage writes the asset into outDir, once per hash.
func (a *Asset) stage(outDir string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	dst := filepath.Join(outDir, "asset."+a.ObjectKey())
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	tmp, err := os.CreateTemp(outDir, ".staging-*")
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", a.Path, err)
	}
	defer os.Remove(tmp.Name())

	if a.Packaging == PackagingZip {
		err = writeZip(tmp, a.Path, a.Exclude)
	} else {
		err = copyFile(tmp, a.Path)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", a.Path, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("staging %s: %w", a.Path, err)
	}
	return dst, nil
}

func writeZip(w io.Writer, root string, exclude []string) error {
	zw := zip.NewWriter(w)
	err := walkAsset(root, exclude, func(rel, full string) error {
		hdr := &zip.FileHeader{Name: rel, Method: zip.Deflate, Modified: zipEpoch}
		hdr.SetMode(0o644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		return copyFile(fw, full)
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
