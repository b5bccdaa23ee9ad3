package upload

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// one Folder for one document
type Folder interface {
	Delete(filename string) error
	DocumentID() int
	Files() ([]string, error) // sorted
	HasFile(filename string) (bool, error)
	Open(filename string) (io.ReadCloser, error)
	Upload(filename string, src io.Reader) error // replaces an existing file
}

func CleanFilename(filename string) (string, error) {
	filename = filepath.Base(filename)
	filename = strings.TrimSpace(filename)
	if strings.Contains(filename, "/") || strings.Contains(filename, `\`) {
		return "", errors.New("filename contains a slash")
	}
	if filename == "" || filename == "." {
		return "", errors.New("filename is empty")
	}
	return filename, nil
}

// CopyFolder makes dst contain the same files as src. Files in dst which are not in src are deleted.
func CopyFolder(dst, src Folder) error {

	srcFiles, err := src.Files()
	if err != nil {
		return err
	}

	var keep = make(map[string]struct{}, len(srcFiles))

	for _, filename := range srcFiles {
		keep[filename] = struct{}{}
		if err := copyFile(dst, src, filename); err != nil {
			return fmt.Errorf("copying %s from %d to %d: %w", filename, src.DocumentID(), dst.DocumentID(), err)
		}
	}

	dstFiles, err := dst.Files()
	if err != nil {
		return err
	}

	for _, filename := range dstFiles {
		if _, ok := keep[filename]; !ok {
			if err := dst.Delete(filename); err != nil {
				return err
			}
		}
	}

	return nil
}

func copyFile(dst, src Folder, filename string) error {
	r, err := src.Open(filename)
	if err != nil {
		return err
	}
	defer r.Close()
	return dst.Upload(filename, r)
}
