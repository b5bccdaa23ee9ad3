package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wansing/pubflow/upload"
)

// implements upload.Folder
type Folder struct {
	store      *Store
	documentID int
}

func (f Folder) uploadsFs() string {
	return filepath.Join(f.store.UploadDir, fmt.Sprintf("%d", f.documentID))
}

func (f Folder) path(filename string) (string, error) {
	filename, err := upload.CleanFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.uploadsFs(), filename), nil
}

func (f Folder) Delete(filename string) error {

	p, err := f.path(filename)
	if err != nil {
		return err
	}

	if err = os.Remove(p); err != nil {
		return err
	}

	_ = os.Remove(f.uploadsFs()) // try to remove folder, works only if the folder is empty
	return nil
}

func (f Folder) DocumentID() int {
	return f.documentID
}

func (f Folder) Files() ([]string, error) {
	entries, err := os.ReadDir(f.uploadsFs())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // assuming the folder was deleted because it was empty
		}
		return nil, err
	}
	var files = make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (f Folder) HasFile(filename string) (bool, error) {
	p, err := f.path(filename)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	} else {
		return false, err
	}
}

func (f Folder) Open(filename string) (io.ReadCloser, error) {
	p, err := f.path(filename)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (f Folder) Upload(filename string, src io.Reader) error {

	p, err := f.path(filename)
	if err != nil {
		return err
	}

	err = os.MkdirAll(f.uploadsFs(), 0755) // 755 is required if the webserver runs as a different user
	if err != nil {
		return err
	}

	dst, err := os.Create(p) // creates or truncates the named file, umask 0666
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// implements upload.Store
type Store struct {
	UploadDir string // will contain folders whose names are document ids
}

func (s *Store) Folder(documentID int) upload.Folder {
	return &Folder{
		store:      s,
		documentID: documentID,
	}
}

func (s *Store) RemoveFolder(documentID int) error {
	return os.RemoveAll(s.Folder(documentID).(*Folder).uploadsFs())
}
