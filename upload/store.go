package upload

import (
	"strings"
)

type Store interface {
	Folder(documentID int) Folder
	RemoveFolder(documentID int) error
}

// SplitRef splits an attachment reference like "Space.Page@photo.jpg" into the document part and the filename.
// It returns ok == false if there is no "@" or if one of the parts is empty.
func SplitRef(s string) (doc string, filename string, ok bool) {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", "", false
	}
	doc, filename = s[:at], s[at+1:]
	if _, err := CleanFilename(filename); err != nil {
		return "", "", false
	}
	return doc, filename, true
}

// JoinRef is the inverse of SplitRef.
func JoinRef(doc, filename string) string {
	return doc + "@" + filename
}
