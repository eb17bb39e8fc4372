package filestorage

import (
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"strings"

	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

// Attachments stores the uploads that come with a no-dues form
type Attachments struct {
	storage      FileStorage
	maxDocuments int
}

// NewAttachments creates an Attachments store over storage
func NewAttachments(storage FileStorage, maxDocuments int) *Attachments {
	return &Attachments{storage: storage, maxDocuments: maxDocuments}
}

// MaxDocuments is the per-submission document limit
func (a *Attachments) MaxDocuments() int {
	return a.maxDocuments
}

// Save stores the profile picture and documents of a student. Files written
// before a failure are removed again.
func (a *Attachments) Save(studentID string, picture *multipart.FileHeader, documents []*multipart.FileHeader) (string, []models.Document, error) {
	if len(documents) > a.maxDocuments {
		return "", nil, apperrors.NewValidationError(fmt.Sprintf("at most %d documents may be uploaded", a.maxDocuments))
	}

	dir := path.Join("students", studentID)
	var saved []string
	cleanup := func() {
		for _, p := range saved {
			_ = a.storage.DeleteFile(p)
		}
	}

	var picturePath string
	if picture != nil {
		p, err := a.storage.SaveFileWithPath(picture, dir)
		if err != nil {
			return "", nil, err
		}
		picturePath = p
		saved = append(saved, p)
	}

	docs := make([]models.Document, 0, len(documents))
	for _, fh := range documents {
		p, err := a.storage.SaveFileWithPath(fh, path.Join(dir, "documents"))
		if err != nil {
			cleanup()
			return "", nil, err
		}
		saved = append(saved, p)
		docs = append(docs, models.Document{
			Filename:     p,
			OriginalName: fh.Filename,
			Size:         fh.Size,
			MimeType:     fh.Header.Get("Content-Type"),
		})
	}
	return picturePath, docs, nil
}

// Discard removes stored files, used when the submission they belong to failed
func (a *Attachments) Discard(picture string, documents []models.Document) {
	if picture != "" {
		_ = a.storage.DeleteFile(picture)
	}
	for _, d := range documents {
		_ = a.storage.DeleteFile(d.Filename)
	}
}

// Locate returns the file on disk for name below the student's folder.
// Names that leave the folder or point at nothing are not found.
func (a *Attachments) Locate(studentID, name string) (string, error) {
	rel := cleanSubPath(name)
	if rel == "" || studentID == "" || studentID == "." || studentID == ".." || strings.ContainsAny(studentID, `/\`) {
		return "", apperrors.NewNotFoundError("attachment not found")
	}

	full := a.storage.GetFullPath(path.Join("students", studentID, rel))
	if full == "" {
		return "", apperrors.NewNotFoundError("attachment not found")
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", apperrors.NewNotFoundError("attachment not found")
	}
	return full, nil
}
