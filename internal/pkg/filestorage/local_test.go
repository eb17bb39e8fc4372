package filestorage

import (
	"bytes"
	"mime/multipart"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

// uploads builds file headers the way a multipart request would carry them
func uploads(t *testing.T, field string, names ...string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range names {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field]
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "", zerolog.Nop())
	require.NoError(t, err)

	fh := uploads(t, "profilePicture", "Me.PNG")[0]
	p, err := ls.SaveFileWithPath(fh, "students/S1")
	require.NoError(t, err)
	assert.Regexp(t, `^uploads/students/S1/[0-9a-f-]{36}\.png$`, p)

	full := ls.GetFullPath(p)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "content of Me.PNG", string(data))

	require.NoError(t, ls.DeleteFile(p))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ls.DeleteFile(p), "deleting twice is not an error")
}

func TestLocalStorageStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	ls, err := NewLocalStorage(root, "http://files.local/", zerolog.Nop())
	require.NoError(t, err)

	p, err := ls.SaveFileWithPath(uploads(t, "f", "a.pdf")[0], "../../etc")
	require.NoError(t, err)
	assert.Contains(t, p, "http://files.local/etc/")
	assert.FileExists(t, ls.GetFullPath(p))
	assert.Contains(t, ls.GetFullPath(p), root)
}

func TestAttachmentsSave(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "", zerolog.Nop())
	require.NoError(t, err)
	att := NewAttachments(ls, 2)

	pic, docs, err := att.Save("S1", uploads(t, "profilePicture", "me.jpg")[0], uploads(t, "documents", "fee.pdf", "library.pdf"))
	require.NoError(t, err)
	assert.NotEmpty(t, pic)
	require.Len(t, docs, 2)
	assert.Equal(t, "fee.pdf", docs[0].OriginalName)
	assert.Equal(t, int64(len("content of fee.pdf")), docs[0].Size)
	assert.FileExists(t, ls.GetFullPath(docs[1].Filename))

	att.Discard(pic, docs)
	assert.NoFileExists(t, ls.GetFullPath(pic))

	_, _, err = att.Save("S1", nil, uploads(t, "documents", "a", "b", "c"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAttachmentsLocate(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/api/v1/uploads", zerolog.Nop())
	require.NoError(t, err)
	att := NewAttachments(ls, 2)

	_, docs, err := att.Save("S1", nil, uploads(t, "documents", "fee.pdf"))
	require.NoError(t, err)
	name := strings.TrimPrefix(docs[0].Filename, "http://localhost:8080/api/v1/uploads/students/S1/")
	require.NotEqual(t, docs[0].Filename, name)

	full, err := att.Locate("S1", "/"+name)
	require.NoError(t, err)
	assert.Equal(t, ls.GetFullPath(docs[0].Filename), full)

	_, _, err = att.Save("S2", nil, uploads(t, "documents", "other.pdf"))
	require.NoError(t, err)

	for _, tc := range []struct{ student, name string }{
		{"S2", name},
		{"S1", "documents/missing.pdf"},
		{"S1", "documents"},
		{"S1", "../S2/" + name},
		{"..", "S1/" + name},
		{"", name},
	} {
		_, err := att.Locate(tc.student, tc.name)
		assert.ErrorIs(t, err, apperrors.ErrNotFound, "%s %s", tc.student, tc.name)
	}
}
