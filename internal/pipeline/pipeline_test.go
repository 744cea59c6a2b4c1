package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeka/zip"
)

// fakeMail is an in-memory MailService.
type fakeMail struct {
	messages    map[string]*Message
	attachments map[string][]byte // keyed by attachment id
	order       []string

	searchErr   error
	getErr      map[string]error
	downloadErr map[string]error
}

func (f *fakeMail) SearchMessages(_ context.Context, _ string) ([]string, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.order, nil
}

func (f *fakeMail) GetMessage(_ context.Context, id string) (*Message, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("no such message %s", id)
	}
	return msg, nil
}

func (f *fakeMail) DownloadAttachment(_ context.Context, _, attachmentID string) ([]byte, error) {
	if err := f.downloadErr[attachmentID]; err != nil {
		return nil, err
	}
	data, ok := f.attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("no such attachment %s", attachmentID)
	}
	return data, nil
}

// fakeStorage is an in-memory StorageService that persists created folders,
// so resolve calls are idempotent across the run.
type fakeStorage struct {
	folders []Folder
	files   map[string]map[string][]byte // folder id -> name -> content
	nextID  int

	listCalls   int
	createErr   error
	uploadErr   error
	uploadCalls int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string]map[string][]byte)}
}

func (f *fakeStorage) ListFolders(_ context.Context, name, parentID string) ([]Folder, error) {
	f.listCalls++
	var out []Folder
	for _, folder := range f.folders {
		if folder.Name != name {
			continue
		}
		if parentID != "" {
			nested := false
			for _, p := range folder.Parents {
				if p == parentID {
					nested = true
				}
			}
			if !nested {
				continue
			}
		}
		out = append(out, folder)
	}
	return out, nil
}

func (f *fakeStorage) CreateFolder(_ context.Context, name, parentID string) (*Folder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	folder := Folder{ID: fmt.Sprintf("folder-%d", f.nextID), Name: name}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}
	f.folders = append(f.folders, folder)
	return &folder, nil
}

func (f *fakeStorage) UploadFile(_ context.Context, name string, data []byte, parentID string) (string, error) {
	f.uploadCalls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if f.files[parentID] == nil {
		f.files[parentID] = make(map[string][]byte)
	}
	f.files[parentID][name] = data
	return fmt.Sprintf("file-%d", f.uploadCalls), nil
}

// folderByName returns the first folder with the given name.
func (f *fakeStorage) folderByName(name string) *Folder {
	for i := range f.folders {
		if f.folders[i].Name == name {
			return &f.folders[i]
		}
	}
	return nil
}

func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func testConfig() Config {
	return Config{
		Sender:       "rrhh@empresa.com",
		LookbackDays: 12,
		RootFolder:   "NOMINAS",
	}
}

func TestBuildQuery(t *testing.T) {
	now := time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC)
	got := buildQuery("rrhh@empresa.com", 12, now)
	want := "from:rrhh@empresa.com after:2025/03/08 has:attachment"
	if got != want {
		t.Errorf("buildQuery() = %q, want %q", got, want)
	}
}

func TestRunNoMessages(t *testing.T) {
	storage := newFakeStorage()
	p := New(&fakeMail{}, storage, testConfig())

	count, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, storage.listCalls, "storage must not be touched when search is empty")
	assert.Zero(t, storage.uploadCalls)
}

func TestRunSearchFailureIsFatal(t *testing.T) {
	p := New(&fakeMail{searchErr: errors.New("quota exceeded")}, newFakeStorage(), testConfig())

	_, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to search messages")
}

func TestRunUploadsExtractedEntries(t *testing.T) {
	data := zipBytes(t, map[string][]byte{
		"nomina.pdf": []byte("february payslip"),
	})
	mail := &fakeMail{
		order: []string{"m1"},
		messages: map[string]*Message{
			"m1": {
				ID:         "m1",
				ReceivedAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
				Parts: []Part{
					{Filename: "body", AttachmentID: ""},
					{Filename: "Nominas_Marzo.ZIP", AttachmentID: "a1"},
				},
			},
		},
		attachments: map[string][]byte{"a1": data},
	}
	storage := newFakeStorage()
	p := New(mail, storage, testConfig())

	count, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)

	root := storage.folderByName("NOMINAS")
	require.NotNil(t, root)
	year := storage.folderByName("2025")
	require.NotNil(t, year)
	assert.Equal(t, []string{root.ID}, year.Parents)
	assert.Equal(t, []byte("february payslip"), storage.files[year.ID]["02 FEBRERO 2025.pdf"])
}

func TestRunCertificateFiledUnderExerciseYear(t *testing.T) {
	data := zipBytes(t, map[string][]byte{
		"certificado.pdf": []byte("annual certificate"),
	})
	mail := &fakeMail{
		order: []string{"m1"},
		messages: map[string]*Message{
			"m1": {
				ID:         "m1",
				ReceivedAt: time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC),
				Parts:      []Part{{Filename: "Z123.zip", AttachmentID: "a1"}},
			},
		},
		attachments: map[string][]byte{"a1": data},
	}
	storage := newFakeStorage()
	p := New(mail, storage, testConfig())

	count, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)

	year := storage.folderByName("2024")
	require.NotNil(t, year, "certificate belongs in the exercise year folder")
	assert.Contains(t, storage.files[year.ID], "Certificado_Ingresos_y_Retenciones_ejercicio_2024.pdf")
}

func TestRunSkipsNonZipParts(t *testing.T) {
	mail := &fakeMail{
		order: []string{"m1"},
		messages: map[string]*Message{
			"m1": {
				ID:         "m1",
				ReceivedAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
				Parts: []Part{
					{Filename: "nomina.pdf", AttachmentID: "a1"},
					{Filename: "archive.zip", AttachmentID: ""}, // not fetchable
				},
			},
		},
	}
	storage := newFakeStorage()
	p := New(mail, storage, testConfig())

	count, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, storage.uploadCalls)
}

func TestRunDownloadFailureSkipsPart(t *testing.T) {
	good := zipBytes(t, map[string][]byte{"nomina.pdf": []byte("ok")})
	mail := &fakeMail{
		order: []string{"m1"},
		messages: map[string]*Message{
			"m1": {
				ID:         "m1",
				ReceivedAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
				Parts: []Part{
					{Filename: "broken.zip", AttachmentID: "bad"},
					{Filename: "fine.zip", AttachmentID: "a1"},
				},
			},
		},
		attachments: map[string][]byte{"a1": good},
		downloadErr: map[string]error{"bad": errors.New("network error")},
	}
	storage := newFakeStorage()
	p := New(mail, storage, testConfig())

	count, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunIsolatesMessageFailures(t *testing.T) {
	good := zipBytes(t, map[string][]byte{"nomina.pdf": []byte("ok")})
	mail := &fakeMail{
		order: []string{"m1", "m2"},
		messages: map[string]*Message{
			"m2": {
				ID:         "m2",
				ReceivedAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
				Parts:      []Part{{Filename: "fine.zip", AttachmentID: "a1"}},
			},
		},
		attachments: map[string][]byte{"a1": good},
		getErr:      map[string]error{"m1": errors.New("backend 500")},
	}
	storage := newFakeStorage()
	p := New(mail, storage, testConfig())

	count, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count, "healthy message must still be processed")
}

func TestRunFolderFailureSkipsFile(t *testing.T) {
	data := zipBytes(t, map[string][]byte{"nomina.pdf": []byte("ok")})
	mail := &fakeMail{
		order: []string{"m1"},
		messages: map[string]*Message{
			"m1": {
				ID:         "m1",
				ReceivedAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
				Parts:      []Part{{Filename: "fine.zip", AttachmentID: "a1"}},
			},
		},
		attachments: map[string][]byte{"a1": data},
	}
	storage := newFakeStorage()
	storage.createErr = errors.New("insufficient permissions")
	p := New(mail, storage, testConfig())

	count, err := p.Run(context.Background())

	require.NoError(t, err, "folder failure must not abort the run")
	assert.Zero(t, count)
	assert.Zero(t, storage.uploadCalls)
}

func TestResolveFolderIdempotent(t *testing.T) {
	storage := newFakeStorage()
	p := New(&fakeMail{}, storage, testConfig())
	ctx := context.Background()

	first, err := p.ResolveFolder(ctx, "NOMINAS", "2025")
	require.NoError(t, err)
	second, err := p.ResolveFolder(ctx, "NOMINAS", "2025")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, storage.folders, 2, "only one root and one year folder created")
}

func TestResolveFolderPrefersParentlessRoot(t *testing.T) {
	storage := newFakeStorage()
	// Newest-first ordering: a nested NOMINAS copy shows up before the one at
	// the storage root.
	storage.folders = []Folder{
		{ID: "nested", Name: "NOMINAS", Parents: []string{"somewhere"}},
		{ID: "at-root", Name: "NOMINAS"},
	}
	p := New(&fakeMail{}, storage, testConfig())

	id, err := p.ResolveFolder(context.Background(), "NOMINAS", "2025")

	require.NoError(t, err)
	year := storage.folderByName("2025")
	require.NotNil(t, year)
	assert.Equal(t, []string{"at-root"}, year.Parents)
	assert.NotEmpty(t, id)
}

func TestResolveFolderUsesFirstWhenAllNested(t *testing.T) {
	storage := newFakeStorage()
	storage.folders = []Folder{
		{ID: "newest", Name: "NOMINAS", Parents: []string{"elsewhere"}},
		{ID: "older", Name: "NOMINAS", Parents: []string{"elsewhere"}},
	}
	p := New(&fakeMail{}, storage, testConfig())

	_, err := p.ResolveFolder(context.Background(), "NOMINAS", "2025")

	require.NoError(t, err)
	year := storage.folderByName("2025")
	require.NotNil(t, year)
	assert.Equal(t, []string{"newest"}, year.Parents)
}

func TestRunPasswordProtectedArchive(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Encrypt("nomina.pdf", "secreto", zip.AES256Encryption)
	require.NoError(t, err)
	_, err = fw.Write([]byte("protected"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	mail := &fakeMail{
		order: []string{"m1"},
		messages: map[string]*Message{
			"m1": {
				ID:         "m1",
				ReceivedAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
				Parts:      []Part{{Filename: "fine.zip", AttachmentID: "a1"}},
			},
		},
		attachments: map[string][]byte{"a1": buf.Bytes()},
	}
	storage := newFakeStorage()
	cfg := testConfig()
	cfg.ZipPassword = "secreto"
	p := New(mail, storage, cfg)

	count, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
