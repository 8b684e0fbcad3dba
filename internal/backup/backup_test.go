package backup

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/mentortrack/internal/config"
)

// writeTree creates files (slash paths relative to root) with their contents.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func archiveNames(t *testing.T, archivePath string) []string {
	t.Helper()
	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func installation(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod":                      "module example",
		"cmd/mt/main.go":              "package main",
		"instance/mentortrack.db":     "sqlite",
		"static/uploads/a.jpg":        "jpeg",
		"static/app.css":              "body{}",
		"server.log":                  "noise",
		".git/HEAD":                   "ref",
		"node_modules/x/index.js":     "x",
		"backups/old_backup_file.zip": "old",
	})
	return root
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

func TestParseKind(t *testing.T) {
	for _, s := range []string{"full", "DATA", " code "} {
		_, err := ParseKind(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseKind("everything")
	assert.Error(t, err)
}

func TestCreate_Full(t *testing.T) {
	root := installation(t)
	a, m, err := Create(Options{Kind: KindFull, Root: root, Dir: filepath.Join(root, "backups"), Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, "MentorTrack_Backup_full_20261019_093000.zip", a.Name)
	assert.Positive(t, a.Size)
	assert.Equal(t, KindFull, m.Kind)
	assert.Len(t, m.ID, 36)
	assert.Equal(t, 5, m.Files)

	assert.ElementsMatch(t, []string{
		"cmd/mt/main.go", "go.mod", "instance/mentortrack.db",
		"static/app.css", "static/uploads/a.jpg", ManifestName,
	}, archiveNames(t, a.Path))
}

func TestCreate_Data(t *testing.T) {
	root := installation(t)
	a, m, err := Create(Options{
		Kind:      KindData,
		Root:      root,
		Dir:       t.TempDir(),
		DataPaths: []string{"instance", "static/uploads", "missing"},
		Now:       fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Files)
	assert.ElementsMatch(t, []string{"instance/mentortrack.db", "static/uploads/a.jpg", ManifestName}, archiveNames(t, a.Path))
}

func TestCreate_CodeSkipsUploads(t *testing.T) {
	root := installation(t)
	a, _, err := Create(Options{
		Kind:      KindCode,
		Root:      root,
		Dir:       t.TempDir(),
		CodePaths: []string{"cmd", "static", "go.mod"},
		Now:       fixedNow,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cmd/mt/main.go", "static/app.css", "go.mod", ManifestName}, archiveNames(t, a.Path))
}

func TestCreate_UnknownKind(t *testing.T) {
	_, _, err := Create(Options{Kind: "weird", Root: t.TempDir(), Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestReadManifest(t *testing.T) {
	root := installation(t)
	a, m, err := Create(Options{Kind: KindData, Root: root, Dir: t.TempDir(), DataPaths: []string{"instance"}, Now: fixedNow})
	require.NoError(t, err)

	got, err := ReadManifest(a.Path)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, KindData, got.Kind)
	assert.True(t, got.CreatedAt.Equal(fixedNow()))
}

func TestList_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	_, err := List(filepath.Join(dir, "missing"))
	require.NoError(t, err)

	writeTree(t, dir, map[string]string{
		"MentorTrack_Backup_full_20260101_000000.zip": "a",
		"MentorTrack_Backup_data_20260201_000000.zip": "bb",
		"notes.txt": "ignored",
	})
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "MentorTrack_Backup_full_20260101_000000.zip"), older, older))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "MentorTrack_Backup_data_20260201_000000.zip"), newer, newer))

	got, err := List(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MentorTrack_Backup_data_20260201_000000.zip", got[0].Name)
	assert.Equal(t, int64(2), got[0].Size)
}

func TestRestore_RoundTrip(t *testing.T) {
	root := installation(t)
	a, _, err := Create(Options{Kind: KindData, Root: root, Dir: t.TempDir(), DataPaths: []string{"instance", "static/uploads"}, Now: fixedNow})
	require.NoError(t, err)

	dest := t.TempDir()
	writeTree(t, dest, map[string]string{"instance/mentortrack.db": "stale"})

	n, err := Restore(a.Path, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dest, "instance", "mentortrack.db"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", string(data))
	_, err = os.Stat(filepath.Join(dest, ManifestName))
	assert.True(t, os.IsNotExist(err), "manifest is not extracted")
}

func TestRestore_RejectsZipSlip(t *testing.T) {
	for _, name := range []string{"../evil.txt", "/etc/evil", "a/../../evil", `..\evil`} {
		t.Run(name, func(t *testing.T) {
			archivePath := filepath.Join(t.TempDir(), "bad.zip")
			f, err := os.Create(archivePath)
			require.NoError(t, err)
			zw := zip.NewWriter(f)
			w, err := zw.Create("ok.txt")
			require.NoError(t, err)
			_, _ = io.WriteString(w, "fine")
			w, err = zw.Create(name)
			require.NoError(t, err)
			_, _ = io.WriteString(w, "evil")
			require.NoError(t, zw.Close())
			require.NoError(t, f.Close())

			dest := t.TempDir()
			_, err = Restore(archivePath, dest)
			assert.ErrorIs(t, err, ErrUnsafePath)
			_, statErr := os.Stat(filepath.Join(dest, "ok.txt"))
			assert.True(t, os.IsNotExist(statErr), "nothing is written when any entry is unsafe")
		})
	}
}

type mockPutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.input = in
	m.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader_Upload(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "MentorTrack_Backup_data_20261019_093000.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("zipdata"), 0o644))

	mock := &mockPutter{}
	u := &S3Uploader{client: mock, bucket: "mt-backups", prefix: "nightly"}
	key, err := u.Upload(context.Background(), archivePath)
	require.NoError(t, err)

	assert.Equal(t, "nightly/MentorTrack_Backup_data_20261019_093000.zip", key)
	assert.Equal(t, "mt-backups", aws.ToString(mock.input.Bucket))
	assert.Equal(t, "application/zip", aws.ToString(mock.input.ContentType))
	assert.Equal(t, int64(7), aws.ToInt64(mock.input.ContentLength))
	assert.Equal(t, "zipdata", string(mock.body))
}

func TestS3Uploader_Errors(t *testing.T) {
	u := &S3Uploader{client: &mockPutter{err: errors.New("access denied")}, bucket: "b"}
	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)

	archivePath := filepath.Join(t.TempDir(), "x.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("z"), 0o644))
	_, err = u.Upload(context.Background(), archivePath)
	assert.ErrorContains(t, err, "access denied")
	assert.Equal(t, "x.zip", u.Key(archivePath))
}

func TestNewS3Uploader_RequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), config.S3Config{})
	assert.Error(t, err)

	u, err := NewS3Uploader(context.Background(), config.S3Config{
		Bucket: "b", Region: "us-east-1", Endpoint: "http://localhost:9000",
		AccessKey: "minio", SecretKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", u.bucket)
}
