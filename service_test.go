package filedrop_test

import (
	"context"
	"errors"
	"testing"

	"filedrop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SpyMetadataRepo struct {
	mock.Mock
	caps filedrop.Capabilities
}

func (s *SpyMetadataRepo) Capabilities() filedrop.Capabilities {
	return s.caps
}

func (s *SpyMetadataRepo) Insert(ctx context.Context, rec filedrop.FileRecord) (filedrop.FileRecord, error) {
	args := s.Called(ctx, rec)
	return args.Get(0).(filedrop.FileRecord), args.Error(1)
}

func (s *SpyMetadataRepo) List(ctx context.Context) ([]filedrop.FileRecord, error) {
	args := s.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]filedrop.FileRecord), args.Error(1)
}

func (s *SpyMetadataRepo) FindByFilename(ctx context.Context, filename string) (filedrop.FileRecord, error) {
	args := s.Called(ctx, filename)
	return args.Get(0).(filedrop.FileRecord), args.Error(1)
}

func (s *SpyMetadataRepo) SetStarred(ctx context.Context, filename string, starred bool) (int64, error) {
	args := s.Called(ctx, filename, starred)
	return args.Get(0).(int64), args.Error(1)
}

func (s *SpyMetadataRepo) MarkPendingDelete(ctx context.Context, filename string) ([]filedrop.FileRecord, error) {
	args := s.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]filedrop.FileRecord), args.Error(1)
}

func (s *SpyMetadataRepo) MarkPurged(ctx context.Context, id int64) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

func (s *SpyMetadataRepo) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	args := s.Called(ctx, filename)
	return args.Get(0).(int64), args.Error(1)
}

func (s *SpyMetadataRepo) ListPendingDelete(ctx context.Context, limit int) ([]filedrop.FileRecord, error) {
	args := s.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]filedrop.FileRecord), args.Error(1)
}

type SpyObjectStore struct {
	mock.Mock
}

func (s *SpyObjectStore) Put(ctx context.Context, key, contentType string, payload []byte) (string, error) {
	args := s.Called(ctx, key, contentType, payload)
	return args.String(0), args.Error(1)
}

func (s *SpyObjectStore) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyObjectStore) PublicURL(key string) (string, error) {
	args := s.Called(key)
	return args.String(0), args.Error(1)
}

// fullCaps is the capability set of a freshly migrated schema.
var fullCaps = filedrop.Capabilities{
	Starred:    true,
	TimeColumn: "uploaded_at",
	TextShare:  true,
	StorageKey: true,
	SoftDelete: true,
}

func newShareService(t *testing.T, caps filedrop.Capabilities) (*filedrop.ShareService, *SpyMetadataRepo, *SpyObjectStore) {
	t.Helper()
	repo := &SpyMetadataRepo{caps: caps}
	store := new(SpyObjectStore)
	auth, err := filedrop.NewStaticSecret("S")
	require.NoError(t, err, "new static secret")
	svc, err := filedrop.NewShareService(repo, store, auth, filedrop.ServiceConfig{})
	require.NoError(t, err, "new share service")
	return svc, repo, store
}

func TestShareService_Upload(t *testing.T) {
	payload := []byte("hello world")

	t.Run("success with opaque storage key", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return key != "report.pdf" // opaque key, not the display name
		}), "application/pdf", payload).Return("http://blobs/x", nil)

		repo.On("Insert", ctx, mock.MatchedBy(func(rec filedrop.FileRecord) bool {
			return rec.Filename == "report.pdf" &&
				rec.URL == "http://blobs/x" &&
				rec.Size == int64(len(payload)) &&
				rec.Uploader == "Ana" &&
				rec.StorageKey != ""
		})).Return(filedrop.FileRecord{ID: 1, Filename: "report.pdf", Size: int64(len(payload)), Uploader: "Ana"}, nil)

		rec, err := svc.Upload(ctx, filedrop.UploadRequest{
			Filename:    "report.pdf",
			ContentType: "application/pdf",
			Uploader:    "Ana",
		}, payload)

		assert.NoError(t, err)
		assert.Equal(t, int64(len(payload)), rec.Size)
		store.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("legacy schema keys blob by filename", func(t *testing.T) {
		svc, repo, store := newShareService(t, filedrop.Capabilities{})
		ctx := context.Background()

		store.On("Put", ctx, "report.pdf", "application/pdf", payload).Return("http://blobs/report.pdf", nil)
		repo.On("Insert", ctx, mock.Anything).Return(filedrop.FileRecord{ID: 1}, nil)

		_, err := svc.Upload(ctx, filedrop.UploadRequest{Filename: "report.pdf", ContentType: "application/pdf"}, payload)

		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("empty payload rejected before any store call", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)

		_, err := svc.Upload(context.Background(), filedrop.UploadRequest{Filename: "a.txt", ContentType: "text/plain"}, nil)

		assert.ErrorIs(t, err, filedrop.ErrInvalidInput)
		store.AssertNotCalled(t, "Put")
		repo.AssertNotCalled(t, "Insert")
	})

	t.Run("invalid filename rejected", func(t *testing.T) {
		svc, _, store := newShareService(t, fullCaps)

		_, err := svc.Upload(context.Background(), filedrop.UploadRequest{Filename: "../etc/passwd", ContentType: "text/plain"}, payload)

		assert.ErrorIs(t, err, filedrop.ErrInvalidInput)
		store.AssertNotCalled(t, "Put")
	})

	t.Run("blob write failure aborts before insert", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

		_, err := svc.Upload(ctx, filedrop.UploadRequest{Filename: "a.txt", ContentType: "text/plain"}, payload)

		assert.Error(t, err)
		repo.AssertNotCalled(t, "Insert")
	})

	t.Run("insert failure compensates with blob delete", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return("http://blobs/x", nil)
		repo.On("Insert", ctx, mock.Anything).Return(filedrop.FileRecord{}, errors.New("insert failed"))
		store.On("Delete", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.Upload(ctx, filedrop.UploadRequest{Filename: "a.txt", ContentType: "text/plain"}, payload)

		assert.Error(t, err)
		store.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestShareService_ShareText(t *testing.T) {
	t.Run("derives filename and embeds body", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		wantBody := "Title: Hello, World!\nAuthor: Ana\n\nsome text"

		store.On("Put", ctx, mock.Anything, "text/plain", []byte(wantBody)).Return("http://blobs/x", nil)
		repo.On("Insert", ctx, mock.MatchedBy(func(rec filedrop.FileRecord) bool {
			return rec.Filename == "Hello_World_text.txt" &&
				rec.IsText &&
				rec.TextTitle == "Hello, World!" &&
				rec.TextContent == "some text" &&
				rec.Size == int64(len(wantBody))
		})).Return(filedrop.FileRecord{ID: 7, Filename: "Hello_World_text.txt"}, nil)

		rec, err := svc.ShareText(ctx, filedrop.TextShare{Title: "Hello, World!", Content: "some text", Author: "Ana"})

		assert.NoError(t, err)
		assert.Equal(t, "Hello_World_text.txt", rec.Filename)
		store.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("missing title or content rejected", func(t *testing.T) {
		svc, _, store := newShareService(t, fullCaps)

		_, err := svc.ShareText(context.Background(), filedrop.TextShare{Title: "x"})
		assert.ErrorIs(t, err, filedrop.ErrInvalidInput)

		_, err = svc.ShareText(context.Background(), filedrop.TextShare{Content: "x"})
		assert.ErrorIs(t, err, filedrop.ErrInvalidInput)

		store.AssertNotCalled(t, "Put")
	})
}

func TestShareService_SaveRecord(t *testing.T) {
	t.Run("inserts without touching the store", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		rec := filedrop.FileRecord{Filename: "ext.bin", URL: "http://elsewhere/ext.bin", Size: 42}
		repo.On("Insert", ctx, rec).Return(filedrop.FileRecord{ID: 3, Filename: "ext.bin"}, nil)

		created, err := svc.SaveRecord(ctx, rec)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), created.ID)
		store.AssertNotCalled(t, "Put")
	})
}

func TestShareService_List(t *testing.T) {
	t.Run("passes through repo order", func(t *testing.T) {
		svc, repo, _ := newShareService(t, fullCaps)
		ctx := context.Background()

		recs := []filedrop.FileRecord{
			{ID: 2, Filename: "starred.txt", Starred: true},
			{ID: 3, Filename: "newer.txt"},
			{ID: 1, Filename: "older.txt"},
		}
		repo.On("List", ctx).Return(recs, nil)

		got, err := svc.List(ctx)

		assert.NoError(t, err)
		assert.Equal(t, recs, got)
	})

	t.Run("nil from repo becomes empty slice", func(t *testing.T) {
		svc, repo, _ := newShareService(t, fullCaps)
		ctx := context.Background()

		repo.On("List", ctx).Return(nil, nil)

		got, err := svc.List(ctx)

		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestShareService_SetStarred(t *testing.T) {
	t.Run("zero matches is success", func(t *testing.T) {
		svc, repo, _ := newShareService(t, fullCaps)
		ctx := context.Background()

		repo.On("SetStarred", ctx, "ghost.txt", true).Return(int64(0), nil)

		n, err := svc.SetStarred(ctx, "ghost.txt", true)

		assert.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("updates all matching rows", func(t *testing.T) {
		svc, repo, _ := newShareService(t, fullCaps)
		ctx := context.Background()

		repo.On("SetStarred", ctx, "dup.txt", false).Return(int64(2), nil)

		n, err := svc.SetStarred(ctx, "dup.txt", false)

		assert.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("schema without starred column", func(t *testing.T) {
		svc, repo, _ := newShareService(t, filedrop.Capabilities{})
		ctx := context.Background()

		repo.On("SetStarred", ctx, "a.txt", true).Return(int64(0), filedrop.ErrUnsupported)

		_, err := svc.SetStarred(ctx, "a.txt", true)

		assert.ErrorIs(t, err, filedrop.ErrUnsupported)
	})
}

func TestShareService_Delete(t *testing.T) {
	t.Run("wrong secret has no side effects", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)

		err := svc.Delete(context.Background(), "report.pdf", "not-S")

		assert.ErrorIs(t, err, filedrop.ErrUnauthorized)
		repo.AssertNotCalled(t, "MarkPendingDelete")
		store.AssertNotCalled(t, "Delete")
	})

	t.Run("empty secret has no side effects", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)

		err := svc.Delete(context.Background(), "report.pdf", "")

		assert.ErrorIs(t, err, filedrop.ErrUnauthorized)
		repo.AssertNotCalled(t, "MarkPendingDelete")
		store.AssertNotCalled(t, "Delete")
	})

	t.Run("soft delete marks, removes blobs, purges", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		recs := []filedrop.FileRecord{
			{ID: 1, Filename: "dup.txt", StorageKey: "k1"},
			{ID: 2, Filename: "dup.txt", StorageKey: "k2"},
		}
		repo.On("MarkPendingDelete", ctx, "dup.txt").Return(recs, nil)
		store.On("Delete", ctx, "k1").Return(nil)
		store.On("Delete", ctx, "k2").Return(filedrop.ErrNotFound) // blob already gone
		repo.On("MarkPurged", ctx, int64(1)).Return(nil)
		repo.On("MarkPurged", ctx, int64(2)).Return(nil)

		err := svc.Delete(ctx, "dup.txt", "S")

		assert.NoError(t, err)
		store.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("no matching rows", func(t *testing.T) {
		svc, repo, _ := newShareService(t, fullCaps)
		ctx := context.Background()

		repo.On("MarkPendingDelete", ctx, "ghost.txt").Return([]filedrop.FileRecord{}, nil)

		err := svc.Delete(ctx, "ghost.txt", "S")

		assert.ErrorIs(t, err, filedrop.ErrNotFound)
	})

	t.Run("blob failure leaves rows pending", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		recs := []filedrop.FileRecord{{ID: 1, Filename: "a.txt", StorageKey: "k1"}}
		repo.On("MarkPendingDelete", ctx, "a.txt").Return(recs, nil)
		store.On("Delete", ctx, "k1").Return(errors.New("store down"))

		err := svc.Delete(ctx, "a.txt", "S")

		assert.Error(t, err)
		repo.AssertNotCalled(t, "MarkPurged")
	})

	t.Run("legacy schema deletes blob then rows", func(t *testing.T) {
		svc, repo, store := newShareService(t, filedrop.Capabilities{})
		ctx := context.Background()

		store.On("Delete", ctx, "a.txt").Return(nil)
		repo.On("DeleteByFilename", ctx, "a.txt").Return(int64(1), nil)

		err := svc.Delete(ctx, "a.txt", "S")

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "MarkPendingDelete")
		store.AssertExpectations(t)
	})
}

func TestShareService_ResolveURL(t *testing.T) {
	t.Run("maps filename to storage key", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		repo.On("FindByFilename", ctx, "report.pdf").Return(filedrop.FileRecord{ID: 1, Filename: "report.pdf", StorageKey: "2025/01/02/x.pdf"}, nil)
		store.On("PublicURL", "2025/01/02/x.pdf").Return("http://blobs/2025/01/02/x.pdf", nil)

		url, err := svc.ResolveURL(ctx, "report.pdf")

		assert.NoError(t, err)
		assert.Equal(t, "http://blobs/2025/01/02/x.pdf", url)
	})

	t.Run("legacy schema passes filename straight through", func(t *testing.T) {
		svc, repo, store := newShareService(t, filedrop.Capabilities{})
		ctx := context.Background()

		store.On("PublicURL", "report.pdf").Return("http://blobs/report.pdf", nil)

		url, err := svc.ResolveURL(ctx, "report.pdf")

		assert.NoError(t, err)
		assert.Equal(t, "http://blobs/report.pdf", url)
		repo.AssertNotCalled(t, "FindByFilename")
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo, _ := newShareService(t, fullCaps)
		ctx := context.Background()

		repo.On("FindByFilename", ctx, "ghost.pdf").Return(filedrop.FileRecord{}, filedrop.ErrNotFound)

		_, err := svc.ResolveURL(ctx, "ghost.pdf")

		assert.ErrorIs(t, err, filedrop.ErrNotFound)
	})
}

func TestShareService_Reconcile(t *testing.T) {
	t.Run("repairs pending rows in batches", func(t *testing.T) {
		svc, repo, store := newShareService(t, fullCaps)
		ctx := context.Background()

		batch := []filedrop.FileRecord{
			{ID: 1, Filename: "a.txt", StorageKey: "k1"},
			{ID: 2, Filename: "b.txt", StorageKey: "k2"},
		}
		repo.On("ListPendingDelete", ctx, 100).Return(batch, nil).Once()
		repo.On("ListPendingDelete", ctx, 100).Return([]filedrop.FileRecord{}, nil).Once()
		store.On("Delete", ctx, "k1").Return(nil)
		store.On("Delete", ctx, "k2").Return(filedrop.ErrNotFound)
		repo.On("MarkPurged", ctx, int64(1)).Return(nil)
		repo.On("MarkPurged", ctx, int64(2)).Return(nil)

		n, err := svc.Reconcile(ctx, 0)

		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		repo.AssertExpectations(t)
	})

	t.Run("unsupported without soft delete columns", func(t *testing.T) {
		svc, _, _ := newShareService(t, filedrop.Capabilities{})

		_, err := svc.Reconcile(context.Background(), 10)

		assert.ErrorIs(t, err, filedrop.ErrUnsupported)
	})
}
