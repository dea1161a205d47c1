package files

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	mock.ExpectQuery(`INSERT\s+INTO\s+files`).
		WithArgs(sqlmock.AnyArg(), "owner-1", models.KindPhoto, "owner-1/123_abc.png", "s3://bucket/owner-1/123_abc.png",
			"image/png", int64(1024), []byte("iv"), []byte("tag")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	f := &models.StoredFile{
		OwnerID:    "owner-1",
		Kind:       models.KindPhoto,
		StorageKey: "owner-1/123_abc.png",
		Location:   "s3://bucket/owner-1/123_abc.png",
		MimeType:   "image/png",
		SizeBytes:  1024,
		IV:         []byte("iv"),
		AuthTag:    []byte("tag"),
	}
	got, err := repo.Create(context.Background(), f)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*owner_id.*FROM\s+files`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected common.ErrNotFound, got %v", err)
	}
}

func TestCountByOwnerAndKind(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+count\(\*\)\s+FROM\s+files\s+WHERE\s+owner_id\s*=\s*\$1\s+AND\s+kind\s*=\s*\$2`).
		WithArgs("owner-1", models.KindResume).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountByOwnerAndKind(context.Background(), "owner-1", models.KindResume)
	if err != nil {
		t.Fatalf("CountByOwnerAndKind error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+files\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("f-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "f-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}
