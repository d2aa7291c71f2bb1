package folders

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	d1 = "3c2b1a00-7e6d-4c5b-9a88-11aa22bb3301"
	d2 = "3c2b1a00-7e6d-4c5b-9a88-11aa22bb3302"
	d3 = "3c2b1a00-7e6d-4c5b-9a88-11aa22bb3303"
	d9 = "3c2b1a00-7e6d-4c5b-9a88-11aa22bb3309"
)

var columns = []string{"id", "user_id", "name", "parent_id", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)INSERT INTO folders \(id, user_id, name, parent_id\).*RETURNING created_at, updated_at`).
		WithArgs(d1, "u1", "docs", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	f := &models.Folder{ID: d1, UserID: "u1", Name: "docs"}
	require.NoError(t, repo.Create(context.Background(), f))
	assert.Equal(t, now, f.CreatedAt)
	assert.Equal(t, now, f.UpdatedAt)
}

func TestGet_Foreign(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM folders WHERE id = \$1 AND user_id = \$2`).
		WithArgs(d1, "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "intruder", d1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)parent_id IS NOT DISTINCT FROM \$2\s+ORDER BY name`).
		WithArgs("u1", d1).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(d2, "u1", "a", d1, now, now).
			AddRow(d3, "u1", "b", d1, now, now))

	parent := d1
	got, err := repo.List(context.Background(), "u1", &parent)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, d1, *got[0].ParentID)
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE folders SET name = \$3, parent_id = \$4, updated_at = now\(\)`).
		WithArgs(d1, "u1", "new", nil).
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &models.Folder{ID: d1, UserID: "u1", Name: "new"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestInSubtree(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WITH RECURSIVE subtree AS .*SELECT EXISTS \(SELECT 1 FROM subtree WHERE id = \$3\)`).
		WithArgs(d1, "u1", d9).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.InSubtree(context.Background(), "u1", d1, d9)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubtree(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WITH RECURSIVE subtree AS .*SELECT id FROM subtree$`).
		WithArgs(d1, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(d1).AddRow(d2).AddRow(d3))

	ids, err := repo.Subtree(context.Background(), "u1", d1)
	require.NoError(t, err)
	assert.Equal(t, []string{d1, d2, d3}, ids)
}

func TestSubtree_QueryErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WITH RECURSIVE`).WillReturnError(errors.New("boom"))

	_, err := repo.Subtree(context.Background(), "u1", d1)
	require.Error(t, err)
	assert.Regexp(t, `failed to select folders: .*boom`, err.Error())
}

func TestDeleteTree(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)WITH RECURSIVE subtree AS .*DELETE FROM folders WHERE id IN \(SELECT id FROM subtree\)`).
		WithArgs(d1, "u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteTree(context.Background(), "u1", d1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDeleteTree_Missing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM folders`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.DeleteTree(context.Background(), "u1", d1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMalformedIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()
	ctx := context.Background()
	bad := "not-a-uuid"

	_, err := repo.Get(ctx, "u1", bad)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.List(ctx, "u1", &bad)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Folder{ID: bad, UserID: "u1", Name: "x"}), common.ErrorNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Folder{ID: d1, UserID: "u1", Name: "x", ParentID: &bad}), common.ErrorNotFound)
	inside, err := repo.InSubtree(ctx, "u1", d1, bad)
	require.NoError(t, err)
	assert.False(t, inside)
	ids, err := repo.Subtree(ctx, "u1", bad)
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = repo.DeleteTree(ctx, "u1", bad)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ConnectionLoss(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM folders WHERE id = \$1`).WillReturnError(driver.ErrBadConn)

	_, err := repo.Get(context.Background(), "u1", d1)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}
