package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := New(ctx, t.TempDir())
	require.NoError(t, err)

	first := session.New("a.test.js", "chromium", 0)
	first.Seq = 1
	first.Status = session.StatusFinished
	first.TestResults = []*session.TestResult{{Name: "a > works", Passed: true}}
	second := session.New("a.test.js", "chromium", 1)
	second.Seq = 2
	second.Supersedes = first.ID

	require.NoError(t, srv.Save(ctx, first))
	require.NoError(t, srv.Save(ctx, second))

	loaded, err := srv.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFinished, loaded.Status)
	require.Len(t, loaded.TestResults, 1)
	assert.Equal(t, "a > works", loaded.TestResults[0].Name)

	all, err := srv.List(ctx, dao.NewParameter(dao.ParamTestFile, "a.test.js"))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].Supersedes)

	require.NoError(t, srv.Delete(ctx, first.ID))
	_, err = srv.Load(ctx, first.ID)
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestNew_EmptyURL(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}
