package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligner/internal/model"
	"github.com/roach88/aligner/internal/testutil"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	s := testutil.OpenStore(t)
	return New(s,
		WithIDGenerator(testutil.NewSequenceIDs("j")),
		WithClock(testutil.NewStepClock(0)),
	)
}

func appendN(t *testing.T, j *Journal, types ...model.JournalType) {
	t.Helper()
	ctx := context.Background()
	for _, typ := range types {
		_, err := j.Append(ctx, j.store.DB(), typ, "l1", []byte(`{}`))
		require.NoError(t, err)
	}
}

func TestAppend_OrdersBySequenceWithinOneTick(t *testing.T) {
	j := newTestJournal(t)
	appendN(t, j, model.JournalCreate, model.JournalUpdate, model.JournalDelete)

	entries, err := j.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []model.JournalType{model.JournalCreate, model.JournalUpdate, model.JournalDelete},
		[]model.JournalType{entries[0].Type, entries[1].Type, entries[2].Type})
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(3), entries[2].Seq)
	assert.True(t, entries[0].Date.Equal(testutil.Epoch))
}

func TestAppend_ResumesSequenceFromStore(t *testing.T) {
	j := newTestJournal(t)
	appendN(t, j, model.JournalCreate, model.JournalCreate)

	reopened := New(j.store, WithIDGenerator(testutil.NewSequenceIDs("k")))
	e, err := reopened.Append(context.Background(), j.store.DB(), model.JournalDelete, "l1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.Seq)
}

func TestAppend_RollsBackWithTransaction(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := j.store.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := j.AppendLink(ctx, tx, model.JournalCreate, model.Link{ID: "l1", Sources: []string{"010010010011"}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppendLink_BodyIsServerShape(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	e, err := j.AppendLink(ctx, j.store.DB(), model.JournalCreate, model.Link{
		ID:      "l1",
		Sources: []string{"010010010011"},
		Targets: []string{"400010010011"},
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":"l1","sources":["010010010011"],"targets":["400010010011"],"meta":{"origin":"manual","status":"CREATED"}}`,
		string(e.Body))

	dto := e.DTO()
	assert.Equal(t, "l1", dto.LinkID)
	assert.Equal(t, model.JournalCreate, dto.Type)
}

func TestAppendBulk(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	e, err := j.AppendBulk(ctx, j.store.DB(), []model.Link{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, model.JournalBulkInsert, e.Type)
	assert.Empty(t, e.LinkID)

	entries, err := j.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t,
		`[{"id":"a","sources":[],"targets":[],"meta":{"origin":"manual","status":"CREATED"}},{"id":"b","sources":[],"targets":[],"meta":{"origin":"manual","status":"CREATED"}}]`,
		string(entries[0].Body))
}

func TestFirstUploadChunk(t *testing.T) {
	c, u, d, b := model.JournalCreate, model.JournalUpdate, model.JournalDelete, model.JournalBulkInsert

	tests := []struct {
		name  string
		types []model.JournalType
		n     int
		want  int
	}{
		{"empty", nil, 10, 0},
		{"no bulk takes all", []model.JournalType{c, u, d}, 0, 3},
		{"no bulk capped", []model.JournalType{c, u, d}, 2, 2},
		{"leading bulk alone", []model.JournalType{b, c, u}, 10, 1},
		{"stops before bulk", []model.JournalType{c, u, b, d}, 10, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newTestJournal(t)
			appendN(t, j, tt.types...)

			chunk, err := j.FirstUploadChunk(context.Background(), tt.n)
			require.NoError(t, err)
			assert.Len(t, chunk, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.types[0], chunk[0].Type)
			}
		})
	}
}

func TestDeleteByIDs_RemovesOnlyGivenEntries(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	appendN(t, j, model.JournalCreate, model.JournalUpdate, model.JournalDelete)

	require.NoError(t, j.DeleteByIDs(ctx, []string{"j-0001", "j-0003"}))

	entries, err := j.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "j-0002", entries[0].ID)

	require.NoError(t, j.DeleteAll(ctx))
	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseDate_AcceptsLegacyFormat(t *testing.T) {
	got, err := parseDate("2024-03-05 10:11:12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC), got)

	_, err = parseDate("yesterday")
	assert.Error(t, err)
}

func TestUUIDv7Generator_IsSortable(t *testing.T) {
	g := UUIDv7Generator{}
	a := g.Generate()
	time.Sleep(2 * time.Millisecond)
	b := g.Generate()
	assert.Less(t, a, b)
	assert.Len(t, a, 36)
}
