package memstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/session/memstore"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	record, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, record)

	in := session.Record{session.KeyAccessToken: "a", session.KeyRefreshToken: "r"}
	require.NoError(t, s.Save(ctx, in))
	in[session.KeyAccessToken] = "mutated"

	record, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", record[session.KeyAccessToken])

	record[session.KeyRefreshToken] = "mutated"
	again, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "r", again[session.KeyRefreshToken])

	require.NoError(t, s.Clear(ctx))
	record, err = s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, record)
}

func TestSaveReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.Save(ctx, session.Record{session.KeyAccessToken: "a", session.KeyRefreshToken: "r"}))
	require.NoError(t, s.Save(ctx, session.Record{session.KeyAccessToken: "b"}))

	record, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, session.Record{session.KeyAccessToken: "b"}, record)
}
