package inmemory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/watchparty/internal/relay/repository/connection"
)

type nopConn struct {
	name   string
	closed bool
}

func (c *nopConn) Send(string, any) error { return nil }

func (c *nopConn) Close() error {
	c.closed = true
	return nil
}

func TestRepo(t *testing.T) {
	r := NewRepo(nil)

	a, b, c := &nopConn{name: "a"}, &nopConn{name: "b"}, &nopConn{name: "c"}

	idA, err := r.Add(a, "ana")
	require.NoError(t, err)
	idB, err := r.Add(b, "bia")
	require.NoError(t, err)
	idC, err := r.Add(c, "caio")
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)

	_, err = r.Add(a, "ana")
	assert.ErrorIs(t, err, connection.ErrAlreadyExists)

	require.NoError(t, r.Join(idA, "room-1"))
	require.NoError(t, r.Join(idB, "room-1"))
	require.NoError(t, r.Join(idC, "room-2"))
	assert.ErrorIs(t, r.Join("missing", "room-1"), connection.ErrNotFound)

	assert.Equal(t, 2, r.RoomSize("room-1"))
	assert.ElementsMatch(t, []connection.Conn{b}, r.RoomConns("room-1", idA))
	assert.ElementsMatch(t, []connection.Conn{a, b}, r.RoomConns("room-1", ""))

	got, err := r.GetMemberID(b)
	require.NoError(t, err)
	assert.Equal(t, idB, got)

	member, err := r.GetMember(idC)
	require.NoError(t, err)
	assert.Equal(t, "caio", member.Username)
	assert.Equal(t, "room-2", member.RoomID)

	require.NoError(t, r.Join(idC, "room-1"))
	assert.Zero(t, r.RoomSize("room-2"))
	assert.Equal(t, 3, r.RoomSize("room-1"))

	removed, err := r.RemoveByConn(a)
	require.NoError(t, err)
	assert.Equal(t, idA, removed.ID)
	assert.Equal(t, "room-1", removed.RoomID)
	assert.True(t, a.closed)
	assert.Equal(t, 2, r.RoomSize("room-1"))

	_, err = r.RemoveByConn(a)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = r.GetMember(idA)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}
