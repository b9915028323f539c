package inmemory

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/streamhive/watchparty/internal/relay/repository/connection"
)

type repo struct {
	connList map[connection.Conn]string
	idList   map[string]*connection.Member
	rooms    map[string]map[string]struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	if logger == nil {
		logger = slog.Default()
	}

	return &repo{
		connList: make(map[connection.Conn]string),
		idList:   make(map[string]*connection.Member),
		rooms:    make(map[string]map[string]struct{}),
		logger:   logger,
	}
}

// Add registers conn and returns its generated member id.
func (r *repo) Add(conn connection.Conn, username string) (string, error) {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "username", username)
	if _, ok := r.connList[conn]; ok {
		r.logger.Info(funcName, "error", connection.ErrAlreadyExists)
		return "", connection.ErrAlreadyExists
	}

	memberID := uuid.NewString()
	r.connList[conn] = memberID
	r.idList[memberID] = &connection.Member{ID: memberID, Username: username, Conn: conn}

	r.logger.Debug(funcName, "result", memberID)
	return memberID, nil
}

// Join moves the member into roomID, leaving its previous room if any.
func (r *repo) Join(memberID, roomID string) error {
	funcName := "connection.inmemory.Join"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "memberID", memberID, "roomID", roomID)
	member, ok := r.idList[memberID]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	if member.RoomID != "" && member.RoomID != roomID {
		r.leaveLocked(member)
	}

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[memberID] = struct{}{}
	member.RoomID = roomID

	r.logger.Debug(funcName, "result", "OK", "room_size", len(members))
	return nil
}

// RemoveByConn forgets conn and returns the member it belonged to.
func (r *repo) RemoveByConn(conn connection.Conn) (connection.Member, error) {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName)
	memberID, ok := r.connList[conn]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return connection.Member{}, connection.ErrNotFound
	}
	conn.Close()

	member := r.idList[memberID]
	removed := *member
	r.leaveLocked(member)
	delete(r.connList, conn)
	delete(r.idList, memberID)

	r.logger.Debug(funcName, "result", memberID)
	return removed, nil
}

func (r *repo) GetMemberID(conn connection.Conn) (string, error) {
	funcName := "connection.inmemory.GetMemberID"
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberID, ok := r.connList[conn]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	return memberID, nil
}

func (r *repo) GetMember(memberID string) (connection.Member, error) {
	funcName := "connection.inmemory.GetMember"
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.idList[memberID]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound, "memberID", memberID)
		return connection.Member{}, connection.ErrNotFound
	}

	return *member, nil
}

// RoomConns lists the connections in roomID except the one of exceptID.
func (r *repo) RoomConns(roomID, exceptID string) []connection.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	conns := make([]connection.Conn, 0, len(members))
	for id := range members {
		if id == exceptID {
			continue
		}
		conns = append(conns, r.idList[id].Conn)
	}

	return conns
}

func (r *repo) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomID])
}

func (r *repo) leaveLocked(member *connection.Member) {
	if member.RoomID == "" {
		return
	}

	members := r.rooms[member.RoomID]
	delete(members, member.ID)
	if len(members) == 0 {
		delete(r.rooms, member.RoomID)
	}
	member.RoomID = ""
}
