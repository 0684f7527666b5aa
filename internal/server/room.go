package server

import "github.com/samber/lo"

// Room groups the participants that see each other's data.
type Room struct {
	// Name is the room name granted by the access token.
	Name string

	// Members maps participant SID to participant.
	Members map[string]member
}

func newRoom(name string) *Room {
	return &Room{Name: name, Members: make(map[string]member)}
}

// byIdentity finds the member holding identity, if any.
func (r *Room) byIdentity(identity string) (member, bool) {
	sid, ok := lo.FindKeyBy(r.Members, func(_ string, m member) bool {
		return m.info().Identity == identity
	})
	if !ok {
		return nil, false
	}
	return r.Members[sid], true
}

// others returns every member except the one with sid.
func (r *Room) others(sid string) []member {
	return lo.Filter(lo.Values(r.Members), func(m member, _ int) bool {
		return m.info().SID != sid
	})
}
