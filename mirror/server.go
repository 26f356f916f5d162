package mirror

import (
	"strings"

	"github.com/remora-mod/remora/api"
)

// Server returns the server wrapper. Until a world has been observed (or
// when the handle could not be captured) its operations report empty
// defaults; Version works regardless, it comes from the catalog.
func (c *Context) Server() api.Server { return server{c} }

type server struct {
	ctx *Context
}

func (s server) Version() string { return s.ctx.pins.Host.Version }

func (s server) Players() []api.Player {
	list := s.ctx.refOp(s.ctx.server(), opServerPlayers)
	if list == nil {
		return nil
	}
	n := int(s.ctx.intOp(list, opListSize, 0))
	players := make([]api.Player, 0, n)
	for i := 0; i < n; i++ {
		if p := s.ctx.refOp(list, opListGet, int32(i)); p != nil {
			players = append(players, s.ctx.Player(p))
		}
	}
	return players
}

func (s server) Player(name string) (api.Player, bool) {
	for _, p := range s.Players() {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

func (s server) Broadcast(msg string) {
	s.ctx.do(s.ctx.server(), opBroadcast, msg)
}
