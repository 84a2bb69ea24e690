package session

import (
	"fmt"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/wl"
)

// bindVersion is used for every global; version 1 of each interface covers
// everything this client sends.
const bindVersion = 1

var watched = map[string]bool{
	wl.InterfaceShm:               true,
	wl.InterfaceCompositor:        true,
	wl.InterfaceSeat:              true,
	wl.InterfaceWmBase:            true,
	wl.InterfaceDecorationManager: true,
}

// Watched reports whether the session binds globals of this interface.
func Watched(iface string) bool {
	return watched[iface]
}

type registryListener struct {
	s *Session
}

func (l *registryListener) Global(g wl.Global) {
	s := l.s
	if !watched[g.Interface] {
		return
	}
	if s.bound(g.Interface) {
		logger.Debug("Ignoring duplicate global", "interface", g.Interface, "name", g.Name)
		return
	}

	var err error
	switch g.Interface {
	case wl.InterfaceShm:
		s.shm, err = s.registry.BindShm(g.Name, bindVersion)
	case wl.InterfaceCompositor:
		s.compositor, err = s.registry.BindCompositor(g.Name, bindVersion)
	case wl.InterfaceSeat:
		s.seat, err = s.registry.BindSeat(g.Name, bindVersion)
	case wl.InterfaceWmBase:
		s.wmBase, err = s.registry.BindWmBase(g.Name, bindVersion)
		if err == nil {
			// Unanswered pings get the client disconnected.
			s.wmBase.SetListener(&wmBaseListener{s: s})
		}
	case wl.InterfaceDecorationManager:
		s.decorMgr, err = s.registry.BindDecorationManager(g.Name, bindVersion)
	}
	if err != nil {
		s.fail(fmt.Errorf("failed to bind %s: %w", g.Interface, err))
		return
	}
	logger.Debug("Bound global", "interface", g.Interface, "name", g.Name, "advertised", g.Version, "bound", bindVersion)
}

func (l *registryListener) GlobalRemove(name uint32) {
	logger.Debug("Global removed", "name", name)
}

func (s *Session) bound(iface string) bool {
	switch iface {
	case wl.InterfaceShm:
		return s.shm != nil
	case wl.InterfaceCompositor:
		return s.compositor != nil
	case wl.InterfaceSeat:
		return s.seat != nil
	case wl.InterfaceWmBase:
		return s.wmBase != nil
	case wl.InterfaceDecorationManager:
		return s.decorMgr != nil
	}
	return false
}

type wmBaseListener struct {
	s *Session
}

func (l *wmBaseListener) Ping(serial uint32) {
	if err := l.s.wmBase.Pong(serial); err != nil {
		l.s.fail(fmt.Errorf("failed to answer ping %d: %w", serial, err))
	}
}

// GlobalInfo is one advertised global as reported by Probe.
type GlobalInfo struct {
	wl.Global
	Watched bool
}

type collector struct {
	globals []GlobalInfo
}

func (c *collector) Global(g wl.Global) {
	c.globals = append(c.globals, GlobalInfo{Global: g, Watched: watched[g.Interface]})
}

func (c *collector) GlobalRemove(name uint32) {
	for i, g := range c.globals {
		if g.Name == name {
			c.globals = append(c.globals[:i], c.globals[i+1:]...)
			return
		}
	}
}

// Probe lists every global the compositor advertises without binding any.
func Probe(display wl.Display) ([]GlobalInfo, error) {
	registry, err := display.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	c := &collector{}
	registry.SetListener(c)
	if err := display.Roundtrip(); err != nil {
		return nil, fmt.Errorf("failed to enumerate globals: %w", err)
	}
	return c.globals, nil
}
