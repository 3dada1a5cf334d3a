// Package discovery maintains cluster membership over SWIM gossip. A
// sculpture that joins the cluster can resolve the coordinator's
// animation port from node metadata instead of a hardcoded address.
package discovery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"
)

// Role tags what a node does in the installation.
type Role string

const (
	RoleSculpture   Role = "sculpture"
	RoleCoordinator Role = "coordinator"
)

// Config describes this node's place in the cluster.
type Config struct {
	NodeID   string
	Role     Role
	BindAddr string
	BindPort int
	// ServicePort is the animation protocol port this node advertises
	// in its gossip metadata.
	ServicePort int
	// Seeds are peer gossip addresses to join on startup.
	Seeds []string
	// Fallback is the coordinator address to use when no coordinator
	// has been discovered yet.
	Fallback string
}

// nodeMeta is the metadata gossiped with each node.
type nodeMeta struct {
	Role Role `json:"role"`
	Port int  `json:"port"`
}

// Membership wraps memberlist with the installation's role metadata. It
// satisfies the animation client's address resolver.
type Membership struct {
	ml       *memberlist.Memberlist
	nodeID   string
	fallback string
	log      *zap.SugaredLogger
}

// New creates the memberlist node and joins any seeds. Seed join
// failures are logged, not fatal: the cluster converges when peers come
// up.
func New(cfg Config, log *zap.SugaredLogger) (*Membership, error) {
	mcfg := memberlist.DefaultLANConfig()
	mcfg.Name = cfg.NodeID
	mcfg.BindAddr = cfg.BindAddr
	mcfg.BindPort = cfg.BindPort
	mcfg.Events = &events{self: cfg.NodeID, log: log}
	mcfg.Delegate = &metaDelegate{meta: nodeMeta{Role: cfg.Role, Port: cfg.ServicePort}}

	// Sculptures are battery- and CPU-poor; relax the gossip cadence.
	mcfg.PushPullInterval = 30 * time.Second
	mcfg.ProbeTimeout = time.Second
	mcfg.ProbeInterval = 5 * time.Second

	ml, err := memberlist.Create(mcfg)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}

	m := &Membership{ml: ml, nodeID: cfg.NodeID, fallback: cfg.Fallback, log: log}

	if len(cfg.Seeds) > 0 {
		joined, err := ml.Join(cfg.Seeds)
		if err != nil {
			log.Warnw("seed join failed", "seeds", cfg.Seeds, "error", err)
		} else {
			log.Infow("joined cluster", "seeds", joined)
		}
	}

	return m, nil
}

// CoordinatorAddr returns the animation service address of the first
// live coordinator node, or the configured fallback when none has been
// discovered.
func (m *Membership) CoordinatorAddr() (string, error) {
	for _, member := range m.ml.Members() {
		if member.Name == m.nodeID {
			continue
		}
		var meta nodeMeta
		if err := json.Unmarshal(member.Meta, &meta); err != nil {
			continue
		}
		if meta.Role == RoleCoordinator {
			return fmt.Sprintf("%s:%d", member.Addr.String(), meta.Port), nil
		}
	}
	if m.fallback != "" {
		return m.fallback, nil
	}
	return "", fmt.Errorf("no coordinator in cluster and no fallback configured")
}

// GossipAddr returns this node's own gossip address, usable as a seed
// for later joiners.
func (m *Membership) GossipAddr() string {
	return m.ml.LocalNode().Address()
}

// Members returns the number of live cluster members including this node.
func (m *Membership) Members() int {
	return m.ml.NumMembers()
}

// Leave announces departure and shuts the gossip layer down.
func (m *Membership) Leave() error {
	if err := m.ml.Leave(5 * time.Second); err != nil {
		return fmt.Errorf("leave cluster: %w", err)
	}
	return m.ml.Shutdown()
}

// events logs membership transitions.
type events struct {
	self string
	log  *zap.SugaredLogger
}

func (e *events) NotifyJoin(n *memberlist.Node) {
	if n.Name != e.self {
		e.log.Infow("node joined", "node", n.Name, "addr", n.Address())
	}
}

func (e *events) NotifyLeave(n *memberlist.Node) {
	e.log.Infow("node left", "node", n.Name)
}

func (e *events) NotifyUpdate(n *memberlist.Node) {
	e.log.Debugw("node updated", "node", n.Name)
}

// metaDelegate gossips the static role metadata. The state-merge hooks
// are unused; animation state travels over the animation protocol, not
// gossip.
type metaDelegate struct {
	meta nodeMeta
}

func (d *metaDelegate) NodeMeta(limit int) []byte {
	raw, err := json.Marshal(d.meta)
	if err != nil || len(raw) > limit {
		return nil
	}
	return raw
}

func (d *metaDelegate) NotifyMsg([]byte)                           {}
func (d *metaDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (d *metaDelegate) LocalState(join bool) []byte                { return nil }
func (d *metaDelegate) MergeRemoteState(buf []byte, join bool)     {}
