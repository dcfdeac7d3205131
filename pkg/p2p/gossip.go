// Package p2p publishes anonymized execution events over libp2p gossipsub,
// so observers can follow fills without an API session against the engine.
package p2p

import (
	"context"
	"encoding/json"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/uhyunpark/darkpool/pkg/events"
)

const topicPrefix = "darkpool/executions/"

type GossipConfig struct {
	ListenAddr string
	Bootstrap  []string
	Logger     *zap.SugaredLogger
}

// GossipPublisher fans execution events out to one gossipsub topic per
// token. Topics are joined lazily on first publish and kept for the life of
// the publisher.
type GossipPublisher struct {
	h   host.Host
	ps  *pubsub.PubSub
	log *zap.SugaredLogger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewGossipPublisher(ctx context.Context, cfg GossipConfig) (*GossipPublisher, error) {
	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, err
	}

	g := &GossipPublisher{
		h:      h,
		ps:     ps,
		log:    cfg.Logger,
		topics: make(map[string]*pubsub.Topic),
	}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil && cfg.Logger != nil {
			cfg.Logger.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Infow("gossip_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr)
	}
	return g, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	return h.Connect(ctx, *info)
}

func (g *GossipPublisher) Host() host.Host { return g.h }

// Publish implements events.Publisher. The hub-style topic name maps to a
// gossipsub topic per token. Failures are logged and dropped; gossip is
// best-effort and never blocks a settlement.
func (g *GossipPublisher) Publish(_ string, ev events.Execution) {
	name := topicPrefix + ev.Token
	t, err := g.topic(name)
	if err != nil {
		if g.log != nil {
			g.log.Warnw("gossip_join_failed", "topic", name, "err", err)
		}
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := t.Publish(context.Background(), data); err != nil && g.log != nil {
		g.log.Warnw("gossip_publish_failed", "topic", name, "err", err)
	}
}

func (g *GossipPublisher) topic(name string) (*pubsub.Topic, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.topics[name]; ok {
		return t, nil
	}
	t, err := g.ps.Join(name)
	if err != nil {
		return nil, err
	}
	g.topics[name] = t
	return t, nil
}

func (g *GossipPublisher) Close() error {
	g.mu.Lock()
	for _, t := range g.topics {
		t.Close()
	}
	g.topics = make(map[string]*pubsub.Topic)
	g.mu.Unlock()
	return g.h.Close()
}

var _ events.Publisher = (*GossipPublisher)(nil)
