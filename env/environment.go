// Package env assembles a runnable simulation (§6, §9) from a
// validated config.Config and a contact plan: one node per config
// entry, its router/selector/generators/endpoints, and the per-
// neighbor connection/radio/duct stack every duct kind needs. Only the
// cmd entry point depends on env; it exists purely to wire the
// independently-developed packages together the way a scenario file
// describes.
package env

import (
	"fmt"
	"math"
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/config"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/contactplan"
	"github.com/dtnsim/dtnsim/duct"
	"github.com/dtnsim/dtnsim/endpoint"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/neighbor"
	"github.com/dtnsim/dtnsim/node"
	"github.com/dtnsim/dtnsim/radio"
	"github.com/dtnsim/dtnsim/report"
	"github.com/dtnsim/dtnsim/router"
)

// Environment owns every object one simulation run needs: the kernel
// clock, the shared id/rng/report singletons, the contact plan, and
// every node built from config.
type Environment struct {
	K      *kernel.Kernel
	RNG    *kernel.PartitionedRNG
	Alloc  *bundle.IDAllocator
	Report *report.Report
	Plan   *contactplan.ContactPlan
	Nodes  map[string]*node.Node
	Sinks  map[string]*endpoint.CountingSink // node id -> its default (eid 0) sink

	linkInstance int // counter handed to newLink, scoped to this Environment (§9)
}

// Build validates cfg and constructs the full object graph it
// describes: nodes and their routers first (so a lookup router's
// route cache can be populated against the whole topology), then
// per-neighbor ducts, then traffic generators. Radios and parallel-LTP
// engine outducts are started as they are built; call Run afterward to
// start the nodes and the kernel.
func Build(cfg *config.Config, plan *contactplan.ContactPlan) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := kernel.New()
	env := &Environment{
		K:      k,
		RNG:    kernel.NewPartitionedRNG(kernel.NewSimulationKey(cfg.Scenario.Seed)),
		Alloc:  bundle.NewIDAllocator(),
		Report: report.New(),
		Plan:   plan,
		Nodes:  make(map[string]*node.Node),
		Sinks:  make(map[string]*endpoint.CountingSink),
	}

	cache := router.NewRouteCache()
	nodeIDs := sortedKeys(cfg.Nodes)
	epidemics := make(map[string]*router.EpidemicManager)

	// Pass 1: bare nodes, so every node exists as a possible neighbor
	// and backlog source before any router or duct references one.
	for _, id := range nodeIDs {
		nc := cfg.Nodes[id]
		n := node.New(k, id, env.Alloc, nil, buildSelector(nc.Selector), nc.LimboWait)
		n.SetReport(env.Report)
		env.Nodes[id] = n
	}

	// Pass 2: routers (lookup routers populate the shared cache from a
	// CGR search over the whole plan; everything else is local). An
	// "opportunistic" router additionally gets one EpidemicManager
	// backing the pseudo-neighbor every routing record it produces
	// names (§12 supplemented feature).
	for _, id := range nodeIDs {
		nc := cfg.Nodes[id]
		r, err := buildRouter(id, nc.Router, plan, cache, env.Nodes[id], nodeIDs)
		if err != nil {
			return nil, err
		}
		env.Nodes[id].SetRouter(r)
		if nc.Router.Kind == "opportunistic" {
			cap := nc.Router.MaxCapacity
			if cap <= 0 {
				cap = math.MaxFloat64
			}
			mgr := router.NewEpidemicManager(k, env.Nodes[id].EpidemicParent(), cap)
			env.Nodes[id].AttachOpportunistic(mgr)
			epidemics[id] = mgr
		}
	}

	// Pass 3: endpoints. Every node gets a default (eid 0) counting
	// sink even if its config lists none, so an originated-but-
	// unaddressed bundle still has somewhere to land.
	for _, id := range nodeIDs {
		nc := cfg.Nodes[id]
		n := env.Nodes[id]
		sink := endpoint.NewCountingSink()
		env.Sinks[id] = sink
		n.AttachEndpoint(0, sink)
		for _, eid := range nc.Endpoints {
			if eid == 0 {
				continue
			}
			n.AttachEndpoint(eid, endpoint.NewCountingSink())
		}
	}

	// Pass 4: per-neighbor ducts. Each entry in a node's Ducts table
	// describes that node's outduct to the named neighbor; building it
	// also builds and attaches the matching induct on the neighbor.
	for _, id := range nodeIDs {
		nc := cfg.Nodes[id]
		origNode := env.Nodes[id]
		neighborTags := sortedDuctKeys(nc.Ducts)
		for _, neighborID := range neighborTags {
			dc := nc.Ducts[neighborID]
			peerNode, ok := env.Nodes[neighborID]
			if !ok {
				return nil, fmt.Errorf("env: node %q duct: unknown neighbor %q", id, neighborID)
			}
			link := cfg.Links[config.LinkKey(id, neighborID)]
			mgr := neighbor.NewManager(k, origNode, id, neighborID, plan)
			out, err := env.buildDuct(origNode, peerNode, mgr, id, neighborID, dc, nc.Radios, link)
			if err != nil {
				return nil, err
			}
			origNode.AttachNeighbor(neighborID, mgr, out)
		}
	}

	// Pass 5: traffic generators. Scheduled before pass 6's handshake
	// timers below so that a generator whose Start coincides with a
	// contact's tstart (the common case: both default to 0) gets its
	// zero-delay emit event inserted into the kernel heap first —
	// same-tick events resume in insertion order (§5), so a bundle
	// generated "at" contact open is resident in the epidemic store
	// before that contact's handshake fires, not after.
	for _, id := range nodeIDs {
		nc := cfg.Nodes[id]
		n := env.Nodes[id]
		for _, gc := range nc.Generators {
			if err := env.buildGenerator(n, gc); err != nil {
				return nil, err
			}
		}
	}

	// Pass 6: opportunistic handshake schedule. For every ordered pair
	// of nodes both running the opportunistic router, where the origin
	// has a real configured duct (hence outduct) reaching the
	// destination, schedule one EpidemicManager.Handshake per contact
	// between them, fired at contact open — the same "in view" signal
	// neighbor.Manager's connectionMonitor uses to open its own queue
	// (§4.E), simplifying the source's continuous queue_extractor loop
	// to one handshake per contact per DESIGN.md's Handshake note.
	for _, id := range nodeIDs {
		origMgr, ok := epidemics[id]
		if !ok {
			continue
		}
		nc := cfg.Nodes[id]
		for _, neighborID := range sortedDuctKeys(nc.Ducts) {
			peerMgr, ok := epidemics[neighborID]
			if !ok {
				continue
			}
			scheduleHandshakes(k, plan, id, neighborID, origMgr, peerMgr)
		}
	}

	return env, nil
}

// Run starts the kernel clock: every node built by Build (each node
// starts its own managers and attached ducts), then the event loop
// itself. Scenario.Until (if set) bounds
// how far virtual time advances before the loop drains and returns.
func (env *Environment) Run(cfg *config.Config) {
	if cfg.Scenario.Until != nil {
		env.K.SetUntil(*cfg.Scenario.Until)
	}
	for _, id := range sortedKeys(env.Nodes) {
		env.Nodes[id].Run(env.K)
	}
	env.K.Run()
	env.recordResidual()
}

// recordResidual snapshots every node's ingress/limbo queues into the
// report's "stored" table once the event loop has drained (§8
// property 1: every sent copy is arrived, dropped, or stored).
func (env *Environment) recordResidual() {
	now := env.K.Now()
	for _, id := range sortedKeys(env.Nodes) {
		for _, b := range env.Nodes[id].Residual() {
			env.Report.RecordStored(b, now)
		}
	}
}

// scheduleHandshakes arms one kernel timer per contact between orig
// and neighbor, firing origMgr.Handshake(neighbor, peerMgr) at each
// contact's start — mirroring neighbor.Manager.connectionMonitor's
// own per-contact scheduling off the same contact plan.
func scheduleHandshakes(k *kernel.Kernel, plan *contactplan.ContactPlan, orig, neighbor string, origMgr, peerMgr *router.EpidemicManager) {
	for _, c := range plan.Between(orig, neighbor) {
		delay := c.TStart - k.Now()
		if delay < 0 {
			delay = 0
		}
		k.After(delay, func(k *kernel.Kernel) {
			origMgr.Handshake(neighbor, peerMgr)
		})
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDuctKeys(m map[string]config.DuctConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildSelector maps a node's configured selector name to a
// node.Selector (§4.G duct selection), defaulting to single-duct
// topologies (the overwhelming majority of scenarios, per §8's named
// tests) when unset.
func buildSelector(kind string) node.Selector {
	switch kind {
	case "criticality":
		return node.CriticalitySelector{CriticalTag: "critical", BulkTag: "bulk"}
	case "data_type":
		return node.DataTypeSelector{ByDataType: map[string]string{}, Default: ""}
	default:
		return node.SingleDuctSelector{}
	}
}

// buildRouter constructs the router kind a node's config names.
// lookup routers share one cache per Environment (§9's redesign note
// against package-level caches) and are pre-populated here by running
// a CGR anchored search from every node to every other node over the
// whole plan, mirroring how an offline route-schedule builder would
// seed DtnLookupRouter's table.
func buildRouter(id string, rc config.RouterConfig, plan *contactplan.ContactPlan, cache *router.RouteCache, backlog router.BacklogSource, allNodes []string) (router.Router, error) {
	switch rc.Kind {
	case "cgr":
		cr := router.NewCGRRouter(id, plan, relaySet(rc.Relays))
		cr.MaxRelayHops = rc.MaxRelayHops
		return cr, nil
	case "bfs":
		return router.NewBFSRouter(id, plan, rc.MaxHops, rc.Relays), nil
	case "lookup":
		populateRouteCache(cache, plan, id, allNodes)
		return router.NewLookupRouter(id, plan, cache, backlog, rc.MaxCritical), nil
	case "static":
		return router.NewStaticRouter(id, rc.NextHop), nil
	case "source":
		return router.NewSourceRouter(id), nil
	case "opportunistic":
		return router.NewOpportunisticRouter(id), nil
	default:
		return nil, fmt.Errorf("env: node %q: unknown router kind %q", id, rc.Kind)
	}
}

func relaySet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// populateRouteCache fills cache with an anchored CGR search from orig
// to every other configured node, run once per distinct origin rather
// than once per bundle, the way an offline route-schedule builder
// would. dataVol is 0 (capacity-unaware) since LookupRouter itself
// re-checks capacity per bundle in tryRouteList.
func populateRouteCache(cache *router.RouteCache, plan *contactplan.ContactPlan, orig string, allNodes []string) {
	finder := router.NewCGRRouter(orig, plan, nil)
	for _, dest := range allNodes {
		if dest == orig {
			continue
		}
		if _, ok := cache.Get(orig, dest); ok {
			continue
		}
		cache.Put(orig, dest, finder.AlternateRoutes(orig, dest, 0, 0))
	}
}

// buildGenerator attaches one configured traffic source to n.
func (env *Environment) buildGenerator(n *node.Node, gc config.GeneratorConfig) error {
	switch gc.Kind {
	case "cbr":
		g := endpoint.NewCBRGenerator(env.K, env.Alloc, n)
		g.Orig, g.Dest, g.DataType = n.ID(), gc.Dest, gc.DataType
		g.RateBps, g.BundleSize = gc.RateBps, gc.BundleSize
		g.TTL, g.Critical = gc.TTL, gc.Critical
		g.Start, g.End = gc.Start, gc.End
		g.Run(env.K)
	case "file":
		g := endpoint.NewFileGenerator(env.K, env.Alloc, n)
		g.Orig, g.Dest, g.DataType = n.ID(), gc.Dest, gc.DataType
		g.TotalBits, g.BundleSize = gc.TotalBits, gc.BundleSize
		g.TTL, g.Critical = gc.TTL, gc.Critical
		g.Start, g.RateBps = gc.Start, gc.RateBps
		g.Run(env.K)
	case "markov":
		g := endpoint.NewMarkovGenerator(env.K, env.Alloc, n)
		g.Orig, g.Dest, g.DataType = n.ID(), gc.Dest, gc.DataType
		g.RateBps, g.BundleSize = gc.RateBps, gc.BundleSize
		g.TTL, g.Critical = gc.TTL, gc.Critical
		g.Start, g.End = gc.Start, gc.End
		g.OnDuration, g.DutyCycle = gc.OnDuration, gc.DutyCycle
		g.Run(env.K)
	default:
		return fmt.Errorf("env: node %q: unknown generator kind %q", n.ID(), gc.Kind)
	}
	return nil
}

// buildDuct constructs the outduct origNode uses to reach neighborID,
// and the paired induct attached to peerNode, per dc.Kind. Both ends
// of the link share one connection per band, built fresh for this
// duct (no connection is ever reused across ducts: §4.B connections
// are a convergence-layer concern, one per adapter instance).
func (env *Environment) buildDuct(origNode, peerNode *node.Node, mgr *neighbor.Manager, origID, neighborID string, dc config.DuctConfig, radios map[string]config.RadioConfig, link config.LinkConfig) (duct.Duct, error) {
	switch dc.Kind {
	case "basic":
		rc, ok := radios[dc.Radio]
		if !ok {
			return nil, fmt.Errorf("env: node %q duct %q: unknown radio %q", origID, neighborID, dc.Radio)
		}
		conn := env.newLink(origID, neighborID, link)
		rad, err := env.buildRadio(rc, map[string]connection.Connection{neighborID: conn})
		if err != nil {
			return nil, err
		}
		induct := duct.NewBasicInduct(env.K, peerNode, mgr, origID, rc.Rate)
		peerNode.AttachInduct(induct)
		return duct.NewBasicOutduct(env.K, origNode, mgr, neighborID, rad, induct), nil

	case "ltp":
		if dc.LTP == nil {
			return nil, fmt.Errorf("env: node %q duct %q: kind ltp requires an ltp block", origID, neighborID)
		}
		rc, ok := radios[dc.LTP.Radio]
		if !ok {
			return nil, fmt.Errorf("env: node %q duct %q: unknown radio %q", origID, neighborID, dc.LTP.Radio)
		}
		conn := env.newLink(origID, neighborID, link)
		rad, err := env.buildRadio(rc, map[string]connection.Connection{neighborID: conn})
		if err != nil {
			return nil, err
		}
		cfg := ltpConfigOf(*dc.LTP)
		induct := duct.NewLTPInduct(env.K, peerNode, mgr, origID, cfg, []string{"default"}, map[string]radio.Radio{"default": rad}, nil, false)
		outduct := duct.NewLTPOutduct(env.K, origNode, mgr, neighborID, cfg, []string{"default"}, map[string]radio.Radio{"default": rad}, induct, false)
		induct.SetPeer(outduct)
		peerNode.AttachInduct(induct)
		return outduct, nil

	case "mbltp":
		if dc.MBLTP == nil {
			return nil, fmt.Errorf("env: node %q duct %q: kind mbltp requires an mbltp block", origID, neighborID)
		}
		bandNames := make([]string, 0, len(dc.MBLTP.Bands))
		radiosByBand := make(map[string]radio.Radio, len(dc.MBLTP.Bands))
		for band, radioName := range dc.MBLTP.Bands {
			rc, ok := radios[radioName]
			if !ok {
				return nil, fmt.Errorf("env: node %q duct %q band %q: unknown radio %q", origID, neighborID, band, radioName)
			}
			conn := env.newLink(origID, neighborID, link)
			rad, err := env.buildRadio(rc, map[string]connection.Connection{neighborID: conn})
			if err != nil {
				return nil, err
			}
			bandNames = append(bandNames, band)
			radiosByBand[band] = rad
		}
		cfg := ltpConfigOf(dc.MBLTP.LTPDuctConfig)
		induct := duct.NewMBLTPInduct(env.K, peerNode, mgr, origID, cfg, bandNames, radiosByBand, nil)
		outduct := duct.NewMBLTPOutduct(env.K, origNode, mgr, neighborID, cfg, bandNames, radiosByBand, induct)
		induct.SetPeer(outduct)
		peerNode.AttachInduct(induct)
		return outduct, nil

	case "parallel_ltp":
		if dc.Parallel == nil || len(dc.Parallel.Engines) == 0 {
			return nil, fmt.Errorf("env: node %q duct %q: kind parallel_ltp requires at least one engine", origID, neighborID)
		}
		po := duct.NewParallelOutduct(env.K, origNode, mgr, neighborID)
		pi := duct.NewParallelInduct(env.K, peerNode, len(dc.Parallel.Engines))
		engineNames := make([]string, 0, len(dc.Parallel.Engines))
		for name := range dc.Parallel.Engines {
			engineNames = append(engineNames, name)
		}
		sort.Strings(engineNames)
		for _, name := range engineNames {
			eng := dc.Parallel.Engines[name]
			rc, ok := radios[eng.Radio]
			if !ok {
				return nil, fmt.Errorf("env: node %q duct %q engine %q: unknown radio %q", origID, neighborID, name, eng.Radio)
			}
			conn := env.newLink(origID, neighborID, link)
			rad, err := env.buildRadio(rc, map[string]connection.Connection{neighborID: conn})
			if err != nil {
				return nil, err
			}
			cfg := ltpConfigOf(eng)
			engInduct := duct.NewLTPInduct(env.K, pi, mgr, origID, cfg, []string{name}, map[string]radio.Radio{name: rad}, nil, false)
			engOutduct := duct.NewLTPOutduct(env.K, origNode, mgr, neighborID, cfg, []string{name}, map[string]radio.Radio{name: rad}, engInduct, false)
			engInduct.SetPeer(engOutduct)
			duct.WireParallelEngine(po, name, engOutduct)
			engOutduct.Run(env.K)
			peerNode.AttachInduct(engInduct)
		}
		peerNode.AttachInduct(pi)
		return po, nil

	default:
		return nil, fmt.Errorf("env: node %q duct %q: invalid duct kind %q", origID, neighborID, dc.Kind)
	}
}

// newLink builds one fresh connection for a single band/engine of a
// duct, reading its own RNG stream off the subsystem-partitioned RNG
// so two radios (even two bands of the same MBLTP pair) never share
// draws.
func (env *Environment) newLink(orig, dest string, link config.LinkConfig) connection.Connection {
	env.linkInstance++
	rng := env.RNG.ForSubsystem(kernel.SubsystemInstance(kernel.SubsystemConnection, env.linkInstance))
	return connection.NewStatic(orig, dest, link.PropDelay, rng, nil)
}

// buildRadio constructs the radio kind rc names and starts its drain
// loop on the kernel. A Variable radio's rate series is loaded from
// rc.DatarateFile by an external collaborator (§1 Non-goals: this
// package has no file-format parsers); a Variable radio built here has
// no series installed and no neighbor set active, so it transmits
// nothing until a caller calls SetSeries and SetActive on it directly.
func (env *Environment) buildRadio(rc config.RadioConfig, conns map[string]connection.Connection) (radio.Radio, error) {
	var r radio.Radio
	switch rc.Kind {
	case "", "basic":
		r = radio.NewBasicRadio(env.K, conns, rc.Rate, rc.BER, rc.JPerBit)
	case "coded":
		r = radio.NewCodedRadio(env.K, conns, rc.Rate, rc.FER, rc.FrameSize, rc.CodeRate, rc.JPerBit)
	case "variable":
		r = radio.NewVariableRadio(env.K, conns, rc.BER, rc.JPerBit)
	default:
		return nil, fmt.Errorf("env: unknown radio kind %q", rc.Kind)
	}
	r.Run(env.K)
	return r, nil
}

func ltpConfigOf(c config.LTPDuctConfig) duct.LTPConfig {
	return duct.LTPConfig{
		AggSizeLimit:    c.AggSizeLimit,
		AggTimeLimit:    c.AggTimeLimit,
		SegmentSize:     c.SegmentSize,
		CheckpointTimer: c.CheckpointTimer,
		ReportTimer:     c.ReportTimer,
	}
}
