// Package config defines the plain Go structs that mirror the core's
// configuration surface (§6), tagged for YAML unmarshalling so that
// cmd/ can load a scenario file and hand the core a validated struct.
// The core itself never parses YAML (§1 Non-goals): this package is an
// ambient layer between a scenario file and dtnsim's Environment.
package config

import "fmt"

// Globals mirrors §6's globals config block.
type Globals struct {
	ID       string `yaml:"id"`
	InDir    string `yaml:"indir"`
	OutDir   string `yaml:"outdir"`
	OutFile  string `yaml:"outfile"`
	LogFile  string `yaml:"logfile"`
	Log      string `yaml:"log"` // level: debug/info/warn/error
	Monitor  bool   `yaml:"monitor"`
	Track    bool   `yaml:"track"`
	TrackDt  int64  `yaml:"track_dt"`
	Validate bool   `yaml:"validate"`
}

// Scenario mirrors §6's scenario config block.
type Scenario struct {
	Epoch int64  `yaml:"epoch"`
	Seed  int64  `yaml:"seed"`
	Until *int64 `yaml:"until"` // nil means "run to event exhaustion"
}

// RadioConfig mirrors §6's radio config block, one of three shapes:
// a Basic radio ({rate, BER, J_bit}), a Coded radio ({rate, FER,
// frame_size, code_rate, J_bit}), or a Variable radio
// ({datarate_file}). Kind selects which fields are meaningful; the
// others are left zero.
type RadioConfig struct {
	Kind string `yaml:"kind"` // "basic", "coded", "variable"

	Rate      float64 `yaml:"rate"`
	BER       float64 `yaml:"ber"`
	JPerBit   float64 `yaml:"j_bit"`
	FER       float64 `yaml:"fer"`
	FrameSize float64 `yaml:"frame_size"`
	CodeRate  float64 `yaml:"code_rate"`

	// DatarateFile names a time-series file a Variable radio's rate
	// steps are loaded from; parsing that file is an external
	// collaborator (§1), same as the contact plan/mobility files.
	DatarateFile string `yaml:"datarate_file"`
}

// LTPDuctConfig mirrors §6's LTP duct config block.
type LTPDuctConfig struct {
	Radio           string  `yaml:"radio"`
	AggSizeLimit    float64 `yaml:"agg_size_limit"`
	AggTimeLimit    int64   `yaml:"agg_time_limit"`
	SegmentSize     int64   `yaml:"segment_size"`
	ReportTimer     int64   `yaml:"report_timer"`
	CheckpointTimer int64   `yaml:"checkpoint_timer"`
}

// MBLTPDuctConfig mirrors §6's MBLTP duct config block: an LTP config
// plus a band-id -> radio-name map.
type MBLTPDuctConfig struct {
	LTPDuctConfig `yaml:",inline"`
	Bands         map[string]string `yaml:"bands"`
}

// ParallelLTPDuctConfig mirrors §6's Parallel LTP config block: a
// table of engine id -> the self-contained LTP configuration (own
// radio, own aggregation/timer knobs) that engine runs, so each engine
// is fully specified without an indirection through another duct tag.
type ParallelLTPDuctConfig struct {
	Engines map[string]LTPDuctConfig `yaml:"engines"`
}

// DuctConfig is a tagged union over the four duct shapes §6 lists.
// Kind selects which of the *Config fields is populated.
type DuctConfig struct {
	Kind string `yaml:"kind"` // "basic", "ltp", "mbltp", "parallel_ltp"

	Radio    string                 `yaml:"radio,omitempty"`    // basic
	LTP      *LTPDuctConfig         `yaml:"ltp,omitempty"`      // ltp
	MBLTP    *MBLTPDuctConfig       `yaml:"mbltp,omitempty"`    // mbltp
	Parallel *ParallelLTPDuctConfig `yaml:"parallel,omitempty"` // parallel_ltp
}

// LinkConfig is the per-link connection config block: the physical
// propagation/error model between one ordered (orig,dest) node pair,
// shared by every duct that forwards between them.
type LinkConfig struct {
	Orig, Dest string  `yaml:"-"` // set from the map key in Config.Links
	PropDelay  int64   `yaml:"prop_delay"`
	MER        float64 `yaml:"mer"` // message error rate (§4.B)
}

// GeneratorConfig mirrors §6's traffic input table (one row per
// generator): a flow record plus the generator kind it should be
// built as.
type GeneratorConfig struct {
	Kind         string  `yaml:"kind"` // "cbr", "file", "markov"
	Dest         string  `yaml:"dest"`
	DataType     string  `yaml:"data_type"`
	RateBps      float64 `yaml:"rate_bps"`
	BundleSize   float64 `yaml:"bundle_size"`
	TotalBits    float64 `yaml:"total_bits"` // file generator
	TTL          int64   `yaml:"ttl"`
	Critical     bool    `yaml:"critical"`
	Start        int64   `yaml:"start"`
	End          int64   `yaml:"end"`
	OnDuration   int64   `yaml:"on_duration"`   // markov generator
	DutyCycle    float64 `yaml:"duty_cycle"`    // markov generator
}

// RouterConfig mirrors §4.F's pluggable router strategies plus the
// §12-supplemented lookup-router knobs (`max_relay_hops`,
// `excluded_routes`).
type RouterConfig struct {
	Kind           string            `yaml:"kind"` // "cgr", "bfs", "lookup", "static", "source", "opportunistic"
	Relays         []string          `yaml:"relays"`
	MaxHops        int               `yaml:"max_hops"`
	MaxCritical    int               `yaml:"max_crit"`
	NextHop        map[string]string `yaml:"next_hop"` // static router
	MaxRelayHops   int               `yaml:"max_relay_hops"`
	ExcludedRoutes [][]int64         `yaml:"excluded_routes"`
	// MaxCapacity bounds an "opportunistic" router's epidemic store
	// (§12 supplemented feature, DtnEpidemicManager's max_buffer_size).
	// Zero means unset; env defaults it to an effectively unbounded
	// store rather than rejecting every bundle outright.
	MaxCapacity float64 `yaml:"max_capacity"`
}

// NodeConfig mirrors §6's node spec block.
type NodeConfig struct {
	Router        RouterConfig           `yaml:"router"`
	Generators    []GeneratorConfig      `yaml:"generators"`
	Selector      string                 `yaml:"selector"` // "single", "criticality", "data_type"
	Radios        map[string]RadioConfig `yaml:"radios"`
	// Ducts is keyed directly by the neighbor node id it forwards to
	// (§4.G's "ducts (per neighbor)" model), not an arbitrary tag: one
	// node has at most one outduct/induct pair per neighbor.
	Ducts         map[string]DuctConfig `yaml:"ducts"`
	MobilityModel string                 `yaml:"mobility_model"`
	Endpoints     []int                  `yaml:"endpoints"`
	LimboWait     int64                  `yaml:"limbo_wait"` // <= 0 means infinite/FIFO (limbo drained immediately)
}

// Config is the top-level scenario configuration (§6): globals,
// scenario parameters, one NodeConfig per node in the topology, and
// the per-link physical-layer config every duct rides on. Links is
// keyed "orig|dest".
type Config struct {
	Globals  Globals               `yaml:"globals"`
	Scenario Scenario              `yaml:"scenario"`
	Nodes    map[string]NodeConfig `yaml:"nodes"`
	Links    map[string]LinkConfig `yaml:"links"`
}

// LinkKey builds the "orig|dest" key Config.Links and Environment's
// internal connection table are indexed by.
func LinkKey(orig, dest string) string { return orig + "|" + dest }

// Validate performs the fatal-at-startup checks §7 requires (missing
// radio/mobility model references, invalid duct type), returning a
// wrapped error rather than panicking so cmd/ can log.Fatal once at a
// single call site.
func (c *Config) Validate() error {
	for nodeID, n := range c.Nodes {
		if n.MobilityModel == "" {
			return fmt.Errorf("config: node %q: missing mobility_model reference", nodeID)
		}
		for tag, d := range n.Ducts {
			switch d.Kind {
			case "basic":
				if _, ok := n.Radios[d.Radio]; !ok {
					return fmt.Errorf("config: node %q duct %q: unknown radio %q", nodeID, tag, d.Radio)
				}
			case "ltp":
				if d.LTP == nil {
					return fmt.Errorf("config: node %q duct %q: kind ltp requires an ltp block", nodeID, tag)
				}
				if _, ok := n.Radios[d.LTP.Radio]; !ok {
					return fmt.Errorf("config: node %q duct %q: unknown radio %q", nodeID, tag, d.LTP.Radio)
				}
			case "mbltp":
				if d.MBLTP == nil {
					return fmt.Errorf("config: node %q duct %q: kind mbltp requires an mbltp block", nodeID, tag)
				}
				for band, radioName := range d.MBLTP.Bands {
					if _, ok := n.Radios[radioName]; !ok {
						return fmt.Errorf("config: node %q duct %q band %q: unknown radio %q", nodeID, tag, band, radioName)
					}
				}
			case "parallel_ltp":
				if d.Parallel == nil || len(d.Parallel.Engines) == 0 {
					return fmt.Errorf("config: node %q duct %q: kind parallel_ltp requires at least one engine", nodeID, tag)
				}
				for engine, eng := range d.Parallel.Engines {
					if _, ok := n.Radios[eng.Radio]; !ok {
						return fmt.Errorf("config: node %q duct %q engine %q: unknown radio %q", nodeID, tag, engine, eng.Radio)
					}
				}
			default:
				return fmt.Errorf("config: node %q duct %q: invalid duct kind %q", nodeID, tag, d.Kind)
			}
			if _, ok := c.Links[LinkKey(nodeID, tag)]; !ok {
				return fmt.Errorf("config: node %q duct %q: missing link config for %s", nodeID, tag, LinkKey(nodeID, tag))
			}
		}
	}
	return nil
}
