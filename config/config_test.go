package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseNode() NodeConfig {
	return NodeConfig{
		MobilityModel: "static",
		Radios:        map[string]RadioConfig{"r1": {Kind: "basic", Rate: 1000}},
		Ducts: map[string]DuctConfig{
			"N2": {Kind: "basic", Radio: "r1"},
		},
	}
}

func baseConfig() *Config {
	return &Config{
		Nodes: map[string]NodeConfig{"N1": baseNode()},
		Links: map[string]LinkConfig{
			LinkKey("N1", "N2"): {PropDelay: 1},
		},
	}
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, baseConfig().Validate())
}

func TestValidate_MissingMobilityModel(t *testing.T) {
	cfg := baseConfig()
	n := cfg.Nodes["N1"]
	n.MobilityModel = ""
	cfg.Nodes["N1"] = n

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "mobility_model")
}

func TestValidate_BasicDuctUnknownRadio(t *testing.T) {
	cfg := baseConfig()
	n := cfg.Nodes["N1"]
	n.Ducts["N2"] = DuctConfig{Kind: "basic", Radio: "missing"}
	cfg.Nodes["N1"] = n

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown radio")
}

func TestValidate_LTPDuctRequiresBlock(t *testing.T) {
	cfg := baseConfig()
	n := cfg.Nodes["N1"]
	n.Ducts["N2"] = DuctConfig{Kind: "ltp"}
	cfg.Nodes["N1"] = n

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires an ltp block")
}

func TestValidate_MBLTPUnknownBandRadio(t *testing.T) {
	cfg := baseConfig()
	n := cfg.Nodes["N1"]
	n.Ducts["N2"] = DuctConfig{
		Kind:  "mbltp",
		MBLTP: &MBLTPDuctConfig{Bands: map[string]string{"x": "missing"}},
	}
	cfg.Nodes["N1"] = n

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown radio")
}

func TestValidate_ParallelLTPRequiresEngines(t *testing.T) {
	cfg := baseConfig()
	n := cfg.Nodes["N1"]
	n.Ducts["N2"] = DuctConfig{Kind: "parallel_ltp", Parallel: &ParallelLTPDuctConfig{}}
	cfg.Nodes["N1"] = n

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one engine")
}

func TestValidate_ParallelLTPUnknownEngineRadio(t *testing.T) {
	cfg := baseConfig()
	n := cfg.Nodes["N1"]
	n.Ducts["N2"] = DuctConfig{
		Kind: "parallel_ltp",
		Parallel: &ParallelLTPDuctConfig{
			Engines: map[string]LTPDuctConfig{"e1": {Radio: "missing"}},
		},
	}
	cfg.Nodes["N1"] = n

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown radio")
}

func TestValidate_UnknownDuctKind(t *testing.T) {
	cfg := baseConfig()
	n := cfg.Nodes["N1"]
	n.Ducts["N2"] = DuctConfig{Kind: "carrier-pigeon"}
	cfg.Nodes["N1"] = n

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid duct kind")
}

func TestValidate_MissingLinkConfig(t *testing.T) {
	cfg := baseConfig()
	delete(cfg.Links, LinkKey("N1", "N2"))

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing link config")
}
