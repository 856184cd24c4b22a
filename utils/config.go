package utils

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rainbowsvgs/spectra/config"
	"github.com/rainbowsvgs/spectra/types"
)

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	readConfigEnv(cfg)

	var chainConfig types.ChainConfig
	if cfg.Chain.ConfigPath == "" {
		switch cfg.Chain.Name {
		case "mainnet":
			err = yaml.Unmarshal([]byte(config.MainnetChainYml), &chainConfig)
		case "sepolia":
			err = yaml.Unmarshal([]byte(config.SepoliaChainYml), &chainConfig)
		default:
			return fmt.Errorf("tried to set known chain-config, but unknown chain-name")
		}
		if err != nil {
			return err
		}
	} else {
		f, err := os.Open(cfg.Chain.ConfigPath)
		if err != nil {
			return fmt.Errorf("error opening Chain Config file %v: %w", cfg.Chain.ConfigPath, err)
		}
		decoder := yaml.NewDecoder(f)
		err = decoder.Decode(&chainConfig)
		if err != nil {
			return fmt.Errorf("error decoding Chain Config file %v: %v", cfg.Chain.ConfigPath, err)
		}
	}

	// custom chain configs inherit the defaults of the named preset
	if chainConfig.PresetBase != "" && chainConfig.ConfigName != chainConfig.PresetBase {
		var chainPreset types.ChainConfig
		switch chainConfig.PresetBase {
		case "mainnet":
			err = yaml.Unmarshal([]byte(config.MainnetChainYml), &chainPreset)
		case "sepolia":
			err = yaml.Unmarshal([]byte(config.SepoliaChainYml), &chainPreset)
		default:
			return fmt.Errorf("unknown chain preset base: %v", chainConfig.PresetBase)
		}
		if err != nil {
			return err
		}

		err := mergo.Merge(&chainPreset, chainConfig, mergo.WithOverride)
		if err != nil {
			return fmt.Errorf("error merging chain preset: %v", err)
		}
		cfg.Chain.Config = chainPreset
	} else {
		cfg.Chain.Config = chainConfig
	}

	cfg.Chain.Name = cfg.Chain.Config.ConfigName

	if cfg.Chain.Config.CollectionSize == 0 {
		cfg.Chain.Config.CollectionSize = 250
	}
	if cfg.Chain.Config.CollectionAddress == "" || cfg.Chain.Config.MarketAddress == "" {
		return fmt.Errorf("missing collection/market contract address for chain %v", cfg.Chain.Name)
	}

	// endpoints
	if cfg.ExecutionApi.Endpoints == nil && cfg.ExecutionApi.Endpoint != "" {
		cfg.ExecutionApi.Endpoints = []types.EndpointConfig{
			{
				Url:  cfg.ExecutionApi.Endpoint,
				Name: "default",
			},
		}
	}
	if len(cfg.ExecutionApi.Endpoints) == 0 {
		return fmt.Errorf("missing execution node endpoints (need at least 1 endpoint to run the explorer)")
	}

	log.WithFields(log.Fields{
		"configName":        cfg.Chain.Config.ConfigName,
		"chainId":           cfg.Chain.Config.ChainId,
		"collectionAddress": cfg.Chain.Config.CollectionAddress,
		"marketAddress":     cfg.Chain.Config.MarketAddress,
		"collectionSize":    cfg.Chain.Config.CollectionSize,
	}).Infof("did init config")

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	if path == "" {
		return yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}
