package config

import (
	_ "embed"
)

// explorer config
//
//go:embed default.config.yml
var DefaultConfigYml string

// network presets
//
//go:embed sepolia.chain.yml
var SepoliaChainYml string

//go:embed mainnet.chain.yml
var MainnetChainYml string
