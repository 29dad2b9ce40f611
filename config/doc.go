// Package config provides configuration loading for coredata processes.
//
// This package loads configuration from JSON or YAML files, merges layers,
// applies COREDATA_* environment overrides and validates the result.
//
// # Core Components
//
// Config: the complete configuration. Platform identity stamps audit
// provenance, IDGen configures the Sonyflake generator, Parser and Sources
// configure payload reading, Enrichment sets the path policy, Pipelines name
// rule sets and Workflows carry static workflow records.
//
// Loader: loads configuration with layer merging (base + overrides). Later
// layers override earlier ones key by key, so an override file only needs the
// keys it changes.
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.yaml")
//	loader.AddLayer("config/production.json") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Durations
//
// Duration fields (timeout, initial_delay, max_delay) accept Go duration
// strings ("10s", "250ms"), a day suffix ("2d") or integer nanoseconds.
//
// # Environment Overrides
//
//	COREDATA_SERVICE            platform.service
//	COREDATA_INSTANCE           platform.instance
//	COREDATA_VERSION            platform.version
//	COREDATA_NATS_URL           sources.nats.url
//	COREDATA_NATS_TOKEN         sources.nats.token
//	COREDATA_REDIS_URL          sources.redis.url
//	COREDATA_HTTP_TIMEOUT       sources.http.timeout
//	COREDATA_MAX_CONTENT_BYTES  parser.max_content_bytes
//	COREDATA_MACHINE_ID         idgen.machine_id
//	COREDATA_ENRICH_POLICY      enrichment.policy
//	COREDATA_LOG_LEVEL          logging.level
//
// When platform.instance is still empty after overrides, a random UUID is used
// so that every process stamps distinguishable provenance.
package config
