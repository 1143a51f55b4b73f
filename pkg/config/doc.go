// Package config provides application configuration management from environment variables.
//
// # Overview
//
// Settings are read from TOPGEN_* environment variables with defaults for
// everything. TOPGEN_ENV_FILE may name a dotenv file that is loaded first.
//
// Server settings:
//
//	TOPGEN_HOST="0.0.0.0"
//	TOPGEN_PORT="5000"
//	TOPGEN_READ_TIMEOUT="30s"
//	TOPGEN_WRITE_TIMEOUT="6m"
//	TOPGEN_CORS_ORIGINS="*"
//	TOPGEN_MAX_BODY_BYTES="10485760"
//
// Generator settings:
//
//	TOPGEN_OUTPUT_DIR="./output"
//	TOPGEN_RUNNER="local"  # local, docker
//	TOPGEN_FLOOGEN_BIN="floogen"
//	TOPGEN_DOCKER_IMAGE="floogen:latest"
//	TOPGEN_GENERATE_TIMEOUT="5m"
//	TOPGEN_JOB_RETENTION="24h"
//	TOPGEN_SWEEP_SCHEDULE="@hourly"
//	TOPGEN_S3_BUCKET="rtl-artifacts"
//	TOPGEN_S3_REGION="us-east-1"
//
// Observability settings:
//
//	TOPGEN_LOG_LEVEL="info"  # debug, info, warn, error
//	TOPGEN_METRICS_ENABLED="true"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Addr())
package config
