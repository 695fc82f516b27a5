// Package config provides configuration parsing for screenobserver
// deployments.
//
// The configuration is stored in screenobserver.json. This package
// handles loading, saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "wsPath": "/_screen/ws",
//	    "metricsPath": "/metrics",
//	    "assets": "public",
//	    "cache": "none",
//	    "maxSessions": 0
//	  },
//	  "observer": {
//	    "debounce": "250ms",
//	    "callTimeout": "5s"
//	  },
//	  "telemetry": {
//	    "endpoint": "http://localhost:4318",
//	    "serviceName": "screenobserver"
//	  }
//	}
//
// # Environment
//
// SCREENOBSERVER_HOST, SCREENOBSERVER_PORT, SCREENOBSERVER_ASSETS,
// SCREENOBSERVER_CACHE, SCREENOBSERVER_MAX_SESSIONS,
// SCREENOBSERVER_DEBOUNCE, SCREENOBSERVER_CALL_TIMEOUT and
// SCREENOBSERVER_OTEL_ENDPOINT override the file when set. Call
// Config.ApplyEnv after loading.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
