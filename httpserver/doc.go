/*
Package httpserver wires the share recovery API into a production HTTP
server with lifecycle management.

The server composes the recovery handler's routes with operational
concerns kept out of the handler itself:

  - Structured request logging on every route
  - Panic recovery on the API surface
  - Health and diagnostics endpoints
  - A separate metrics listener serving Prometheus collectors
  - Optional pprof debugging endpoints
  - Coordinated draining and graceful shutdown

# Health and Draining

Four endpoints drive load-balancer integration:

  - GET /livez - Process liveness, always 200 while serving
  - GET /readyz - Readiness; 503 once draining
  - GET /drain - Mark not ready, then wait DrainDuration
  - GET /undrain - Mark ready again

Shutdown follows the drain-then-stop pattern: mark not ready, give load
balancers DrainDuration to notice, then stop accepting connections and
allow GracefulShutdownDuration for in-flight requests (detection runs
already in progress) to finish.

# Usage

	handler := recoveryhandler.NewHandler(detector, store, custodians, limits, log)
	srv, err := httpserver.New(&api.HTTPServerConfig{
	    ListenAddr:               ":8080",
	    MetricsAddr:              ":9090",
	    Log:                      log,
	    DrainDuration:            30 * time.Second,
	    GracefulShutdownDuration: 30 * time.Second,
	    ReadTimeout:              60 * time.Second,
	    WriteTimeout:             120 * time.Second,
	}, handler)
	if err != nil {
	    return err
	}
	srv.RunInBackground()
	// ... wait for a shutdown signal ...
	srv.Shutdown()
*/
package httpserver
