// Package httpserver runs an http.Handler with sane timeouts and graceful
// shutdown, and provides liveness/readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run returns when ctx is cancelled or on SIGINT/SIGTERM. Start and shutdown
// failures are wrapped with ErrStart and ErrShutdown.
package httpserver
