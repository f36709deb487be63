// Package optionz provides named, composable, live-reloading options objects.
//
// An options type is any struct T. Callers register configure actions,
// post-configure actions and validators for T on a Registry, then ask a
// Factory, Snapshot or Monitor for a *T by name. The empty string is the
// default name.
//
// # Building
//
// A Factory builds one instance per call:
//
//	Construct → Configure (registration order) → PostConfigure → Validate
//
// Configure actions target one name or every name (ConfigureAll). Within a
// pass, wildcard and named actions interleave in the order they were
// registered. Every post-configure action runs after every configure action.
// Validation runs last and reports every failure, not just the first.
//
//	reg := optionz.NewRegistry[ServerOptions]().
//	    ConfigureAll(func(o *ServerOptions) error { o.Port = 8080; return nil }).
//	    Configure("admin", func(o *ServerOptions) error { o.Port = 9090; return nil }).
//	    PostConfigureAll(func(o *ServerOptions) error { o.Addr = fmt.Sprintf(":%d", o.Port); return nil }).
//	    Validate(optionz.DefaultName, func(o *ServerOptions) bool { return o.Port > 0 }, "port is required")
//
//	opts, err := reg.Factory().Create("admin")
//
// # Caching and Monitoring
//
// Cache memoizes instances per name and guarantees at most one in-flight
// build per name. Monitor layers change tracking on top: every registered
// ChangeTokenSource is watched, and when its token fires the cached value
// for the source's name is evicted, rebuilt and handed to every OnChange
// subscriber.
//
//	monitor := reg.Monitor()
//	if err := monitor.Start(ctx); err != nil {
//	    return err
//	}
//	defer monitor.Close()
//
//	sub := monitor.OnChange(func(o *ServerOptions, name string) {
//	    log.Printf("options %q changed: %+v", name, o)
//	})
//	defer sub.Unregister()
//
// A rebuild that fails after a change is recorded as a RebuildError
// (LastError, ErrorHistory, MonitorRebuildFailed signal). The name stays
// evicted and the next Get retries.
//
// # Bindings
//
// A Binding turns a Watcher (a source of raw bytes) into both a change source
// and a configure action that decodes the latest payload onto the instance:
//
//	b := optionz.NewBinding(optionz.DefaultName, optionz.NewFileWatcher("/etc/app/server.yaml")).
//	    Codec(optionz.YAMLCodec{})
//	if err := b.Start(ctx); err != nil {
//	    return err
//	}
//	reg.Bind(b)
//
// Adapters for Redis, etcd, NATS KV, Kubernetes and viper live under pkg/.
//
// # Observability
//
// Lifecycle and failure events are emitted as capitan signals (see
// signals.go). Hook them to log or alert; pkg/zaplog wires them to zap.
package optionz
