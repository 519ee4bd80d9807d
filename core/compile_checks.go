package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ VersionDiscoverer = (*RequestPipeline)(nil)
	_ versionResolver   = (*VersionNegotiator)(nil)
	_ VersionCache      = (*MemoryVersionCache)(nil)
	_ ConfigProvider    = (*CfgxConfigProvider)(nil)
	_ OptionsResolver   = GoOptionsResolver{}
	_ RawConfigLoader   = MapConfigLoader{}
	_ MetricsRecorder   = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
