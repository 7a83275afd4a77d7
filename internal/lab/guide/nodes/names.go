package nodes

// Node names of the guide dialogue graph.
const (
	NodeRoute           = "Route"
	NodeOffline         = "OfflineAnswer"
	NodeConfigError     = "ConfigError"
	NodeRemote          = "RemoteCascade"
	NodeRemoteReply     = "RemoteReply"
	NodeOfflineFallback = "OfflineFallback"
	NodeErrorReport     = "ErrorReport"
)
