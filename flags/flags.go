package flags

const (
	Home  = "home"
	Trace = "trace"

	Log_Level = "log.level"

	RPC_HTTP    = "rpc.http"
	RPC_WS      = "rpc.ws"
	RPC_Timeout = "rpc.timeout"

	Metrics_Addr      = "metrics.addr"
	Metrics_Namespace = "metrics.namespace"

	Cache_Size = "cache.size"
)
