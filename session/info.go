package session

// ServerVersion is the human-readable version string advertised in
// INFO_RESULT.
const ServerVersion = "leo/0.1.0"

// ServerInfo is the immutable per-process record every session's INFO
// handler replies from.
type ServerInfo struct {
	Version         string
	ProtocolVersion int
	Capabilities    []string
	StorageRoot     string
	MaxUploadSize   *uint64
}

func infoFromConfig(cfg Config, storageRoot string) ServerInfo {
	caps := cfg.Capabilities
	if len(caps) == 0 {
		caps = DefaultCapabilities
	}
	protocolVersion := cfg.ProtocolVersion
	if protocolVersion == 0 {
		protocolVersion = 1
	}
	return ServerInfo{
		Version:         ServerVersion,
		ProtocolVersion: protocolVersion,
		Capabilities:    caps,
		StorageRoot:     storageRoot,
		MaxUploadSize:   cfg.MaxUploadSize,
	}
}
