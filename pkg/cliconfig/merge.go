package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	setString(target, &target.Layout, source.Layout, "layout", sourceType)
	setString(target, &target.Language, source.Language, "language", sourceType)

	setString(target, &target.Log.Level, source.Log.Level, "log.level", sourceType)
	setString(target, &target.Log.Format, source.Log.Format, "log.format", sourceType)
	setString(target, &target.Log.File, source.Log.File, "log.file", sourceType)
	setInt(target, &target.Log.MaxSizeMB, source.Log.MaxSizeMB, "log.maxSizeMB", sourceType)
	setInt(target, &target.Log.MaxBackups, source.Log.MaxBackups, "log.maxBackups", sourceType)
	setInt(target, &target.Log.MaxAgeDays, source.Log.MaxAgeDays, "log.maxAgeDays", sourceType)

	setInt(target, &target.Bridge.Capacity, source.Bridge.Capacity, "bridge.capacity", sourceType)
	if source.Bridge.SendTimeout != 0 {
		target.Bridge.SendTimeout = source.Bridge.SendTimeout
		target.Sources["bridge.sendTimeout"] = sourceType
	}
	setInt(target, &target.PeerQueue, source.PeerQueue, "peerQueue", sourceType)

	if source.HTTP.ResponseTimeout != 0 {
		target.HTTP.ResponseTimeout = source.HTTP.ResponseTimeout
		target.Sources["http.responseTimeout"] = sourceType
	}
	setInt(target, &target.HTTP.DefaultStatus, source.HTTP.DefaultStatus, "http.defaultStatus", sourceType)

	if source.UDP.IdleTimeout != 0 {
		target.UDP.IdleTimeout = source.UDP.IdleTimeout
		target.Sources["udp.idleTimeout"] = sourceType
	}

	setString(target, &target.TLS.Cert, source.TLS.Cert, "tls.cert", sourceType)
	setString(target, &target.TLS.Key, source.TLS.Key, "tls.key", sourceType)
	setString(target, &target.TLS.CA, source.TLS.CA, "tls.ca", sourceType)
	// An explicit false in a lower layer cannot be told apart from unset, so
	// only true propagates.
	if source.TLS.Insecure {
		target.TLS.Insecure = true
		target.Sources["tls.insecure"] = sourceType
	}
}

func setString(target *Config, dst *string, v, key, sourceType string) {
	if v == "" {
		return
	}
	*dst = v
	target.Sources[key] = sourceType
}

func setInt(target *Config, dst *int, v int, key, sourceType string) {
	if v == 0 {
		return
	}
	*dst = v
	target.Sources[key] = sourceType
}
