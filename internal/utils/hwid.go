package utils

import "github.com/denisbrodbeck/machineid"

// HWID is an app-scoped fingerprint of this machine, stable across runs.
var HWID = hwid()

func hwid() string {
	id, err := machineid.ProtectedID("panesync")
	if err != nil {
		return "unknown"
	}
	return id
}
