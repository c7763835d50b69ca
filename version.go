package stepgen

import "runtime/debug"

// version is set at link time with -ldflags "-X github.com/syssam/stepgen.version=...".
var version = ""

// Version returns the version of the stepgen module.
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "devel"
}
