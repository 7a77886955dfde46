package tensorbridge

import "runtime/debug"

// Version is the library's own boundary version.
const Version = "2.0.0"

const engineModule = "github.com/tetratelabs/wazero"

// EngineVersion reports the version of the linked inference engine, read
// from the binary's embedded module info. Binaries built outside module
// mode report "unknown".
func EngineVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path == engineModule {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return "unknown"
}
