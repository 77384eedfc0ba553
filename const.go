package match

// EngineVersion is the current version of the matching core, reported by
// the daemons at startup.
const EngineVersion = "v1.0.0"
