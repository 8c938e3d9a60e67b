package arbor

// Version is the release of the arbor module, reported by `arbor version`.
const Version = "0.3.0"
