package ir

// EngineVersion is recorded with every run so that run logs written by an
// older stepping loop can be told apart.
const EngineVersion = "0.1.0"
