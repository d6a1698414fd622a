package leadchat

// Version is the library version, overridable at build time with
// -ldflags "-X github.com/krauseinafrica/leadchat.Version=...".
var Version = "0.1.0"
